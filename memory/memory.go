// Package memory implements the segmented, byte addressable MIPS32 memory.
//
// Storage is sparse: words are kept in 4KiB blocks which are allocated
// on first write. Each block tracks which of its words have ever been
// written, so that the end of meaningful content can be found.
//
// Words are stored little-endian: the byte at a word aligned address is
// the least significant byte of the word.
package memory

import (
	"iter"

	"github.com/ezrec/mipsim/event"
)

const (
	BLOCK_WORDS = 1024               // Words per storage block.
	BLOCK_BYTES = BLOCK_WORDS * 4    // Bytes per storage block.
	BLOCK_MASK  = ^uint32(BLOCK_BYTES - 1)
)

// Recorder is notified of the previous value of every memory write.
type Recorder interface {
	RecordMemory(address uint32, width int, old uint32)
}

type block struct {
	words   [BLOCK_WORDS]uint32
	written [BLOCK_WORDS / 32]uint32
}

func (blk *block) isWritten(index uint32) bool {
	return (blk.written[index/32] & (1 << (index % 32))) != 0
}

func (blk *block) markWritten(index uint32) {
	blk.written[index/32] |= 1 << (index % 32)
}

// Memory is the simulated memory.
type Memory struct {
	Config   *Configuration // Memory map.
	Recorder Recorder       // Optional recorder of previous values.
	Events   *event.Bus     // Optional event bus.

	blocks map[uint32]*block
}

// New creates an empty memory with a configuration.
func New(config *Configuration) *Memory {
	return &Memory{
		Config: config,
		blocks: make(map[uint32]*block),
	}
}

// Clear discards all contents.
func (mem *Memory) Clear() {
	clear(mem.blocks)
}

// Clone makes a copy of the memory contents. The clone has no
// recorder or event bus.
func (mem *Memory) Clone() (clone *Memory) {
	clone = New(mem.Config)
	for base, blk := range mem.blocks {
		dup := *blk
		clone.blocks[base] = &dup
	}
	return
}

// CopyFrom replaces the contents with a copy of another memory's contents.
func (mem *Memory) CopyFrom(other *Memory) {
	mem.Config = other.Config
	mem.blocks = other.Clone().blocks
}

// check validates an access of width bytes.
func (mem *Memory) check(address uint32, width int, access Access) (err error) {
	if address%uint32(width) != 0 {
		err = &AddressError{Address: address, Access: access, Err: ErrAlignment}
		return
	}

	if _, ok := mem.Config.SegmentOf(address); !ok {
		err = &AddressError{Address: address, Access: access, Err: ErrOutOfRange}
		return
	}

	return
}

// word gets the word containing an address, with no checks.
func (mem *Memory) word(address uint32) uint32 {
	blk, ok := mem.blocks[address&BLOCK_MASK]
	if !ok {
		return 0
	}
	return blk.words[(address&^BLOCK_MASK)/4]
}

// setWord sets the word containing an address, with no checks.
func (mem *Memory) setWord(address uint32, value uint32) {
	base := address & BLOCK_MASK
	blk, ok := mem.blocks[base]
	if !ok {
		blk = &block{}
		mem.blocks[base] = blk
	}
	index := (address &^ BLOCK_MASK) / 4
	blk.words[index] = value
	blk.markWritten(index)
}

// get reads width bytes at an aligned address.
func (mem *Memory) get(address uint32, width int) uint32 {
	word := mem.word(address)
	switch width {
	case 1:
		return (word >> ((address & 3) * 8)) & 0xff
	case 2:
		return (word >> ((address & 2) * 8)) & 0xffff
	default:
		return word
	}
}

// put writes width bytes at an aligned address, returning the previous value.
func (mem *Memory) put(address uint32, width int, value uint32) (old uint32) {
	word := mem.word(address)
	switch width {
	case 1:
		shift := (address & 3) * 8
		old = (word >> shift) & 0xff
		word = (word &^ (0xff << shift)) | ((value & 0xff) << shift)
	case 2:
		shift := (address & 2) * 8
		old = (word >> shift) & 0xffff
		word = (word &^ (0xffff << shift)) | ((value & 0xffff) << shift)
	default:
		old = word
		word = value
	}
	mem.setWord(address, word)
	return
}

// Get reads width (1, 2 or 4) bytes.
func (mem *Memory) Get(address uint32, width int, access Access) (value uint32, err error) {
	err = mem.check(address, width, access)
	if err != nil {
		return
	}
	value = mem.get(address, width)
	return
}

// Set writes width (1, 2 or 4) bytes, returning the previous value.
// The alignment and range checks are done before any change is made.
func (mem *Memory) Set(address uint32, width int, value uint32) (old uint32, err error) {
	err = mem.check(address, width, ACCESS_STORE)
	if err != nil {
		return
	}

	old = mem.put(address, width, value)

	if mem.Recorder != nil {
		mem.Recorder.RecordMemory(address, width, old)
	}

	if mem.Events.Active() {
		seg, _ := mem.Config.SegmentOf(address)
		mem.Events.Emit(event.Event{
			Kind:    event.MEMORY_WRITE,
			Name:    seg.Name,
			Address: address,
			Width:   width,
			Value:   value & widthMask(width),
			Old:     old,
		})
	}

	return
}

func widthMask(width int) uint32 {
	switch width {
	case 1:
		return 0xff
	case 2:
		return 0xffff
	}
	return 0xffffffff
}

// Word loads a word.
func (mem *Memory) Word(address uint32) (uint32, error) {
	return mem.Get(address, 4, ACCESS_LOAD)
}

// Fetch loads an instruction word.
func (mem *Memory) Fetch(address uint32) (uint32, error) {
	return mem.Get(address, 4, ACCESS_FETCH)
}

// Half loads a half-word.
func (mem *Memory) Half(address uint32) (value uint16, err error) {
	v, err := mem.Get(address, 2, ACCESS_LOAD)
	value = uint16(v)
	return
}

// Byte loads a byte.
func (mem *Memory) Byte(address uint32) (value uint8, err error) {
	v, err := mem.Get(address, 1, ACCESS_LOAD)
	value = uint8(v)
	return
}

// SetWord stores a word.
func (mem *Memory) SetWord(address uint32, value uint32) (old uint32, err error) {
	return mem.Set(address, 4, value)
}

// SetHalf stores a half-word.
func (mem *Memory) SetHalf(address uint32, value uint16) (old uint16, err error) {
	v, err := mem.Set(address, 2, uint32(value))
	old = uint16(v)
	return
}

// SetByte stores a byte.
func (mem *Memory) SetByte(address uint32, value uint8) (old uint8, err error) {
	v, err := mem.Set(address, 1, uint32(value))
	old = uint8(v)
	return
}

// RawWord gets the word at a word aligned address, or reports that the
// word has never been written.
func (mem *Memory) RawWord(address uint32) (value uint32, ok bool) {
	blk, found := mem.blocks[address&BLOCK_MASK]
	if !found {
		return
	}
	index := (address &^ BLOCK_MASK) / 4
	if !blk.isWritten(index) {
		return
	}
	return blk.words[index], true
}

// FirstNull finds the first word aligned address in [from, to] that has
// never been written.
func (mem *Memory) FirstNull(from, to uint32) (address uint32, ok bool) {
	from &^= 3
	for address = from; address <= to; address += 4 {
		if _, written := mem.RawWord(address); !written {
			return address, true
		}
		if address > address+4 {
			// Wrapped around the end of the address space.
			break
		}
	}
	return 0, false
}

// Words iterates over the written words in [from, to], stopping at the
// first word that was never written.
func (mem *Memory) Words(from, to uint32) iter.Seq2[uint32, uint32] {
	return func(yield func(address uint32, value uint32) bool) {
		if from > to {
			return
		}
		for address := from &^ 3; address <= to; address += 4 {
			value, ok := mem.RawWord(address)
			if !ok {
				return
			}
			if !yield(address, value) {
				return
			}
			if address > address+4 {
				return
			}
		}
	}
}
