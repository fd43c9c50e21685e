package memory

import (
	"fmt"
	"slices"
)

// Segment names.
const (
	SEGMENT_TEXT   = "text"
	SEGMENT_EXTERN = "extern"
	SEGMENT_DATA   = "data"
	SEGMENT_HEAP   = "heap"
	SEGMENT_STACK  = "stack"
	SEGMENT_KTEXT  = "ktext"
	SEGMENT_KDATA  = "kdata"
	SEGMENT_MMIO   = "mmio"
)

// Segment is a named, inclusive address range.
type Segment struct {
	Name  string
	Base  uint32
	Limit uint32
}

// Contains returns true if the address is within the segment.
func (seg Segment) Contains(address uint32) bool {
	return address >= seg.Base && address <= seg.Limit
}

func (seg Segment) String() string {
	return fmt.Sprintf(".%v %#08x-%#08x", seg.Name, seg.Base, seg.Limit)
}

// Configuration is a memory map: an ordered set of segments, and the
// initial register values and exception handler address that go with it.
type Configuration struct {
	Name        string
	Description string
	Segments    []Segment

	GlobalPointer    uint32 // Initial $gp.
	StackPointer     uint32 // Initial $sp.
	ExceptionHandler uint32 // Address of the kernel exception handler.
}

// Segment finds a segment by name.
func (cfg *Configuration) Segment(name string) (seg Segment, ok bool) {
	index := slices.IndexFunc(cfg.Segments, func(s Segment) bool { return s.Name == name })
	if index < 0 {
		return
	}
	return cfg.Segments[index], true
}

// SegmentOf finds the segment containing an address.
func (cfg *Configuration) SegmentOf(address uint32) (seg Segment, ok bool) {
	for _, seg = range cfg.Segments {
		if seg.Contains(address) {
			return seg, true
		}
	}
	return Segment{}, false
}

// Base gets the base address of a segment, or 0 if the segment is not defined.
func (cfg *Configuration) Base(name string) uint32 {
	seg, _ := cfg.Segment(name)
	return seg.Base
}

// Limit gets the limit address of a segment, or 0 if the segment is not defined.
func (cfg *Configuration) Limit(name string) uint32 {
	seg, _ := cfg.Segment(name)
	return seg.Limit
}

// IsText returns true if the address is in the user or kernel text segment.
func (cfg *Configuration) IsText(address uint32) bool {
	seg, ok := cfg.SegmentOf(address)
	return ok && (seg.Name == SEGMENT_TEXT || seg.Name == SEGMENT_KTEXT)
}

// Built-in memory configurations.
var (
	DEFAULT = &Configuration{
		Name:        "Default",
		Description: "Default: 32-bit address space, text at 0x00400000",
		Segments: []Segment{
			{SEGMENT_TEXT, 0x00400000, 0x0ffffffc},
			{SEGMENT_EXTERN, 0x10000000, 0x1000ffff},
			{SEGMENT_DATA, 0x10010000, 0x1003ffff},
			{SEGMENT_HEAP, 0x10040000, 0x7fbfffff},
			{SEGMENT_STACK, 0x7fc00000, 0x7fffffff},
			{SEGMENT_KTEXT, 0x80000000, 0x8ffffffc},
			{SEGMENT_KDATA, 0x90000000, 0xfffeffff},
			{SEGMENT_MMIO, 0xffff0000, 0xffffffff},
		},
		GlobalPointer:    0x10008000,
		StackPointer:     0x7fffeffc,
		ExceptionHandler: 0x80000180,
	}

	COMPACT_DATA_AT_ZERO = &Configuration{
		Name:        "CompactDataAtZero",
		Description: "Compact: 32KB address space, data at 0x0000",
		Segments: []Segment{
			{SEGMENT_DATA, 0x00000000, 0x00000fff},
			{SEGMENT_EXTERN, 0x00001000, 0x00001fff},
			{SEGMENT_HEAP, 0x00002000, 0x00002dff},
			{SEGMENT_STACK, 0x00002e00, 0x00002fff},
			{SEGMENT_TEXT, 0x00003000, 0x00003ffc},
			{SEGMENT_KTEXT, 0x00004000, 0x00004ffc},
			{SEGMENT_KDATA, 0x00005000, 0x00007eff},
			{SEGMENT_MMIO, 0x00007f00, 0x00007fff},
		},
		GlobalPointer:    0x00001800,
		StackPointer:     0x00002ffc,
		ExceptionHandler: 0x00004180,
	}

	COMPACT_TEXT_AT_ZERO = &Configuration{
		Name:        "CompactTextAtZero",
		Description: "Compact: 32KB address space, text at 0x0000",
		Segments: []Segment{
			{SEGMENT_TEXT, 0x00000000, 0x00000ffc},
			{SEGMENT_EXTERN, 0x00001000, 0x00001fff},
			{SEGMENT_DATA, 0x00002000, 0x00002fff},
			{SEGMENT_HEAP, 0x00003000, 0x00003dff},
			{SEGMENT_STACK, 0x00003e00, 0x00003fff},
			{SEGMENT_KTEXT, 0x00004000, 0x00004ffc},
			{SEGMENT_KDATA, 0x00005000, 0x00007eff},
			{SEGMENT_MMIO, 0x00007f00, 0x00007fff},
		},
		GlobalPointer:    0x00001800,
		StackPointer:     0x00003ffc,
		ExceptionHandler: 0x00004180,
	}
)

// Configurations lists the built-in memory configurations.
var Configurations = []*Configuration{
	DEFAULT,
	COMPACT_DATA_AT_ZERO,
	COMPACT_TEXT_AT_ZERO,
}

// LookupConfiguration finds a built-in configuration by name.
func LookupConfiguration(name string) (cfg *Configuration, err error) {
	for _, cfg = range Configurations {
		if cfg.Name == name {
			return
		}
	}
	return nil, ErrConfigurationUnknown(name)
}
