// Package dump writes ranges of simulated memory to files, in the text
// and binary formats understood by other MIPS tools.
//
// Every format stops at the first word that was never written, and a
// range whose first address is above its last produces no output.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/ezrec/mipsim/internal"
	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var ErrSegmentUnknown = errors.New(f("memory segment unknown"))

// ErrFormatUnknown is an unknown dump format name.
type ErrFormatUnknown string

func (err ErrFormatUnknown) Error() string {
	return f("dump format '%v' not found", string(err))
}

// Words is a sequence of address, word pairs.
type Words = iter.Seq2[uint32, uint32]

// formatter writes a sequence of words.
type formatter func(w *bufio.Writer, words Words) error

// Format names.
const (
	FORMAT_ASCII          = "ascii"
	FORMAT_BINARY         = "binary"
	FORMAT_BINARY_TEXT    = "binary-text"
	FORMAT_HEX_TEXT       = "hex-text"
	FORMAT_INTEL_HEX      = "intel-hex"
	FORMAT_SEGMENT_WINDOW = "segment-window"
)

var formats = map[string]formatter{
	FORMAT_ASCII:          writeAscii,
	FORMAT_BINARY:         writeBinary,
	FORMAT_BINARY_TEXT:    writeBinaryText,
	FORMAT_HEX_TEXT:       writeHexText,
	FORMAT_INTEL_HEX:      writeIntelHex,
	FORMAT_SEGMENT_WINDOW: writeSegmentWindow,
}

// Formats returns the names of the dump formats.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Write dumps the memory from first to last, inclusive.
func Write(w io.Writer, format string, mem *memory.Memory, first, last uint32) (err error) {
	fn, ok := formats[format]
	if !ok {
		err = ErrFormatUnknown(format)
		return
	}

	if first > last {
		return
	}

	return emit(w, fn, mem.Words(first, last))
}

// WriteSegments dumps the written words of one or more segments, in the
// order given, as a single document.
func WriteSegments(w io.Writer, format string, mem *memory.Memory, segments ...string) (err error) {
	fn, ok := formats[format]
	if !ok {
		err = ErrFormatUnknown(format)
		return
	}

	var seqs []Words
	for _, name := range segments {
		seg, ok := mem.Config.Segment(name)
		if !ok {
			err = fmt.Errorf("%w: %v", ErrSegmentUnknown, name)
			return
		}
		seqs = append(seqs, mem.Words(seg.Base, seg.Limit))
	}

	return emit(w, fn, internal.Concat2(seqs...))
}

func emit(w io.Writer, fn formatter, words Words) (err error) {
	bw := bufio.NewWriter(w)
	err = fn(bw, words)
	if err != nil {
		return
	}
	return bw.Flush()
}

// littleEndian returns the bytes of a word in memory order.
func littleEndian(word uint32) [4]byte {
	return [4]byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
}

// writeAscii writes one line per word, with its bytes in memory order as
// characters, and '.' for those that are not printable.
func writeAscii(w *bufio.Writer, words Words) (err error) {
	for _, word := range words {
		var line strings.Builder
		for _, b := range littleEndian(word) {
			if b < ' ' || b > '~' {
				b = '.'
			}
			line.WriteByte(b)
		}
		line.WriteByte('\n')
		_, err = w.WriteString(line.String())
		if err != nil {
			return
		}
	}
	return
}

// writeBinary writes the raw bytes, in memory order.
func writeBinary(w *bufio.Writer, words Words) (err error) {
	for _, word := range words {
		data := littleEndian(word)
		_, err = w.Write(data[:])
		if err != nil {
			return
		}
	}
	return
}

// writeBinaryText writes one 32 digit binary number per line.
func writeBinaryText(w *bufio.Writer, words Words) (err error) {
	for _, word := range words {
		_, err = fmt.Fprintf(w, "%032b\n", word)
		if err != nil {
			return
		}
	}
	return
}

// writeHexText writes one 8 digit hex number per line.
func writeHexText(w *bufio.Writer, words Words) (err error) {
	for _, word := range words {
		_, err = fmt.Fprintf(w, "%08x\n", word)
		if err != nil {
			return
		}
	}
	return
}

// intelHexRecord writes one Intel HEX record, with its checksum.
func intelHexRecord(w *bufio.Writer, address uint16, kind byte, data []byte) (err error) {
	sum := byte(len(data)) + byte(address>>8) + byte(address) + kind
	for _, b := range data {
		sum += b
	}

	_, err = fmt.Fprintf(w, ":%02X%04X%02X%X%02X\n", len(data), address, kind, data, -sum)
	return
}

// writeIntelHex writes a data record per word, and an extended linear
// address record whenever the upper 16 address bits change.
func writeIntelHex(w *bufio.Writer, words Words) (err error) {
	upper := -1
	for address, word := range words {
		if int(address>>16) != upper {
			upper = int(address >> 16)
			err = intelHexRecord(w, 0, 0x04, []byte{byte(upper >> 8), byte(upper)})
			if err != nil {
				return
			}
		}

		data := littleEndian(word)
		err = intelHexRecord(w, uint16(address), 0x00, data[:])
		if err != nil {
			return
		}
	}

	return intelHexRecord(w, 0, 0x01, nil)
}

// writeSegmentWindow writes rows of up to eight words, each prefixed by
// its address, in the style of a debugger's data window.
func writeSegmentWindow(w *bufio.Writer, words Words) (err error) {
	const columns = 8

	count := 0
	next := uint32(0)
	for address, word := range words {
		if count == columns || (count > 0 && address != next) {
			_, err = w.WriteString("\n")
			if err != nil {
				return
			}
			count = 0
		}

		if count == 0 {
			_, err = fmt.Fprintf(w, "0x%08x ", address)
			if err != nil {
				return
			}
		}

		_, err = fmt.Fprintf(w, " 0x%08x", word)
		if err != nil {
			return
		}

		count++
		next = address + 4
	}

	if count > 0 {
		_, err = w.WriteString("\n")
	}

	return
}
