package dump

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/mipsim/memory"
)

const dataBase = 0x10010000

// newMemory writes words from the start of the data segment.
func newMemory(t *testing.T, words ...uint32) *memory.Memory {
	t.Helper()
	mem := memory.New(memory.DEFAULT)
	for n, word := range words {
		_, err := mem.SetWord(dataBase+uint32(4*n), word)
		require.NoError(t, err)
	}
	return mem
}

func dump(t *testing.T, format string, mem *memory.Memory, first, last uint32) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, format, mem, first, last))
	return buf.String()
}

func TestFormats(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"ascii", "binary", "binary-text", "hex-text", "intel-hex", "segment-window"}, Formats())

	var buf bytes.Buffer
	err := Write(&buf, "punched-card", newMemory(t), dataBase, dataBase)
	var unknown ErrFormatUnknown
	assert.ErrorAs(err, &unknown)
}

func TestWrite_Text(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(t, 0x6c6c6548, 0x00000a6f, 0x80000001)
	last := uint32(dataBase + 0x100)

	assert.Equal("Hell\no...\n....\n", dump(t, FORMAT_ASCII, mem, dataBase, last))
	assert.Equal("6c6c6548\n00000a6f\n80000001\n", dump(t, FORMAT_HEX_TEXT, mem, dataBase, last))
	assert.Equal(
		"01101100011011000110010101001000\n"+
			"00000000000000000000101001101111\n"+
			"10000000000000000000000000000001\n",
		dump(t, FORMAT_BINARY_TEXT, mem, dataBase, last))
	assert.Equal("Hell", dump(t, FORMAT_BINARY, mem, dataBase, dataBase)[:4])
}

func TestWrite_Range(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(t, 1, 2, 3)

	// Inclusive of the last address.
	assert.Equal("00000001\n00000002\n", dump(t, FORMAT_HEX_TEXT, mem, dataBase, dataBase+4))

	// First above last is empty, for every format.
	for _, format := range Formats() {
		assert.Empty(dump(t, format, mem, dataBase+8, dataBase), format)
	}

	// Stops at the first word never written.
	_, err := mem.SetWord(dataBase+0x10, 5)
	require.NoError(t, err)
	assert.Equal("00000003\n", dump(t, FORMAT_HEX_TEXT, mem, dataBase+8, dataBase+0x10))
	assert.Empty(dump(t, FORMAT_HEX_TEXT, mem, dataBase+0xc, dataBase+0x10))
}

func TestWrite_Binary(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(t, 0x04030201, 0x08070605)
	assert.Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte(dump(t, FORMAT_BINARY, mem, dataBase, dataBase+4)))
}

func TestWrite_IntelHex(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(t, 0x00000001, 0xdeadbeef)
	assert.Equal(
		":020000041001E9\n"+
			":0400000001000000FB\n"+
			":04000400EFBEADDEC0\n"+
			":00000001FF\n",
		dump(t, FORMAT_INTEL_HEX, mem, dataBase, dataBase+4))
}

func TestWrite_SegmentWindow(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(t, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	assert.Equal(
		"0x10010000  0x00000001 0x00000002 0x00000003 0x00000004 0x00000005 0x00000006 0x00000007 0x00000008\n"+
			"0x10010020  0x00000009\n",
		dump(t, FORMAT_SEGMENT_WINDOW, mem, dataBase, dataBase+0x100))
}

func TestWriteSegments(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(t, 0x11111111)
	_, err := mem.SetWord(0x00400000, 0x22222222)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSegments(&buf, FORMAT_HEX_TEXT, mem, memory.SEGMENT_TEXT, memory.SEGMENT_DATA, memory.SEGMENT_KDATA))
	assert.Equal("22222222\n11111111\n", buf.String())

	err = WriteSegments(&buf, FORMAT_HEX_TEXT, mem, "attic")
	assert.ErrorIs(err, ErrSegmentUnknown)
}
