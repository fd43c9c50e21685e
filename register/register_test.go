package register

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mipsim/event"
)

type record struct {
	bank   Bank
	number int
	old    int32
}

type recorder []record

func (r *recorder) RecordRegister(bank Bank, number int, old int32) {
	*r = append(*r, record{bank, number, old})
}

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	reg := NewRegister("$t0", 8, 5)
	assert.Equal(int32(5), reg.Value())
	assert.Equal(int32(5), reg.Set(9))
	assert.Equal(int32(9), reg.Value())
	reg.Reset()
	assert.Equal(int32(5), reg.Value())
	reg.ChangeResetValue(-1)
	assert.Equal(int32(-1), reg.Value())
	assert.Equal("$t0=0xffffffff", reg.String())
}

func TestGprNumber(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name   string
		number int
		ok     bool
	}{
		{"$zero", 0, true},
		{"$t0", 8, true},
		{"$8", 8, true},
		{"$31", 31, true},
		{"$ra", 31, true},
		{"$32", 0, false},
		{"$-1", 0, false},
		{"t0", 0, false},
		{"$", 0, false},
		{"$f0", 0, false},
	}

	for _, entry := range table {
		number, ok := GprNumber(entry.name)
		assert.Equal(entry.ok, ok, entry.name)
		assert.Equal(entry.number, number, entry.name)
	}
}

func TestFile(t *testing.T) {
	assert := assert.New(t)

	file := NewFile()
	rec := &recorder{}
	file.Recorder = rec
	file.Initialize(0x00400000, 0x10008000, 0x7fffeffc)

	assert.Equal(uint32(0x00400000), file.PC())
	assert.Equal(int32(0x10008000), file.Get(REG_GP))
	assert.Equal(int32(0x7fffeffc), file.Get(REG_SP))

	old, err := file.Set(8, 42)
	assert.NoError(err)
	assert.Equal(int32(0), old)
	old, err = file.Set(8, 43)
	assert.NoError(err)
	assert.Equal(int32(42), old)
	assert.Equal([]record{{BANK_GPR, 8, 0}, {BANK_GPR, 8, 42}}, []record(*rec))

	// $zero is hardwired.
	_, err = file.Set(REG_ZERO, 99)
	assert.NoError(err)
	assert.Equal(int32(0), file.Get(REG_ZERO))
	assert.Equal(2, len(*rec))

	_, err = file.Set(40, 1)
	assert.True(errors.Is(err, ErrRegisterInvalid))

	file.SetHiLo(-1, 7)
	assert.Equal(int32(-1), file.Hi())
	assert.Equal(int32(7), file.Lo())

	reg, ok := file.Lookup("$t0")
	assert.True(ok)
	assert.Equal(int32(43), reg.Value())
	_, ok = file.Lookup("$bogus")
	assert.False(ok)
	reg, ok = file.Lookup("hi")
	assert.True(ok)
	assert.Equal(REG_HI, reg.Number)

	count := 0
	for range file.All() {
		count++
	}
	assert.Equal(35, count)

	file.Reset()
	assert.Equal(int32(0), file.Get(8))
	assert.Equal(int32(0x10008000), file.Get(REG_GP))
}

func TestFile_Events(t *testing.T) {
	assert := assert.New(t)

	bus := &event.Bus{}
	var got []event.Event
	bus.Subscribe(func(ev event.Event) { got = append(got, ev) })

	file := NewFile()
	file.Events = bus
	file.Set(REG_V0, 10)
	file.SetPC(0x400004)

	assert.Equal(2, len(got))
	assert.Equal("$v0", got[0].Name)
	assert.Equal(uint32(10), got[0].Value)
	assert.Equal("pc", got[1].Name)
}

func TestCop0(t *testing.T) {
	assert := assert.New(t)

	cop := NewCop0()
	assert.Equal(int32(STATUS_RESET), cop.Get(COP0_STATUS))

	reg, ok := cop.Lookup("$14")
	assert.True(ok)
	assert.Equal(COP0_EPC, reg.Number)
	reg, ok = cop.Lookup("$cause")
	assert.True(ok)
	assert.Equal(COP0_CAUSE, reg.Number)
	_, ok = cop.Lookup("$3")
	assert.False(ok)

	old, err := cop.Set(COP0_EPC, 0x400010)
	assert.NoError(err)
	assert.Equal(int32(0), old)
	_, err = cop.Set(3, 1)
	assert.True(errors.Is(err, ErrRegisterInvalid))

	cop.Reset()
	assert.Equal(int32(0), cop.Get(COP0_EPC))
}

func TestCop1(t *testing.T) {
	assert := assert.New(t)

	cop := NewCop1()
	rec := &recorder{}
	cop.Recorder = rec

	assert.NoError(cop.SetFloat(1, 1.5))
	assert.Equal(float32(1.5), cop.Float(1))

	assert.NoError(cop.SetDouble(2, math.Pi))
	value, err := cop.Double(2)
	assert.NoError(err)
	assert.Equal(math.Pi, value)
	bits := math.Float64bits(math.Pi)
	assert.Equal(int32(uint32(bits)), cop.Get(2))
	assert.Equal(int32(uint32(bits>>32)), cop.Get(3))

	_, err = cop.Double(3)
	assert.True(errors.Is(err, ErrInvalidRegisterAccess))
	err = cop.SetDouble(5, 1.0)
	assert.True(errors.Is(err, ErrInvalidRegisterAccess))

	number, ok := FprNumber("$f31")
	assert.True(ok)
	assert.Equal(31, number)
	_, ok = FprNumber("$f32")
	assert.False(ok)
	_, ok = FprNumber("$t0")
	assert.False(ok)
}

func TestCop1_Conditions(t *testing.T) {
	assert := assert.New(t)

	cop := NewCop1()
	rec := &recorder{}
	cop.Recorder = rec

	old, err := cop.SetCondition(3, true)
	assert.NoError(err)
	assert.False(old)
	assert.True(cop.Condition(3))
	assert.Equal(uint8(0x08), cop.Conditions())

	old, err = cop.SetCondition(3, false)
	assert.NoError(err)
	assert.True(old)
	assert.False(cop.Condition(3))

	_, err = cop.SetCondition(8, true)
	assert.True(errors.Is(err, ErrRegisterInvalid))

	assert.Equal([]record{{BANK_FLAGS, 3, 0}, {BANK_FLAGS, 3, 1}}, []record(*rec))
}
