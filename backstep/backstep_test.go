package backstep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mipsim/register"
)

type target struct {
	registers map[register.Bank]map[int]int32
	memory    map[uint32]uint32
	pc        uint32
	engine    Engine
	order     []string
	failAt    uint32
}

func newTarget() *target {
	return &target{
		registers: map[register.Bank]map[int]int32{},
		memory:    map[uint32]uint32{},
	}
}

func (t *target) RestoreRegister(bank register.Bank, number int, value int32) error {
	if t.registers[bank] == nil {
		t.registers[bank] = map[int]int32{}
	}
	t.registers[bank][number] = value
	t.order = append(t.order, "register")
	return nil
}

func (t *target) RestoreMemory(address uint32, width int, value uint32) error {
	if t.failAt != 0 && address == t.failAt {
		return errors.New("bad address")
	}
	t.memory[address] = value
	t.order = append(t.order, "memory")
	return nil
}

func (t *target) RestoreStep(pc uint32, engine Engine) {
	t.pc = pc
	t.engine = engine
	t.order = append(t.order, "step")
}

func TestStepper_StepBack(t *testing.T) {
	assert := assert.New(t)

	bs := New(DEFAULT_MAX_DEPTH)
	assert.True(bs.Empty())

	bs.Begin(0x400000, Engine{})
	bs.RecordRegister(register.BANK_GPR, 8, 0)
	bs.End()

	bs.Begin(0x400004, Engine{7})
	bs.RecordRegister(register.BANK_GPR, 8, 1)
	bs.RecordMemory(0x10010000, 4, 0xdead)
	bs.RecordRegister(register.BANK_GPR, 8, 2)
	bs.End()

	assert.Equal(2, bs.Depth())

	tgt := newTarget()
	ok, err := bs.StepBack(tgt)
	assert.True(ok)
	assert.NoError(err)
	// Entries are applied newest first, so the oldest value wins.
	assert.Equal(int32(1), tgt.registers[register.BANK_GPR][8])
	assert.Equal(uint32(0xdead), tgt.memory[0x10010000])
	assert.Equal(uint32(0x400004), tgt.pc)
	assert.Equal(Engine{7}, tgt.engine)
	assert.Equal([]string{"register", "memory", "register", "step"}, tgt.order)

	ok, err = bs.StepBack(tgt)
	assert.True(ok)
	assert.NoError(err)
	assert.Equal(int32(0), tgt.registers[register.BANK_GPR][8])
	assert.Equal(uint32(0x400000), tgt.pc)

	ok, err = bs.StepBack(tgt)
	assert.False(ok)
	assert.NoError(err)
}

func TestStepper_OutsideStep(t *testing.T) {
	assert := assert.New(t)

	bs := New(10)
	bs.RecordRegister(register.BANK_GPR, 1, 5)
	assert.True(bs.Empty())

	bs.Begin(0x400000, Engine{})
	bs.End()
	bs.RecordRegister(register.BANK_GPR, 1, 5)
	step, ok := bs.Peek()
	assert.True(ok)
	assert.Empty(step.Entries)
}

func TestStepper_Disabled(t *testing.T) {
	assert := assert.New(t)

	bs := New(10)
	bs.Enabled = false
	bs.Begin(0x400000, Engine{})
	bs.RecordRegister(register.BANK_GPR, 1, 5)
	bs.End()
	assert.True(bs.Empty())
}

type recursive struct {
	*target
	bs *Stepper
}

func (r *recursive) RestoreRegister(bank register.Bank, number int, value int32) error {
	// A restore writes through the register model, which reports back.
	r.bs.RecordRegister(bank, number, 99)
	return r.target.RestoreRegister(bank, number, value)
}

func TestStepper_NoRecordWhileUndoing(t *testing.T) {
	assert := assert.New(t)

	bs := New(10)
	bs.Begin(0x400000, Engine{})
	bs.RecordRegister(register.BANK_GPR, 1, 5)
	bs.End()
	bs.Begin(0x400004, Engine{})
	bs.RecordRegister(register.BANK_GPR, 1, 6)
	bs.End()

	tgt := &recursive{target: newTarget(), bs: bs}
	ok, err := bs.StepBack(tgt)
	assert.True(ok)
	assert.NoError(err)

	step, ok := bs.Peek()
	assert.True(ok)
	assert.Equal([]Entry{{Action: ACTION_REGISTER, Bank: register.BANK_GPR, Number: 1, Value: 5}}, step.Entries)
}

func TestStepper_MaxDepth(t *testing.T) {
	assert := assert.New(t)

	bs := New(3)
	for n := range 5 {
		bs.Begin(uint32(0x400000+4*n), Engine{})
		bs.RecordRegister(register.BANK_GPR, 8, int32(n))
		bs.End()
	}
	assert.Equal(3, bs.Depth())

	tgt := newTarget()
	var pcs []uint32
	for {
		ok, err := bs.StepBack(tgt)
		assert.NoError(err)
		if !ok {
			break
		}
		pcs = append(pcs, tgt.pc)
	}
	assert.Equal([]uint32{0x400010, 0x40000c, 0x400008}, pcs)
	assert.Equal(int32(2), tgt.registers[register.BANK_GPR][8])

	bs.Begin(0, Engine{})
	bs.Begin(4, Engine{})
	bs.SetMaxDepth(1)
	assert.Equal(1, bs.Depth())
	assert.Equal(1, bs.MaxDepth())
	step, _ := bs.Peek()
	assert.Equal(uint32(4), step.PC)
}

func TestStepper_RestoreError(t *testing.T) {
	assert := assert.New(t)

	bs := New(10)
	bs.Begin(0x400000, Engine{})
	bs.RecordMemory(0x10010000, 4, 1)
	bs.RecordMemory(0x10010004, 4, 2)
	bs.End()

	tgt := newTarget()
	tgt.failAt = 0x10010004
	ok, err := bs.StepBack(tgt)
	assert.True(ok)
	assert.Error(err)
	// The remaining entries and the step marker are still applied.
	assert.Equal(uint32(1), tgt.memory[0x10010000])
	assert.Equal(uint32(0x400000), tgt.pc)
}

func TestStepper_Reset(t *testing.T) {
	assert := assert.New(t)

	bs := New(10)
	bs.Begin(0x400000, Engine{})
	bs.RecordRegister(register.BANK_GPR, 1, 5)
	bs.Reset()
	assert.True(bs.Empty())

	// The open step was discarded with the log.
	bs.RecordRegister(register.BANK_GPR, 1, 6)
	assert.True(bs.Empty())
}
