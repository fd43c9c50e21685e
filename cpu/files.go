package cpu

import (
	"io"
	"log"

	"github.com/ezrec/mipsim/register"
)

// fileSyscall performs open, read, write or close on the descriptor
// table. Failures of the operation itself are reported to the program
// as -1 in $v0; faults on the buffer address stop execution.
func (cpu *Cpu) fileSyscall(code int32, a0 int32) (err error) {
	a1 := cpu.gpr(register.REG_A1)
	a2 := cpu.gpr(register.REG_A2)

	files := cpu.Files
	files.Verbose = cpu.Verbose
	files.Stdout = cpu.Stdout
	files.Stderr = cpu.Stderr
	files.Stdin = nil
	if cpu.stdin != nil {
		files.Stdin = cpu.stdin
	}

	var result int
	var ferr error

	switch code {
	case SYSCALL_OPEN:
		var name string
		name, err = cpu.cString(uint32(a0))
		if err != nil {
			return
		}
		result, ferr = files.Open(name, int(a1))
	case SYSCALL_READ:
		buf := make([]byte, max(a2, 0))
		result, ferr = files.Read(int(a0), buf)
		for n := range result {
			err = cpu.store(uint32(a1)+uint32(n), 1, uint32(buf[n]))
			if err != nil {
				return
			}
		}
	case SYSCALL_WRITE:
		buf := make([]byte, max(a2, 0))
		for n := range buf {
			var ch uint32
			ch, err = cpu.load(uint32(a1)+uint32(n), 1)
			if err != nil {
				return
			}
			buf[n] = byte(ch)
		}
		result, ferr = files.Write(int(a0), buf)
	case SYSCALL_CLOSE:
		ferr = files.Close(int(a0))
	}

	if ferr != nil && ferr != io.EOF {
		if cpu.Verbose {
			log.Printf("cpu: syscall %d: %v", code, ferr)
		}
		result = -1
	}

	if code != SYSCALL_CLOSE {
		cpu.setGpr(register.REG_V0, int32(result))
	}

	return
}
