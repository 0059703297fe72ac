package bfasm

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// emulator executes the small x86-64 subset the translator emits, so output
// bytes and exit status can be checked without nasm and ld. Memory that was
// never written reads as 0xAA to catch a missing zeroing pass.
type emulator struct {
	regs    map[string]int64
	mem     map[int64]byte
	prog    []emuLine
	labels  map[string]int
	pc      int
	in      []byte
	out     bytes.Buffer
	exited  bool
	status  int64
	steps   int
	limit   int
	cmpA    int64
	cmpB    int64
	cmpByte bool
}

type emuLine struct {
	op   string
	args []string
	text string
}

const emuStackTop int64 = 0x7fff0000

func newEmulator(asm string, input []byte) (*emulator, error) {
	e := &emulator{
		regs:   map[string]int64{"rsp": emuStackTop},
		mem:    map[int64]byte{},
		labels: map[string]int{},
		in:     input,
		limit:  5000000,
	}
	for _, raw := range strings.Split(asm, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "", strings.HasPrefix(line, "global "), strings.HasPrefix(line, "section "):
			continue
		case strings.HasSuffix(line, ":"):
			name := strings.TrimSuffix(line, ":")
			if _, dup := e.labels[name]; dup {
				return nil, fmt.Errorf("duplicate label %q", name)
			}
			e.labels[name] = len(e.prog)
			continue
		}
		op, rest, _ := strings.Cut(line, " ")
		var args []string
		if rest != "" {
			args = strings.Split(rest, ", ")
		}
		e.prog = append(e.prog, emuLine{op: op, args: args, text: line})
	}
	start, ok := e.labels["_start"]
	if !ok {
		return nil, fmt.Errorf("no _start label")
	}
	e.pc = start
	return e, nil
}

func (e *emulator) run() error {
	for !e.exited {
		if e.pc >= len(e.prog) {
			return fmt.Errorf("fell off the end of the program")
		}
		e.steps++
		if e.steps > e.limit {
			return fmt.Errorf("step limit reached")
		}
		l := e.prog[e.pc]
		e.pc++
		if err := e.exec(l); err != nil {
			return fmt.Errorf("%q: %w", l.text, err)
		}
	}
	return nil
}

func (e *emulator) read(addr int64) byte {
	if b, ok := e.mem[addr]; ok {
		return b
	}
	return 0xAA
}

func (e *emulator) readQword(addr int64) int64 {
	var v uint64
	for i := int64(7); i >= 0; i-- {
		v = v<<8 | uint64(e.read(addr+i))
	}
	return int64(v)
}

func (e *emulator) writeQword(addr, v int64) {
	for i := int64(0); i < 8; i++ {
		e.mem[addr+i] = byte(uint64(v) >> (8 * i))
	}
}

// address evaluates "[reg + reg - imm]" style operands with an optional size
// prefix.
func (e *emulator) address(operand string) (int64, error) {
	operand = strings.TrimPrefix(strings.TrimPrefix(operand, "byte "), "qword ")
	if !strings.HasPrefix(operand, "[") || !strings.HasSuffix(operand, "]") {
		return 0, fmt.Errorf("not a memory operand %q", operand)
	}
	var addr int64
	sign := int64(1)
	for _, tok := range strings.Fields(operand[1 : len(operand)-1]) {
		switch tok {
		case "+":
			sign = 1
		case "-":
			sign = -1
		default:
			v, err := e.value(tok)
			if err != nil {
				return 0, err
			}
			addr += sign * v
		}
	}
	return addr, nil
}

func (e *emulator) value(operand string) (int64, error) {
	if operand == "bl" {
		return e.regs["rbx"] & 0xff, nil
	}
	if v, err := strconv.ParseInt(operand, 10, 64); err == nil {
		return v, nil
	}
	if _, ok := map[string]bool{"rax": true, "rbx": true, "rcx": true, "rdx": true, "rsi": true, "rdi": true, "rbp": true, "rsp": true}[operand]; ok {
		return e.regs[operand], nil
	}
	return 0, fmt.Errorf("unknown operand %q", operand)
}

func (e *emulator) setBL(v int64) {
	e.regs["rbx"] = e.regs["rbx"]&^0xff | v&0xff
}

func (e *emulator) jump(label string) error {
	target, ok := e.labels[label]
	if !ok {
		return fmt.Errorf("unknown label %q", label)
	}
	e.pc = target
	return nil
}

func (e *emulator) exec(l emuLine) error {
	a := l.args
	switch l.op {
	case "mov":
		dst, src := a[0], a[1]
		switch {
		case strings.HasPrefix(dst, "byte "):
			addr, err := e.address(dst)
			if err != nil {
				return err
			}
			v, err := e.value(src)
			if err != nil {
				return err
			}
			e.mem[addr] = byte(v)
		case strings.HasPrefix(dst, "qword "):
			addr, err := e.address(dst)
			if err != nil {
				return err
			}
			v, err := e.value(src)
			if err != nil {
				return err
			}
			e.writeQword(addr, v)
		case dst == "bl":
			addr, err := e.address(src)
			if err != nil {
				return err
			}
			e.setBL(int64(e.read(addr)))
		case strings.HasPrefix(src, "qword "):
			addr, err := e.address(src)
			if err != nil {
				return err
			}
			e.regs[dst] = e.readQword(addr)
		default:
			v, err := e.value(src)
			if err != nil {
				return err
			}
			e.regs[dst] = v
		}
	case "lea":
		addr, err := e.address(a[1])
		if err != nil {
			return err
		}
		e.regs[a[0]] = addr
	case "inc", "dec":
		step := int64(1)
		if l.op == "dec" {
			step = -1
		}
		if a[0] == "bl" {
			e.setBL(e.regs["rbx"] + step)
		} else {
			e.regs[a[0]] += step
		}
	case "sub":
		v, err := e.value(a[1])
		if err != nil {
			return err
		}
		e.regs[a[0]] -= v
	case "cmp":
		v, err := e.value(a[1])
		if err != nil {
			return err
		}
		e.cmpByte = a[0] == "bl"
		if e.cmpByte {
			e.cmpA = int64(int8(e.regs["rbx"]))
			e.cmpB = int64(int8(v))
		} else {
			e.cmpA = e.regs[a[0]]
			e.cmpB = v
		}
	case "je":
		if e.cmpA == e.cmpB {
			return e.jump(a[0])
		}
	case "jle":
		if e.cmpA <= e.cmpB {
			return e.jump(a[0])
		}
	case "jge":
		if e.cmpA >= e.cmpB {
			return e.jump(a[0])
		}
	case "jae":
		ua, ub := uint64(e.cmpA), uint64(e.cmpB)
		if e.cmpByte {
			ua, ub = uint64(uint8(e.cmpA)), uint64(uint8(e.cmpB))
		}
		if ua >= ub {
			return e.jump(a[0])
		}
	case "jmp":
		return e.jump(a[0])
	case "cmove":
		if e.cmpA == e.cmpB {
			e.regs[a[0]] = e.regs[a[1]]
		}
	case "pxor":
		// xmm0 is only ever used as zero.
	case "movdqa":
		addr, err := e.address(a[0])
		if err != nil {
			return err
		}
		if addr%16 != 0 {
			return fmt.Errorf("unaligned movdqa at %#x", addr)
		}
		for i := int64(0); i < 16; i++ {
			e.mem[addr+i] = 0
		}
	case "syscall":
		return e.syscall()
	default:
		return fmt.Errorf("unsupported instruction")
	}
	return nil
}

func (e *emulator) syscall() error {
	switch e.regs["rax"] {
	case sysWrite:
		if e.regs["rdi"] != stdout {
			return fmt.Errorf("write to fd %d", e.regs["rdi"])
		}
		for i := int64(0); i < e.regs["rdx"]; i++ {
			e.out.WriteByte(e.read(e.regs["rsi"] + i))
		}
		e.regs["rax"] = e.regs["rdx"]
	case sysRead:
		if e.regs["rdi"] != stdin {
			return fmt.Errorf("read from fd %d", e.regs["rdi"])
		}
		if len(e.in) == 0 {
			e.regs["rax"] = 0
			break
		}
		e.mem[e.regs["rsi"]] = e.in[0]
		e.in = e.in[1:]
		e.regs["rax"] = 1
	case sysExit:
		e.exited = true
		e.status = e.regs["rdi"]
	default:
		return fmt.Errorf("unknown syscall %d", e.regs["rax"])
	}
	// The kernel clobbers rcx and r11.
	e.regs["rcx"] = -1
	return nil
}

// emulate runs asm to completion and returns what it wrote and its exit status.
func emulate(asm string, input []byte) ([]byte, int64, error) {
	e, err := newEmulator(asm, input)
	if err != nil {
		return nil, 0, err
	}
	if err := e.run(); err != nil {
		return e.out.Bytes(), 0, err
	}
	return e.out.Bytes(), e.status, nil
}
