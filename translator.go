package bfasm

import (
	"bytes"
	"fmt"
	"io"

	bf "nickandperla.net/bfasm/brainfuck"
)

// MAX_TAPE_SIZE keeps the tape frame well inside the default stack limit and
// every offset inside a 32 bit immediate.
const MAX_TAPE_SIZE uint = 1 << 20

// Translator turns Brainfuck into NASM assembly for x86-64 Linux.
//
// The emitted program keeps the cursor in rax and caches the current cell in
// bl. Only moves and I/O touch the tape: bl is flushed to the old cell before
// the cursor changes and reloaded from the new cell right after. Cell i lives
// at [rbp + rax - frame] with rax = i, below the 16 reserved bytes whose top
// eight hold rax across syscalls.
//
// A Translator holds no state between calls and is safe for concurrent use.
type Translator struct {
	Config *TranslatorConfig
	frame  uint
}

func NewTranslator(config *TranslatorConfig) (*Translator, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.TapeSize > MAX_TAPE_SIZE {
		return nil, fmt.Errorf("Tape size [%d] is greater than the maximum [%d]", config.TapeSize, MAX_TAPE_SIZE)
	}
	return &Translator{
		Config: config,
		frame:  config.TapeSize + ReservedFrameSize,
	}, nil
}

// Translate compiles src with the default configuration.
func Translate(src string) (*Assembly, error) {
	t, err := NewTranslator(DefaultTranslatorConfig())
	if err != nil {
		return nil, err
	}
	return t.Translate(src)
}

func (t *Translator) Translate(src string) (*Assembly, error) {
	var buf bytes.Buffer
	ins := bf.Scan(src)
	labels, err := t.translateTo(&buf, ins)
	if err != nil {
		return nil, err
	}
	return &Assembly{
		Text:         buf.String(),
		Labels:       labels,
		Instructions: len(ins),
		TapeSize:     t.Config.TapeSize,
	}, nil
}

type openLoop struct {
	label int
	pos   bf.Position
}

// translateTo emits the whole program in one pass and returns the number of
// label pairs allocated.
func (t *Translator) translateTo(w io.Writer, ins []bf.Instruction) (int, error) {
	e := &emitter{w: w}
	nextLabel := 0
	scopeStack := make([]openLoop, 0, 16)

	t.prologue(e)

	for _, in := range ins {
		switch in.Op {
		case bf.OP_INC:
			e.op("inc bl")
		case bf.OP_DEC:
			e.op("dec bl")
		case bf.OP_POINTER_LEFT, bf.OP_POINTER_RIGHT:
			e.op("mov byte %s, bl", t.cell())
			t.moveCursor(e, in.Op == bf.OP_POINTER_RIGHT)
			e.op("mov bl, byte %s", t.cell())
		case bf.OP_OUTPUT:
			t.syscallOnCell(e, sysWrite, stdout)
		case bf.OP_INPUT:
			if t.Config.InputPolicy == InputReject {
				return 0, &TranslateError{Kind: UnsupportedInstruction, Pos: in.Pos}
			}
			t.syscallOnCell(e, sysRead, stdin)
			e.op("mov bl, byte %s", t.cell())
		case bf.OP_WHILE:
			scopeStack = append(scopeStack, openLoop{label: nextLabel, pos: in.Pos})
			e.label("entry_%d", nextLabel)
			e.op("cmp bl, 0")
			if t.Config.LoopCondition == bf.LoopNonZero {
				e.op("je exit_%d", nextLabel)
			} else {
				e.op("jle exit_%d", nextLabel)
			}
			nextLabel++
		case bf.OP_WHILE_END:
			if len(scopeStack) == 0 {
				return 0, &TranslateError{Kind: BracketMismatch, Pos: in.Pos}
			}
			top := scopeStack[len(scopeStack)-1]
			scopeStack = scopeStack[:len(scopeStack)-1]
			e.op("jmp entry_%d", top.label)
			e.label("exit_%d", top.label)
		}
	}

	if len(scopeStack) > 0 {
		return 0, &TranslateError{Kind: UnterminatedLoop, Pos: scopeStack[0].pos}
	}

	t.epilogue(e)

	if e.err != nil {
		return 0, &TranslateError{Kind: FormattingFailure, Err: e.err}
	}
	return nextLabel, nil
}

func (t *Translator) cell() string {
	return fmt.Sprintf("[rbp + rax - %d]", t.frame)
}

func (t *Translator) prologue(e *emitter) {
	e.line("global _start")
	e.line("section .text")
	e.label("_start")
	e.op("mov rbp, rsp")
	e.op("sub rsp, %d", t.frame)

	// Zero the frame downwards from rbp in aligned 16 byte chunks.
	e.op("pxor xmm0, xmm0")
	e.op("mov rax, -%d", ZeroChunkSize)
	e.label("init_zero_loop")
	e.op("movdqa [rbp + rax], xmm0")
	e.op("sub rax, %d", ZeroChunkSize)
	e.op("cmp rax, -%d", t.frame)
	e.op("jge init_zero_loop")

	e.op("mov rax, 0")
	e.op("mov rbx, 0")
}

func (t *Translator) epilogue(e *emitter) {
	e.op("mov rax, %d", sysExit)
	e.op("mov rdi, 0")
	e.op("syscall")

	if t.Config.CursorPolicy == bf.CursorFail {
		e.label("cursor_fault")
		e.op("mov rax, %d", sysExit)
		e.op("mov rdi, %d", CursorFaultExitStatus)
		e.op("syscall")
	}
}

func (t *Translator) moveCursor(e *emitter, right bool) {
	if right {
		e.op("inc rax")
	} else {
		e.op("dec rax")
	}

	switch t.Config.CursorPolicy {
	case bf.CursorWrap:
		if right {
			e.op("mov rcx, 0")
			e.op("cmp rax, %d", t.Config.TapeSize)
		} else {
			e.op("mov rcx, %d", t.Config.TapeSize-1)
			e.op("cmp rax, -1")
		}
		e.op("cmove rax, rcx")
	case bf.CursorFail:
		// Unsigned compare also catches a cursor that went negative.
		e.op("cmp rax, %d", t.Config.TapeSize)
		e.op("jae cursor_fault")
	}
}

// syscallOnCell flushes bl and makes a one byte read or write syscall on the
// current cell. rax is parked in the save slot across the call.
func (t *Translator) syscallOnCell(e *emitter, number, fd int) {
	e.op("mov byte %s, bl", t.cell())
	e.op("lea rsi, %s", t.cell())
	e.op("mov qword [rbp - %d], rax", SaveSlotSize)
	e.op("mov rax, %d", number)
	e.op("mov rdi, %d", fd)
	e.op("mov rdx, 1")
	e.op("syscall")
	e.op("mov rax, qword [rbp - %d]", SaveSlotSize)
}

// emitter writes assembly lines and keeps the first write error.
type emitter struct {
	w   io.Writer
	err error
}

func (e *emitter) line(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}

func (e *emitter) label(format string, args ...any) {
	e.line(format+":", args...)
}

func (e *emitter) op(format string, args ...any) {
	e.line("    "+format, args...)
}
