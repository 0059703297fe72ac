package brainfuck

import (
	"fmt"
)

// The eight OPs of Brainfuck. Every other byte in a source file is a comment
// and is dropped by Scan before anything downstream sees it, so comments can
// never shift loop numbering or emitted code.

//  v
// [0][0][0][0][0][0][0][0][0][0]
// ++>+++[-<+>]<.
// Two, move right, three, add the right cell into the left one, print 5

type OP byte

const (
	OP_POINTER_LEFT  = OP('<')
	OP_POINTER_RIGHT = OP('>')
	OP_INC           = OP('+')
	OP_DEC           = OP('-')
	OP_WHILE         = OP('[')
	OP_WHILE_END     = OP(']')
	OP_OUTPUT        = OP('.')
	OP_INPUT         = OP(',')
)

var OP_SET [8]OP = [...]OP{
	OP_POINTER_LEFT,
	OP_POINTER_RIGHT,
	OP_INC,
	OP_DEC,
	OP_WHILE,
	OP_WHILE_END,
	OP_OUTPUT,
	OP_INPUT,
}

func IsOP(b byte) bool {
	switch OP(b) {
	case OP_POINTER_LEFT, OP_POINTER_RIGHT, OP_INC, OP_DEC, OP_WHILE, OP_WHILE_END, OP_OUTPUT, OP_INPUT:
		return true
	}
	return false
}

func (o OP) String() string {
	return string(rune(o))
}

// Position locates an instruction in its source text. Line and Column are
// 1-based, Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line [%d] column [%d]", p.Line, p.Column)
}

type Instruction struct {
	Op  OP
	Pos Position
}

// Scan turns source text into the instruction stream, skipping comments.
func Scan(src string) []Instruction {
	ins := make([]Instruction, 0, len(src))
	line, col := 1, 0
	for i := 0; i < len(src); i++ {
		b := src[i]
		col++
		if b == '\n' {
			line++
			col = 0
			continue
		}
		if IsOP(b) {
			ins = append(ins, Instruction{Op: OP(b), Pos: Position{Offset: i, Line: line, Column: col}})
		}
	}
	return ins
}

// Ops strips positions from an instruction stream.
func Ops(ins []Instruction) []OP {
	ops := make([]OP, len(ins))
	for i, in := range ins {
		ops[i] = in.Op
	}
	return ops
}
