package brainfuck

import (
	"fmt"
)

// MismatchError reports the first bracket that has no partner. Open is true
// for a '[' left open at the end of the program.
type MismatchError struct {
	Pos  Position
	Open bool
}

func (e *MismatchError) Error() string {
	if e.Open {
		return fmt.Sprintf("Unterminated loop. '[' at %s is never closed", e.Pos)
	}
	return fmt.Sprintf("Bracket mismatch. Unmatched ']' at %s", e.Pos)
}

// Tape is a program loaded for execution: the instruction stream, the
// instruction pointer, and the precomputed partner of every bracket.
type Tape struct {
	Instructions       []Instruction
	InstructionPointer int
	Jumps              []int
}

func NewTape(instructions []Instruction) (*Tape, error) {
	jumps, err := MatchBrackets(instructions)
	if err != nil {
		return nil, err
	}
	return &Tape{
		Instructions:       instructions,
		InstructionPointer: 0,
		Jumps:              jumps,
	}, nil
}

// MatchBrackets pairs every '[' with its ']' through a while stack. The
// returned slice holds the partner index of each bracket and -1 elsewhere.
func MatchBrackets(instructions []Instruction) ([]int, error) {
	jumps := make([]int, len(instructions))
	whileIndexStack := make([]int, 0, 16)
	for i, in := range instructions {
		jumps[i] = -1
		switch in.Op {
		case OP_WHILE:
			whileIndexStack = append(whileIndexStack, i)
		case OP_WHILE_END:
			if len(whileIndexStack) == 0 {
				return nil, &MismatchError{Pos: in.Pos}
			}
			start := whileIndexStack[len(whileIndexStack)-1]
			whileIndexStack = whileIndexStack[:len(whileIndexStack)-1]
			jumps[start] = i
			jumps[i] = start
		}
	}
	if len(whileIndexStack) > 0 {
		return nil, &MismatchError{Pos: instructions[whileIndexStack[0]].Pos, Open: true}
	}
	return jumps, nil
}

func (t *Tape) Reset() {
	t.InstructionPointer = 0
}

func (t *Tape) Done() bool {
	return t.InstructionPointer >= len(t.Instructions)
}

func (t *Tape) Current() Instruction {
	return t.Instructions[t.InstructionPointer]
}

func (t *Tape) Advance() {
	t.InstructionPointer = t.InstructionPointer + 1
}

// JumpToPartner moves the instruction pointer onto the matching bracket.
func (t *Tape) JumpToPartner() {
	t.InstructionPointer = t.Jumps[t.InstructionPointer]
}
