package brainfuck

import (
	"fmt"
)

// CursorPolicy decides what happens when the cursor is moved past either end
// of the tape.
type CursorPolicy string

const (
	// Unchecked never tests the cursor. Compiled programs overrun the tape;
	// the interpreter treats it like Fail since it cannot overrun.
	CursorUnchecked CursorPolicy = "unchecked"
	// Wrap moves the cursor modulo the tape size.
	CursorWrap CursorPolicy = "wrap"
	// Fail stops the program.
	CursorFail CursorPolicy = "fail"
)

func (p CursorPolicy) Validate() error {
	switch p {
	case CursorUnchecked, CursorWrap, CursorFail:
		return nil
	}
	return fmt.Errorf("Unknown cursor policy [%s]. Expected one of [%s, %s, %s]", string(p), CursorUnchecked, CursorWrap, CursorFail)
}

// LoopCondition decides when the body of a loop is entered.
type LoopCondition string

const (
	// LoopPositive enters while the cell, read as a signed byte, is > 0.
	LoopPositive LoopCondition = "positive"
	// LoopNonZero enters while the cell is not zero.
	LoopNonZero LoopCondition = "nonzero"
)

func (c LoopCondition) Validate() error {
	switch c {
	case LoopPositive, LoopNonZero:
		return nil
	}
	return fmt.Errorf("Unknown loop condition [%s]. Expected one of [%s, %s]", string(c), LoopPositive, LoopNonZero)
}

// Enter reports whether a loop is entered (or repeated) for the cell value v.
func (c LoopCondition) Enter(v uint8) bool {
	if c == LoopNonZero {
		return v != 0
	}
	return int8(v) > 0
}
