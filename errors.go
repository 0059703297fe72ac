package bfasm

import (
	"errors"
	"fmt"

	bf "nickandperla.net/bfasm/brainfuck"
)

type ErrorKind byte

const (
	FormattingFailure ErrorKind = iota + 1
	BracketMismatch
	UnterminatedLoop
	UnsupportedInstruction
)

var (
	ErrFormattingFailure      = errors.New("formatting failure")
	ErrBracketMismatch        = errors.New("bracket mismatch")
	ErrUnterminatedLoop       = errors.New("unterminated loop")
	ErrUnsupportedInstruction = errors.New("unsupported instruction")
)

func (k ErrorKind) String() string {
	switch k {
	case FormattingFailure:
		return "FormattingFailure"
	case BracketMismatch:
		return "BracketMismatch"
	case UnterminatedLoop:
		return "UnterminatedLoop"
	case UnsupportedInstruction:
		return "UnsupportedInstruction"
	}
	return fmt.Sprintf("ErrorKind(%d)", byte(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case FormattingFailure:
		return ErrFormattingFailure
	case BracketMismatch:
		return ErrBracketMismatch
	case UnterminatedLoop:
		return ErrUnterminatedLoop
	case UnsupportedInstruction:
		return ErrUnsupportedInstruction
	}
	return nil
}

// TranslateError is the only error Translate returns. Whenever it is
// returned no assembly is produced.
type TranslateError struct {
	Kind ErrorKind
	Pos  bf.Position
	// Err is the underlying cause, set for FormattingFailure.
	Err error
}

func (e *TranslateError) Error() string {
	switch e.Kind {
	case BracketMismatch:
		return fmt.Sprintf("Bracket mismatch. Unmatched ']' at %s", e.Pos)
	case UnterminatedLoop:
		return fmt.Sprintf("Unterminated loop. '[' at %s is never closed", e.Pos)
	case UnsupportedInstruction:
		return fmt.Sprintf("Unsupported instruction. ',' at %s cannot be translated with input disabled", e.Pos)
	case FormattingFailure:
		return fmt.Sprintf("Failed to format assembly. %v", e.Err)
	}
	return e.Kind.String()
}

func (e *TranslateError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *TranslateError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a translation error anywhere in err's chain, or
// zero when err is not one.
func KindOf(err error) ErrorKind {
	var te *TranslateError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}
