package brainfuck

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var ErrMaxInstructionExecutionCountReached error = fmt.Errorf("Instruction execution count limit reached")

type MachineConfig struct {
	MaxInstructionExecutionCount uint          `toml:"max_instructions" yaml:"max_instructions"`
	LoopCondition                LoopCondition `toml:"loop_condition" yaml:"loop_condition"`
	MemoryConfig                 *MemoryConfig `toml:"memory" yaml:"memory"`
}

// Machine interprets a program directly. It shares the compiled programs'
// semantics: byte cells with wraparound, the configured loop condition, and
// EOF on input leaving the current cell untouched.
type Machine struct {
	Tape             *Tape
	Memory           *Memory
	Config           *MachineConfig
	InstructionCount uint
	Input            io.ByteReader
	Output           io.Writer
}

func NewMachine(mc *MachineConfig) *Machine {
	return &Machine{
		Memory: NewMemoryFromConfig(mc.MemoryConfig),
		Config: mc,
		Output: io.Discard,
	}
}

// SetIO attaches the streams used by ',' and '.'. A nil reader reads as EOF.
func (m *Machine) SetIO(in io.Reader, out io.Writer) {
	m.Input = nil
	if in != nil {
		if br, ok := in.(io.ByteReader); ok {
			m.Input = br
		} else {
			m.Input = bufio.NewReader(in)
		}
	}
	m.Output = out
	if m.Output == nil {
		m.Output = io.Discard
	}
}

func (m *Machine) Reset() {
	if m.Tape != nil {
		m.Tape.Reset()
	}
	m.Memory.Reset()
	m.InstructionCount = 0
}

func (m *Machine) LoadProgram(src string) error {
	tape, err := NewTape(Scan(src))
	if err != nil {
		return err
	}
	m.Tape = tape
	m.Reset()
	return nil
}

func (m *Machine) ReadMemory(count uint) (bool, []uint8, error) {
	if count > uint(len(m.Memory.Cells)) {
		return false, []uint8{}, fmt.Errorf("Failed to read memory. Read count [%d] is greater than memory capacity [%d]", count, len(m.Memory.Cells))
	}
	return true, m.Memory.Cells[0:count], nil
}

func (m *Machine) Run() error {
	if m.Tape == nil {
		return fmt.Errorf("No program loaded")
	}
	for !m.Tape.Done() {
		if err := m.Step(); err != nil {
			return err
		}
		m.InstructionCount = m.InstructionCount + 1
		if m.Config.MaxInstructionExecutionCount > 0 && m.InstructionCount >= m.Config.MaxInstructionExecutionCount && !m.Tape.Done() {
			return ErrMaxInstructionExecutionCountReached
		}
	}
	return nil
}

// Step executes the instruction under the instruction pointer.
func (m *Machine) Step() error {
	in := m.Tape.Current()
	switch in.Op {
	case OP_INC:
		m.Memory.Increment()
	case OP_DEC:
		m.Memory.Decrement()
	case OP_POINTER_LEFT:
		if err := m.Memory.MovePointerLeft(); err != nil {
			return fmt.Errorf("OP_POINTER_LEFT at %s failed. %w", in.Pos, err)
		}
	case OP_POINTER_RIGHT:
		if err := m.Memory.MovePointerRight(); err != nil {
			return fmt.Errorf("OP_POINTER_RIGHT at %s failed. %w", in.Pos, err)
		}
	case OP_OUTPUT:
		if _, err := m.Output.Write([]byte{m.Memory.GetCurrentCell()}); err != nil {
			return fmt.Errorf("OP_OUTPUT at %s failed to write. %w", in.Pos, err)
		}
	case OP_INPUT:
		if m.Input != nil {
			b, err := m.Input.ReadByte()
			switch {
			case err == nil:
				m.Memory.SetCurrentCell(b)
			case !errors.Is(err, io.EOF):
				return fmt.Errorf("OP_INPUT at %s failed to read. %w", in.Pos, err)
			}
		}
	case OP_WHILE:
		if !m.Config.LoopCondition.Enter(m.Memory.GetCurrentCell()) {
			m.Tape.JumpToPartner()
		}
	case OP_WHILE_END:
		// Back to the '[' so the condition is tested again on the next step.
		m.Tape.JumpToPartner()
		return nil
	default:
		panic(fmt.Sprintf("Unknown OP [%s] encountered!", in.Op))
	}
	m.Tape.Advance()
	return nil
}
