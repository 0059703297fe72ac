package brainfuck

import (
	"errors"
	"fmt"
)

type MemoryConfig struct {
	CellCount    uint         `toml:"cell_count" yaml:"cell_count"`
	CursorPolicy CursorPolicy `toml:"cursor_policy" yaml:"cursor_policy"`
}

// Memory is the data tape. Cells are bytes and wrap silently on overflow.
type Memory struct {
	Cells         []uint8
	MemoryPointer int
	MemoryConfig  *MemoryConfig
}

func NewMemoryFromConfig(mc *MemoryConfig) *Memory {
	return &Memory{
		Cells:         make([]uint8, mc.CellCount),
		MemoryPointer: 0,
		MemoryConfig:  mc,
	}
}

func (m *Memory) Reset() {
	for i := 0; i < len(m.Cells); i++ {
		m.Cells[i] = 0
	}
	m.MemoryPointer = 0
}

func (m *Memory) GetCurrentCell() uint8 {
	return m.Cells[m.MemoryPointer]
}

func (m *Memory) SetCurrentCell(v uint8) {
	m.Cells[m.MemoryPointer] = v
}

func (m *Memory) Increment() {
	m.Cells[m.MemoryPointer]++
}

func (m *Memory) Decrement() {
	m.Cells[m.MemoryPointer]--
}

func (m *Memory) MovePointerLeft() error {
	return m.move(-1)
}

func (m *Memory) MovePointerRight() error {
	return m.move(1)
}

func (m *Memory) move(step int) error {
	next := m.MemoryPointer + step
	if next >= 0 && next < len(m.Cells) {
		m.MemoryPointer = next
		return nil
	}
	if m.MemoryConfig.CursorPolicy == CursorWrap {
		m.MemoryPointer = (next + len(m.Cells)) % len(m.Cells)
		return nil
	}
	direction := "right"
	if step < 0 {
		direction = "left"
	}
	return &CursorFaultError{Pointer: m.MemoryPointer, Direction: direction, Length: len(m.Cells)}
}

// CursorFaultError is returned when the cursor would leave the tape and the
// policy does not wrap it.
type CursorFaultError struct {
	Pointer   int
	Direction string
	Length    int
}

func (e *CursorFaultError) Error() string {
	return fmt.Sprintf("Failed to move memory pointer [%d] %s. Out of bounds (Memory length: [%d])", e.Pointer, e.Direction, e.Length)
}

func IsCursorFault(err error) bool {
	var fault *CursorFaultError
	return errors.As(err, &fault)
}
