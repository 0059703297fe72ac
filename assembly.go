package bfasm

import (
	"fmt"
	"io"
	"os"
)

// Assembly is the NASM source of one translated program.
type Assembly struct {
	Text         string
	Labels       int
	Instructions int
	TapeSize     uint
}

func (a *Assembly) String() string {
	return a.Text
}

func (a *Assembly) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, a.Text)
	return int64(n), err
}

// Save writes the assembly verbatim to path.
func (a *Assembly) Save(path string) error {
	if err := os.WriteFile(path, []byte(a.Text), 0o644); err != nil {
		return fmt.Errorf("Failed to write assembly to [%s]: %w", path, err)
	}
	return nil
}
