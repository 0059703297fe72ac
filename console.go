package bfasm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

// LineReader is where the REPL gets its input lines from. Prompt returns
// io.EOF when no more input will come.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// Interactive reports whether stdin and stdout are both terminals.
func Interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// NewLinerConsole edits lines on the terminal with history and Ctrl-C to quit.
func NewLinerConsole() LineReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &linerConsole{state: state}
}

type linerConsole struct {
	state *liner.State
}

func (c *linerConsole) Prompt(prompt string) (string, error) {
	line, err := c.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	return line, err
}

func (c *linerConsole) AppendHistory(line string) {
	c.state.AppendHistory(line)
}

func (c *linerConsole) Close() error {
	return c.state.Close()
}

type scannerConsole struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewScannerConsole(in io.Reader, out io.Writer) LineReader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &scannerConsole{scanner: scanner, out: out}
}

func (c *scannerConsole) Prompt(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.scanner.Text(), nil
}

func (c *scannerConsole) AppendHistory(string) {}

func (c *scannerConsole) Close() error {
	return nil
}
