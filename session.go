package bfasm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xrash/smetrics"
)

const PROMPT = ">> "

// HistoryRecorder stores what the REPL evaluated. *Persistence satisfies it.
type HistoryRecorder interface {
	Record(c *Compilation) (uint, error)
	Recent(limit int) ([]*Compilation, error)
}

// Session is the interactive loop: read a line, translate it, build it, run
// it. A line that fails at any stage is reported and the loop goes on.
type Session struct {
	Translator   *Translator
	Toolchain    Toolchain
	History      HistoryRecorder
	Console      LineReader
	Stdin        io.Reader
	Out          io.Writer
	Log          logrus.FieldLogger
	Timeout      time.Duration
	ShowAssembly bool
}

func NewSession(translator *Translator, toolchain Toolchain, console LineReader, out io.Writer, log logrus.FieldLogger) *Session {
	return &Session{
		Translator: translator,
		Toolchain:  toolchain,
		Console:    console,
		Out:        out,
		Log:        log,
	}
}

type metaCommand struct {
	name string
	help string
	run  func(s *Session, args []string) bool
}

var metaCommands []metaCommand

func init() {
	metaCommands = []metaCommand{
		{":quit", "leave the REPL (also :q or any line starting with q)", func(*Session, []string) bool { return true }},
		{":asm", "toggle printing the generated assembly", (*Session).toggleAssembly},
		{":history", "list recent programs, :history N for more", (*Session).showHistory},
		{":help", "show this help", (*Session).showHelp},
	}
}

// Run loops until the input ends, a quit command is read, or ctx is done.
func (s *Session) Run(ctx context.Context) error {
FOR:
	for {
		select {
		case <-ctx.Done():
			break FOR
		default:
		}

		line, err := s.Console.Prompt(PROMPT)
		if errors.Is(err, io.EOF) {
			break FOR
		}
		if err != nil {
			return fmt.Errorf("Failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.Console.AppendHistory(line)

		if s.handle(ctx, line) {
			break FOR
		}
	}
	s.Log.Debug("Closing session")
	return nil
}

// handle processes one line and reports whether the session should end.
func (s *Session) handle(ctx context.Context, line string) bool {
	if line[0] == 'q' {
		return true
	}
	if line[0] == ':' {
		return s.meta(line)
	}

	code, err := s.Eval(ctx, line)
	if err != nil {
		s.Log.WithError(err).Debug("Evaluation failed")
		fmt.Fprintf(s.Out, "error: %v\n", err)
		return false
	}
	if code != 0 {
		fmt.Fprintf(s.Out, "exit status %d\n", code)
	}
	return false
}

// Eval translates, builds, and runs src, and returns the program's exit
// status.
func (s *Session) Eval(ctx context.Context, src string) (int, error) {
	entry := NewCompilation("repl", src)
	defer s.record(entry)

	asm, err := s.Translator.Translate(src)
	entry.Translated(asm, err)
	if err != nil {
		return 0, err
	}

	if s.ShowAssembly {
		fmt.Fprint(s.Out, asm.Text)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	exe, err := s.Toolchain.Build(ctx, asm)
	if err != nil {
		entry.Fail(StatusBuildFailed, err)
		return 0, err
	}

	code, err := s.Toolchain.Execute(ctx, exe, s.Stdin, s.Out, s.Out)
	if err != nil {
		entry.Fail(StatusRunFailed, err)
		return 0, err
	}
	entry.Exited(code)
	s.Log.WithFields(logrus.Fields{"labels": asm.Labels, "instructions": asm.Instructions, "exit": code}).Debug("Program ran")
	return code, nil
}

func (s *Session) record(entry *Compilation) {
	if s.History == nil {
		return
	}
	if _, err := s.History.Record(entry); err != nil {
		s.Log.WithError(err).Warn("Failed to record history")
	}
}

func (s *Session) meta(line string) bool {
	fields := strings.Fields(line)
	name := fields[0]
	if name == ":q" {
		name = ":quit"
	}
	for _, mc := range metaCommands {
		if mc.name == name {
			return mc.run(s, fields[1:])
		}
	}

	if guess := SuggestCommand(name); guess != "" {
		fmt.Fprintf(s.Out, "Unknown command [%s]. Did you mean [%s]?\n", name, guess)
	} else {
		fmt.Fprintf(s.Out, "Unknown command [%s]. Try :help\n", name)
	}
	return false
}

// SuggestCommand returns the meta-command closest to name, or "" when none
// is close enough.
func SuggestCommand(name string) string {
	best, bestScore := "", 0.0
	for _, mc := range metaCommands {
		score := smetrics.JaroWinkler(name, mc.name, 0.7, 4)
		if score > bestScore {
			best, bestScore = mc.name, score
		}
	}
	if bestScore < 0.8 {
		return ""
	}
	return best
}

func (s *Session) toggleAssembly(args []string) bool {
	s.ShowAssembly = !s.ShowAssembly
	fmt.Fprintf(s.Out, "assembly output %s\n", map[bool]string{true: "on", false: "off"}[s.ShowAssembly])
	return false
}

func (s *Session) showHistory(args []string) bool {
	if s.History == nil {
		fmt.Fprintln(s.Out, "history is disabled")
		return false
	}
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintf(s.Out, "Invalid history count [%s]\n", args[0])
			return false
		}
		limit = n
	}
	entries, err := s.History.Recent(limit)
	if err != nil {
		fmt.Fprintf(s.Out, "error: %v\n", err)
		return false
	}
	RenderHistory(s.Out, entries)
	return false
}

func (s *Session) showHelp(args []string) bool {
	for _, mc := range metaCommands {
		fmt.Fprintf(s.Out, "  %-10s %s\n", mc.name, mc.help)
	}
	return false
}
