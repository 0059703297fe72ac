package bfasm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Toolchain turns assembly into a running process.
type Toolchain interface {
	// Build assembles and links asm and returns the executable's path.
	Build(ctx context.Context, asm *Assembly) (string, error)
	// Execute runs exe and returns its exit status.
	Execute(ctx context.Context, exe string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
}

// ExternalToolchain shells out to an assembler and a linker, nasm and ld by
// default.
type ExternalToolchain struct {
	Config *ToolchainConfig
	Log    logrus.FieldLogger
}

func NewExternalToolchain(config *ToolchainConfig, log logrus.FieldLogger) *ExternalToolchain {
	return &ExternalToolchain{Config: config, Log: log}
}

// Check reports the first tool missing from PATH.
func (tc *ExternalToolchain) Check() error {
	for _, tool := range []string{tc.Config.Assembler, tc.Config.Linker} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("Toolchain program [%s] not found: %w", tool, err)
		}
	}
	return nil
}

func (tc *ExternalToolchain) Build(ctx context.Context, asm *Assembly) (string, error) {
	if err := os.MkdirAll(tc.Config.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("Failed to create work dir [%s]: %w", tc.Config.WorkDir, err)
	}

	asmPath := filepath.Join(tc.Config.WorkDir, "main.asm")
	objectPath := filepath.Join(tc.Config.WorkDir, "main.o")
	execPath := filepath.Join(tc.Config.WorkDir, "main")

	if err := asm.Save(asmPath); err != nil {
		return "", err
	}

	if err := tc.tool(ctx, tc.Config.Assembler, "-f", tc.Config.AssemblerFormat, "-o", objectPath, asmPath); err != nil {
		return "", err
	}
	if err := tc.tool(ctx, tc.Config.Linker, "-o", execPath, objectPath); err != nil {
		return "", err
	}
	return execPath, nil
}

// tool runs one build step and folds its output into the error.
func (tc *ExternalToolchain) tool(ctx context.Context, name string, args ...string) error {
	tc.Log.WithFields(logrus.Fields{"tool": name, "args": strings.Join(args, " ")}).Debug("Running toolchain step")

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("Toolchain step [%s] failed: %w", name, err)
		}
		return fmt.Errorf("Toolchain step [%s] failed: %w\n%s", name, err, msg)
	}
	return nil
}

func (tc *ExternalToolchain) Execute(ctx context.Context, exe string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, exe)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		// ExitCode is -1 when a signal killed the process.
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	if err != nil {
		return -1, fmt.Errorf("Failed to run [%s]: %w", exe, err)
	}
	return 0, nil
}

// Cleanup removes the work dir and everything built in it.
func (tc *ExternalToolchain) Cleanup() error {
	return os.RemoveAll(tc.Config.WorkDir)
}
