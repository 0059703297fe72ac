package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"nickandperla.net/bfasm"
	bf "nickandperla.net/bfasm/brainfuck"
)

func newRunCommand() *cobra.Command {
	var interpret bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "compile, assemble, link, and run a brainf*ck program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("Unable to read source [%s]: %w", args[0], err)
			}

			var code int
			if interpret {
				code, err = interpretSource(string(src))
			} else {
				code, err = runSource(cmd.Context(), string(src))
			}
			if err != nil {
				return err
			}
			if code != 0 {
				atexit.Exit(code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&interpret, "interpret", false, "run with the built in interpreter instead of nasm and ld")
	return cmd
}

func runSource(ctx context.Context, src string) (int, error) {
	translator, err := newTranslator()
	if err != nil {
		return 0, err
	}
	toolchain, err := newToolchain()
	if err != nil {
		return 0, err
	}
	if err := toolchain.Check(); err != nil {
		return 0, err
	}

	entry := bfasm.NewCompilation("run", src)
	defer record(openHistory(), entry)

	asm, err := translator.Translate(src)
	entry.Translated(asm, err)
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if timeout := toolConfig.Toolchain.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	exe, err := toolchain.Build(ctx, asm)
	if err != nil {
		entry.Fail(bfasm.StatusBuildFailed, err)
		return 0, err
	}

	code, err := toolchain.Execute(ctx, exe, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		entry.Fail(bfasm.StatusRunFailed, err)
		return 0, err
	}
	entry.Exited(code)
	log.WithField("exit", code).Debug("Program finished")
	return code, nil
}

// interpretSource runs src on the interpreter configured like the translator.
// A cursor fault maps to the exit status the compiled program would use.
func interpretSource(src string) (int, error) {
	if _, err := newTranslator(); err != nil {
		return 0, err
	}

	machine := bf.NewMachine(toolConfig.Translator.MachineConfig(toolConfig.MaxInstructions))
	if err := machine.LoadProgram(src); err != nil {
		return 0, err
	}
	machine.SetIO(os.Stdin, os.Stdout)

	if err := machine.Run(); err != nil {
		if toolConfig.Translator.CursorPolicy == bf.CursorFail && bf.IsCursorFault(err) {
			log.WithError(err).Debug("Cursor fault")
			return bfasm.CursorFaultExitStatus, nil
		}
		return 0, err
	}
	log.WithField("instructions", machine.InstructionCount).Debug("Program finished")
	return 0, nil
}
