package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"nickandperla.net/bfasm"
)

func newReplCommand() *cobra.Command {
	var showAsm bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "enter a repl, only works if you have \"nasm\" and \"ld\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return repl(cmd.Context(), showAsm)
		},
	}
	cmd.Flags().BoolVar(&showAsm, "asm", false, "print the generated assembly before running it")
	return cmd
}

func repl(ctx context.Context, showAsm bool) error {
	translator, err := newTranslator()
	if err != nil {
		return err
	}

	toolchain, err := newToolchain()
	if err != nil {
		return err
	}
	if err := toolchain.Check(); err != nil {
		return err
	}

	var console bfasm.LineReader
	interactive := bfasm.Interactive()
	if interactive {
		console = bfasm.NewLinerConsole()
	} else {
		console = bfasm.NewScannerConsole(os.Stdin, os.Stdout)
	}
	defer console.Close()

	session := bfasm.NewSession(translator, toolchain, console, os.Stdout, log)
	session.Timeout = toolConfig.Toolchain.Timeout
	session.ShowAssembly = showAsm
	if interactive {
		// Programs only read stdin when the console is not scanning it.
		session.Stdin = os.Stdin
	}
	if persist := openHistory(); persist != nil {
		session.History = persist
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if interactive {
		fmt.Println("bfasm repl, :help for commands, q to quit")
	}
	return session.Run(ctx)
}
