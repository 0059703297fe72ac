package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"nickandperla.net/bfasm"
)

func newCompileCommand() *cobra.Command {
	var (
		out  string
		jobs int
	)

	cmd := &cobra.Command{
		Use:   "compile SRC... [-o OUT]",
		Short: "compile brainf*ck programs to x86 assembly for linux",
		Long: "compile brainf*ck programs to x86 assembly for linux.\n" +
			"With a single SRC, -o names the output. Otherwise each SRC is written next to itself with an .asm extension.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" && len(args) > 1 {
				return fmt.Errorf("-o can only be used with a single source, got [%d]", len(args))
			}

			translator, err := newTranslator()
			if err != nil {
				return err
			}

			batch := make([]bfasm.CompileJob, len(args))
			for i, src := range args {
				batch[i] = bfasm.CompileJob{Src: src, Out: asmPath(src)}
			}
			if out != "" {
				batch[0].Out = out
			}

			compiler := bfasm.NewBatchCompiler(translator, jobs, log)
			results := compiler.Run(cmd.Context(), batch)

			persist := openHistory()
			failed := 0
			for _, r := range results {
				record(persist, r.Entry)
				if r.Err != nil {
					failed++
					log.Error(r.Err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("Failed to compile [%d] of [%d] sources", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output assembly file")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of files compiled at once")
	return cmd
}

// asmPath never returns src itself.
func asmPath(src string) string {
	if filepath.Ext(src) == ".asm" {
		return src + ".asm"
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".asm"
}
