package main

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"nickandperla.net/bfasm"
	bf "nickandperla.net/bfasm/brainfuck"
)

var (
	configPath  string
	logLevel    string
	historyDir  string
	profileMode string

	tapeSize      uint
	cursorPolicy  string
	inputPolicy   string
	loopCondition string

	toolConfig *bfasm.ToolConfig
	log        *logrus.Logger
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "bfasm",
		Short:             "Compile brainf*ck programs to x86-64 assembly for Linux",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "tool config file (.toml, .yaml or .yml)")
	flags.StringVar(&logLevel, "log-level", "", "log level, overrides the config")
	flags.StringVar(&historyDir, "history-dir", "", "directory of the history database, enables history")
	flags.StringVar(&profileMode, "profile", "", "write a cpu or mem profile to the working directory")
	flags.MarkHidden("profile")

	flags.UintVar(&tapeSize, "tape-size", 0, "tape size in bytes, a multiple of 16")
	flags.StringVar(&cursorPolicy, "cursor", "", "cursor bounds policy: unchecked, wrap or fail")
	flags.StringVar(&inputPolicy, "input", "", "',' handling: syscall or reject")
	flags.StringVar(&loopCondition, "loop", "", "loop condition: positive or nonzero")

	root.AddCommand(
		newCompileCommand(),
		newReplCommand(),
		newRunCommand(),
		newHistoryCommand(),
	)
	return root
}

// setup loads the config, applies flag overrides, and starts logging and
// profiling for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	base := bfasm.DefaultToolConfig()
	if configPath != "" {
		loaded, err := bfasm.LoadToolConfig(configPath)
		if err != nil {
			return err
		}
		base = loaded
	}

	toolConfig = base.Clone()
	if logLevel != "" {
		toolConfig.Log.Level = logLevel
	}
	if historyDir != "" {
		toolConfig.Persistence.Path = historyDir
	}
	if tapeSize != 0 {
		toolConfig.Translator.TapeSize = tapeSize
	}
	if cursorPolicy != "" {
		toolConfig.Translator.CursorPolicy = bf.CursorPolicy(cursorPolicy)
	}
	if inputPolicy != "" {
		toolConfig.Translator.InputPolicy = bfasm.InputPolicy(inputPolicy)
	}
	if loopCondition != "" {
		toolConfig.Translator.LoopCondition = bf.LoopCondition(loopCondition)
	}
	if err := toolConfig.Validate(); err != nil {
		return err
	}

	var err error
	if log, err = bfasm.NewLogger(toolConfig.Log); err != nil {
		return err
	}

	switch profileMode {
	case "":
	case "cpu":
		p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
		atexit.Register(p.Stop)
	case "mem":
		p := profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
		atexit.Register(p.Stop)
	default:
		return fmt.Errorf("Unknown profile mode [%s]. Expected cpu or mem", profileMode)
	}

	log.WithField("config", fmt.Sprintf("%+v", *toolConfig.Translator)).Debug("Configuration loaded")
	return nil
}

// openHistory returns nil when history is disabled.
func openHistory() *bfasm.Persistence {
	if !toolConfig.Persistence.Enabled() {
		return nil
	}
	if err := os.MkdirAll(toolConfig.Persistence.Path, 0o755); err != nil {
		log.WithError(err).Warn("Unable to create history directory, history disabled")
		return nil
	}
	persist, err := bfasm.NewPersistence(toolConfig.Persistence)
	if err != nil {
		log.WithError(err).Warn("Unable to open history, history disabled")
		return nil
	}
	atexit.Register(func() {
		if err := persist.Shutdown(); err != nil {
			log.WithError(err).Warn("Failed to close history")
		}
	})
	return persist
}

func record(persist *bfasm.Persistence, entry *bfasm.Compilation) {
	if persist == nil {
		return
	}
	if _, err := persist.Record(entry); err != nil {
		log.WithError(err).Warn("Failed to record history")
	}
}

func newTranslator() (*bfasm.Translator, error) {
	return bfasm.NewTranslator(toolConfig.Translator)
}

// newToolchain builds in a fresh directory under the configured work dir that
// is removed on exit.
func newToolchain() (*bfasm.ExternalToolchain, error) {
	config := *toolConfig.Toolchain
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("Failed to create work dir [%s]: %w", config.WorkDir, err)
	}
	dir, err := os.MkdirTemp(config.WorkDir, "build-")
	if err != nil {
		return nil, fmt.Errorf("Failed to create build dir: %w", err)
	}
	config.WorkDir = dir

	toolchain := bfasm.NewExternalToolchain(&config, log)
	atexit.Register(func() {
		if err := toolchain.Cleanup(); err != nil {
			log.WithError(err).Warn("Failed to remove build dir")
		}
	})
	return toolchain, nil
}
