package bfasm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	cp "github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	bf "nickandperla.net/bfasm/brainfuck"
)

// InputPolicy decides how ',' is translated.
type InputPolicy string

const (
	// InputSyscall reads one byte from stdin into the current cell.
	InputSyscall InputPolicy = "syscall"
	// InputReject fails translation with UnsupportedInstruction.
	InputReject InputPolicy = "reject"
)

func (p InputPolicy) Validate() error {
	switch p {
	case InputSyscall, InputReject:
		return nil
	}
	return fmt.Errorf("Unknown input policy [%s]. Expected one of [%s, %s]", string(p), InputSyscall, InputReject)
}

type TranslatorConfig struct {
	TapeSize      uint             `toml:"tape_size" yaml:"tape_size"`
	CursorPolicy  bf.CursorPolicy  `toml:"cursor_policy" yaml:"cursor_policy"`
	InputPolicy   InputPolicy      `toml:"input" yaml:"input"`
	LoopCondition bf.LoopCondition `toml:"loop_condition" yaml:"loop_condition"`
}

func DefaultTranslatorConfig() *TranslatorConfig {
	return &TranslatorConfig{
		TapeSize:      DEFAULT_TAPE_SIZE,
		CursorPolicy:  bf.CursorUnchecked,
		InputPolicy:   InputSyscall,
		LoopCondition: bf.LoopPositive,
	}
}

func (c *TranslatorConfig) Validate() error {
	if c.TapeSize == 0 || c.TapeSize%ZeroChunkSize != 0 {
		return fmt.Errorf("Tape size [%d] must be a positive multiple of [%d]", c.TapeSize, ZeroChunkSize)
	}
	if err := c.CursorPolicy.Validate(); err != nil {
		return err
	}
	if err := c.InputPolicy.Validate(); err != nil {
		return err
	}
	return c.LoopCondition.Validate()
}

// MachineConfig describes an interpreter with the same semantics as the
// programs this config translates.
func (c *TranslatorConfig) MachineConfig(maxInstructions uint) *bf.MachineConfig {
	return &bf.MachineConfig{
		MaxInstructionExecutionCount: maxInstructions,
		LoopCondition:                c.LoopCondition,
		MemoryConfig: &bf.MemoryConfig{
			CellCount:    c.TapeSize,
			CursorPolicy: c.CursorPolicy,
		},
	}
}

type ToolchainConfig struct {
	Assembler       string        `toml:"assembler" yaml:"assembler"`
	AssemblerFormat string        `toml:"format" yaml:"format"`
	Linker          string        `toml:"linker" yaml:"linker"`
	WorkDir         string        `toml:"work_dir" yaml:"work_dir"`
	Timeout         time.Duration `toml:"timeout" yaml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type ToolConfig struct {
	Translator      *TranslatorConfig  `toml:"translator" yaml:"translator"`
	Toolchain       *ToolchainConfig   `toml:"toolchain" yaml:"toolchain"`
	Persistence     *PersistenceConfig `toml:"history" yaml:"history"`
	Log             *LogConfig         `toml:"log" yaml:"log"`
	MaxInstructions uint               `toml:"max_instructions" yaml:"max_instructions"`
}

func DefaultToolConfig() *ToolConfig {
	c := &ToolConfig{}
	c.fillDefaults()
	return c
}

func (c *ToolConfig) fillDefaults() {
	if c.Translator == nil {
		c.Translator = &TranslatorConfig{}
	}
	def := DefaultTranslatorConfig()
	if c.Translator.TapeSize == 0 {
		c.Translator.TapeSize = def.TapeSize
	}
	if c.Translator.CursorPolicy == "" {
		c.Translator.CursorPolicy = def.CursorPolicy
	}
	if c.Translator.InputPolicy == "" {
		c.Translator.InputPolicy = def.InputPolicy
	}
	if c.Translator.LoopCondition == "" {
		c.Translator.LoopCondition = def.LoopCondition
	}

	if c.Toolchain == nil {
		c.Toolchain = &ToolchainConfig{}
	}
	if c.Toolchain.Assembler == "" {
		c.Toolchain.Assembler = "nasm"
	}
	if c.Toolchain.AssemblerFormat == "" {
		c.Toolchain.AssemblerFormat = "elf64"
	}
	if c.Toolchain.Linker == "" {
		c.Toolchain.Linker = "ld"
	}
	if c.Toolchain.WorkDir == "" {
		c.Toolchain.WorkDir = filepath.Join(os.TempDir(), "bfasm")
	}
	if c.Toolchain.Timeout == 0 {
		c.Toolchain.Timeout = DEFAULT_TIMEOUT
	}

	// An empty history path disables persistence.
	if c.Persistence == nil {
		c.Persistence = &PersistenceConfig{}
	}
	if c.Persistence.Name == "" {
		c.Persistence.Name = DEFAULT_HISTORY_NAME
	}

	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.MaxInstructions == 0 {
		c.MaxInstructions = DEFAULT_MAX_INSTRUCTIONS
	}
}

func (c *ToolConfig) Validate() error {
	if err := c.Translator.Validate(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("Invalid log level [%s]: %w", c.Log.Level, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("Unknown log format [%s]. Expected one of [text, json]", c.Log.Format)
	}
	if c.Toolchain.Timeout < 0 {
		return fmt.Errorf("Toolchain timeout [%v] cannot be negative", c.Toolchain.Timeout)
	}
	return nil
}

// Clone returns a deep copy so command line overrides never leak into a
// shared config.
func (c *ToolConfig) Clone() *ToolConfig {
	clone := &ToolConfig{}
	cp.CopyWithOption(clone, c, cp.Option{DeepCopy: true})
	return clone
}

// LoadToolConfig decodes a TOML or YAML file, chosen by extension, over the
// defaults and validates the result.
func LoadToolConfig(path string) (*ToolConfig, error) {
	config := &ToolConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("Failed to unmarshal tool config: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Unable to load tool config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, config); err != nil {
			return nil, fmt.Errorf("Failed to unmarshal tool config: %w", err)
		}
	default:
		return nil, fmt.Errorf("Unknown config format [%s]. Expected .toml, .yaml or .yml", filepath.Ext(path))
	}

	config.fillDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
