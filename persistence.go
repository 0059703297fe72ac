package bfasm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/xerrors"
	gorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PersistenceConfig struct {
	Name          string   `toml:"name" yaml:"name"`
	Path          string   `toml:"path" yaml:"path"`
	SQLitePragmas []string `toml:"pragmas" yaml:"pragmas"`
	SQLiteOptions []string `toml:"options" yaml:"options"`
}

// Enabled is false when no directory is configured.
func (c *PersistenceConfig) Enabled() bool {
	return c != nil && len(c.Path) > 0
}

type CompilationStatus string

const (
	StatusOK          CompilationStatus = "ok"
	StatusRejected    CompilationStatus = "rejected"
	StatusBuildFailed CompilationStatus = "build_failed"
	StatusRunFailed   CompilationStatus = "run_failed"
)

// Compilation is one history entry: a source handed to the translator and
// what became of it.
type Compilation struct {
	ID           uint
	CreatedAt    time.Time
	Mode         string
	SourceHash   string `gorm:"index"`
	Source       string
	Instructions int
	Labels       int
	Status       CompilationStatus `gorm:"index"`
	ErrorKind    string
	Error        *string
	ExitCode     *int
}

func NewCompilation(mode, src string) *Compilation {
	sum := sha256.Sum256([]byte(src))
	return &Compilation{
		Mode:       mode,
		SourceHash: hex.EncodeToString(sum[:]),
		Source:     src,
	}
}

// Translated records the translator's verdict.
func (c *Compilation) Translated(asm *Assembly, err error) {
	if err != nil {
		c.Fail(StatusRejected, err)
		if kind := KindOf(err); kind != 0 {
			c.ErrorKind = kind.String()
		}
		return
	}
	c.Status = StatusOK
	c.Instructions = asm.Instructions
	c.Labels = asm.Labels
}

func (c *Compilation) Fail(status CompilationStatus, err error) {
	msg := err.Error()
	c.Status = status
	c.Error = &msg
}

func (c *Compilation) Exited(code int) {
	c.ExitCode = &code
}

type Persistence struct {
	Config *PersistenceConfig
	DB     *gorm.DB
}

func NewPersistence(config *PersistenceConfig) (*Persistence, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if len(config.Path) == 0 {
		return nil, fmt.Errorf("Path to database must be defined")
	}

	if len(config.Name) == 0 {
		return nil, fmt.Errorf("Name of database must be defined")
	}

	params := make([]string, 0, len(config.SQLitePragmas)+len(config.SQLiteOptions))
	for _, prag := range config.SQLitePragmas {
		params = append(params, fmt.Sprintf("_pragma=%s", prag))
	}
	params = append(params, config.SQLiteOptions...)

	var path strings.Builder
	path.WriteString(filepath.Join(config.Path, config.Name))
	if len(params) > 0 {
		path.WriteRune('?')
		path.WriteString(strings.Join(params, "&"))
	}

	db, err := gorm.Open(sqlite.Open(path.String()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, xerrors.Errorf("Failed to open history database: %w", err)
	}

	p := &Persistence{Config: config, DB: db}
	if err = p.initialize(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Persistence) initialize() error {
	if err := p.DB.AutoMigrate(&Compilation{}); err != nil {
		return xerrors.Errorf("Failed to migrate history database: %w", err)
	}
	return nil
}

func (p *Persistence) Shutdown() error {
	sqldb, err := p.DB.DB()
	if err != nil {
		return xerrors.Errorf("Failed to retrieve raw DB: %w", err)
	}
	return sqldb.Close()
}

func (p *Persistence) Record(c *Compilation) (uint, error) {
	if c == nil {
		return 0, fmt.Errorf("Compilation cannot be nil")
	}

	if result := p.DB.Create(c); result.Error != nil {
		return 0, xerrors.Errorf("Failed to call gorm.Create(): %w", result.Error)
	}

	return c.ID, nil
}

// Recent returns up to limit entries, newest first.
func (p *Persistence) Recent(limit int) ([]*Compilation, error) {
	var out []*Compilation
	if result := p.DB.Order("id desc").Limit(limit).Find(&out); result.Error != nil {
		return nil, xerrors.Errorf("Failed to load history: %w", result.Error)
	}
	return out, nil
}

// FindBySource returns the newest entry for an identical source, or nil.
func (p *Persistence) FindBySource(src string) (*Compilation, error) {
	hash := NewCompilation("", src).SourceHash
	var out []*Compilation
	if result := p.DB.Where("source_hash = ?", hash).Order("id desc").Limit(1).Find(&out); result.Error != nil {
		return nil, xerrors.Errorf("Failed to look up source: %w", result.Error)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
