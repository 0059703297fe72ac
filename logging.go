package bfasm

import (
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the driver's logger. The translator itself never logs.
func NewLogger(config *LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(colorable.NewColorableStderr())

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:      tty,
			DisableColors:    !tty,
			DisableTimestamp: tty,
			FullTimestamp:    !tty,
		})
	}
	return logger, nil
}
