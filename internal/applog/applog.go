// Package applog configures the process-wide logger: a logrus.Logger
// writing to STASYS.log next to the running executable, level INFO,
// with a timestamped text formatter.
package applog

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New opens (creating if necessary) STASYS.log next to the executable
// and returns a logrus.Logger writing to it at InfoLevel. If the
// executable's directory can't be determined or the log file can't be
// opened, the returned logger keeps writing to stderr instead, so
// that logging failures never prevent the program from starting.
func New() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	path, err := logFilePath()
	if err != nil {
		logger.WithError(err).Warn("falling back to stderr logging")
		return logger
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.WithError(err).Warn("falling back to stderr logging")
		return logger
	}

	logger.SetOutput(f)
	return logger
}

// logFilePath returns the path to STASYS.log next to the running
// executable.
func logFilePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), "STASYS.log"), nil
}
