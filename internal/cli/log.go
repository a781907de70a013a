package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log adapts a logrus logger to migrate.Logger.
type Log struct {
	verbose bool
	logger  *logrus.Logger
}

func NewLog(logger *logrus.Logger, verbose bool) *Log {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return &Log{verbose: verbose, logger: logger}
}

// Printf prints out formatted string into a log
func (l *Log) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

// Println prints out args into a log
func (l *Log) Println(args ...any) {
	l.logger.Info(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Verbose shows if verbose print enabled
func (l *Log) Verbose() bool {
	return l.verbose
}

func (l *Log) fatal(args ...any) {
	l.logger.Error(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
	os.Exit(1)
}

func (l *Log) fatalErr(err error) {
	l.logger.WithError(err).Error("error")
	os.Exit(1)
}
