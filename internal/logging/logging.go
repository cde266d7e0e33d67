// Package logging builds the process logger: console plus a daily-rotated
// file, with secrets scrubbed before either sink sees an entry
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	fileName      = "float_report.log"
	retentionDays = 30
)

// Options configures New
type Options struct {
	Level   string
	Dir     string
	Secrets []string
}

// Logger couples the logrus logger with its rotating file sink
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New returns a logger writing text to stdout and JSON to Dir/float_report.log
func New(opts Options) (*Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", opts.Dir, err)
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	file := &lumberjack.Logger{
		Filename:  filepath.Join(opts.Dir, fileName),
		MaxAge:    retentionDays,
		LocalTime: true,
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(NewRedactor(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}, opts.Secrets))
	logger.AddHook(&writerHook{
		writer:    file,
		formatter: NewRedactor(&logrus.JSONFormatter{}, opts.Secrets),
	})

	return &Logger{Logger: logger, file: file}, nil
}

// Rotate starts a new log file; the scheduler calls it at midnight
func (l *Logger) Rotate() error {
	return l.file.Rotate()
}

// Close flushes and closes the file sink
func (l *Logger) Close() error {
	return l.file.Close()
}

// writerHook sends every entry to an extra writer with its own formatter
type writerHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
