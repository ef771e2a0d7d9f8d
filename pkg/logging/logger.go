package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the logging contract shared by the geometry, recorder and run
// packages. module is a short tag naming the emitting component.
type Logger interface {
	Info(message string, module string)
	Warn(message string, module string)
	Error(message string)
}

// SlogLogger sends informational messages to InfoLog and everything else to
// ErrorLog.
type SlogLogger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func (l SlogLogger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l SlogLogger) Warn(message string, module string) {
	l.ErrorLog.Warn(message, "module", module)
}

func (l SlogLogger) Error(message string) {
	l.ErrorLog.Error(message)
}

// New builds the default logger: bracketed text on stdout, JSON on stderr.
func New(level slog.Level) SlogLogger {
	return NewWithWriters(os.Stdout, os.Stderr, level)
}

func NewWithWriters(out io.Writer, errOut io.Writer, level slog.Level) SlogLogger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return SlogLogger{
		InfoLog:  slog.New(NewHandler(out, opts)),
		ErrorLog: slog.New(slog.NewJSONHandler(errOut, opts)),
	}
}

type discard struct{}

func (discard) Info(string, string) {}
func (discard) Warn(string, string) {}
func (discard) Error(string)        {}

// Discard drops every message.
var Discard Logger = discard{}
