// Package log wraps slog with component and run scoped attributes used
// across the rebuild pipeline.
package log

import (
	"log/slog"
	"os"
)

// Logger is a component-scoped slog.Logger.
type Logger struct {
	*slog.Logger
	component string
}

// New creates a text logger for a component at the given level.
func New(component string, level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// WithComponent returns a logger scoped to a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// WithRun returns a logger carrying the rebuild run id on every record.
func (l *Logger) WithRun(runID int64) *Logger {
	return &Logger{
		Logger:    l.Logger.With("run_id", runID),
		component: l.component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
