package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

// Logger wraps slog.Logger and stamps every record with a component.
// base is the handler before any attribute was added, so the component can
// be swapped without repeating it.
type Logger struct {
	*slog.Logger
	base      slog.Handler
	args      []any
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// New creates a text logger writing to cfg.Output (stdout when nil).
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Component == "" {
		cfg.Component = ComponentApp
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	return newLogger(handler, cfg.Component, nil)
}

func newLogger(base slog.Handler, component string, args []any) *Logger {
	return &Logger{
		Logger:    slog.New(base).With(FieldComponent, component).With(args...),
		base:      base,
		args:      args,
		component: component,
	}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base,
		args:      append(slices.Clip(l.args), args...),
		component: l.component,
	}
}

// WithComponent returns a child logger for another component. The
// component attribute is replaced, not duplicated; attributes added with
// With are kept.
func (l *Logger) WithComponent(component string) *Logger {
	base := l.base
	if base == nil {
		base = l.Logger.Handler()
	}
	return newLogger(base, component, l.args)
}

func (l *Logger) Component() string {
	return l.component
}

// LogError logs err with its operation and any extra fields. The active
// span's trace ID is attached when ctx carries one.
func (l *Logger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields[FieldTraceID] = sc.TraceID().String()
	}
	l.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}

// SetDefault installs logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
