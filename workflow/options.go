package workflow

import (
	"log/slog"
	"time"
)

// Options contains configuration for graph execution.
type Options struct {
	// StepTimeout bounds each step. Zero means no per-step deadline.
	StepTimeout time.Duration

	// Logger receives step lifecycle records at debug level.
	Logger *slog.Logger
}

// Option is a functional option for graph configuration.
type Option func(*Options)

// WithStepTimeout sets a deadline for every step. A step that exceeds it
// fails like any other step.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.StepTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// ApplyOptions applies functional options with defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
