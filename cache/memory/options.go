package memory

import (
	"io"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/chesspulse/chesspulse/cache"
)

// Options configures the in-memory store.
type Options struct {
	// Now supplies the clock; overridden in tests to simulate elapsed time.
	Now func() time.Time
	// Logger receives structured cache events. Defaults to a silent logger.
	Logger *log.Logger
	// Metrics receives hit/miss/expire events. Defaults to cache.NopMetrics.
	Metrics cache.Metrics
}

type Option func(*Options)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithLogger sets the structured logger for cache events.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics installs a metrics hook.
func WithMetrics(m cache.Metrics) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

func defaultOptions() Options {
	logger := log.New("cache")
	logger.SetOutput(io.Discard)
	return Options{
		Now:     time.Now,
		Logger:  logger,
		Metrics: cache.NopMetrics{},
	}
}
