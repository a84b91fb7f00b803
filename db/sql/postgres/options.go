package postgres

import "time"

// Options configures the snapshot database connection. Snapshot writes are
// best effort and mostly happen after the response is served, so the pool
// defaults stay small; a handful of connections covers upserts plus the
// admin snapshot reads.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Option func(*Options)

// WithDSN sets the lib/pq connection string (what DATABASE_URL carries).
func WithDSN(dsn string) Option {
	return func(o *Options) {
		if dsn != "" {
			o.DSN = dsn
		}
	}
}

// WithPool sizes the connection pool. Idle is clamped to open when the
// connection is established.
func WithPool(open, idle int) Option {
	return func(o *Options) {
		if open > 0 {
			o.MaxOpenConns = open
		}
		if idle >= 0 {
			o.MaxIdleConns = idle
		}
	}
}

// WithConnMaxLifetime bounds how long a connection is reused, so the pool
// rotates through pooler restarts and failovers.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ConnMaxLifetime = d
		}
	}
}

func defaultOptions() Options {
	return Options{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 15 * time.Minute,
	}
}
