package redis

import "time"

// Options configures the connection to the shared response-cache Redis.
type Options struct {
	// Addr is the host:port of the Redis server.
	Addr string
	// Password authenticates via AUTH when non-empty.
	Password string
	// DB selects a logical database. The store assumes it owns the
	// database it points at; Clear issues FLUSHDB.
	DB int
	// DialTimeout bounds establishing a new connection.
	DialTimeout time.Duration
	// ReadTimeout bounds waiting for a reply. Cache reads sit on the
	// request path, so it stays tight; a slow Redis should degrade to a
	// miss, not stall the response.
	ReadTimeout time.Duration
	// WriteTimeout bounds sending a command.
	WriteTimeout time.Duration
	// PoolSize caps pooled connections. The middleware persists response
	// bodies from fire-and-forget goroutines, so the pool is sized to
	// absorb a burst of those writes alongside request-path reads.
	PoolSize int
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:6379"
	}
	if o.DB < 0 {
		o.DB = 0
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 3 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = time.Second
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 16
	}
	return o
}
