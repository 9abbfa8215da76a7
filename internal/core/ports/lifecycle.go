package ports

import "context"

// WorkTracker admits work while the process is running and lets shutdown wait for it.
type WorkTracker interface {
	// Enter admits one unit of work; it fails once draining has begun.
	Enter() error
	// Done releases a unit admitted by Enter.
	Done()
	// Go runs fn as tracked background work spawned by already-admitted work.
	Go(fn func())
}

// PoolStats is a read-only snapshot of the database connection pool.
type PoolStats struct {
	Total   int `json:"total"`
	Idle    int `json:"idle"`
	InUse   int `json:"in_use"`
	Waiting int `json:"waiting"`
	Max     int `json:"max"`
	Min     int `json:"min"`
}

// PoolStatsProvider exposes connection pool statistics.
type PoolStatsProvider interface {
	PoolStats() PoolStats
}

// Closer is a named resource released during shutdown.
type Closer interface {
	Name() string
	Close(ctx context.Context) error
}
