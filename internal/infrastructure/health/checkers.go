package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/catalog-service/internal/core/ports"
	infraDB "github.com/avatarctic/catalog-service/internal/infrastructure/db"
)

// dbHealthChecker pings the database through the bounded pool acquisition.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error {
	conn, err := d.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.PingContext(ctx)
}

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Prober is anything that can report its own liveness, such as the broker connection.
type Prober interface {
	Check(ctx context.Context) error
}

type namedChecker struct {
	name string
	p    Prober
}

func (n *namedChecker) Name() string                    { return n.name }
func (n *namedChecker) Check(ctx context.Context) error { return n.p.Check(ctx) }

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewBrokerHealthChecker reports the broker connection state.
func NewBrokerHealthChecker(p Prober) ports.HealthChecker {
	return &namedChecker{name: "broker", p: p}
}
