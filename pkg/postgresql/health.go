package postgresql

import (
	"context"
	"fmt"
	"time"
)

// HealthCheck represents database health information
type HealthCheck struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	ActiveConns  int32         `json:"active_connections"`
	IdleConns    int32         `json:"idle_connections"`
	MaxConns     int32         `json:"max_connections"`
	Error        string        `json:"error,omitempty"`
}

// CheckHealth pings the pool and reports pool statistics.
func (c *Client) CheckHealth(ctx context.Context) *HealthCheck {
	start := time.Now()

	stats := c.pool.Stat()
	health := &HealthCheck{
		ActiveConns: stats.AcquiredConns(),
		IdleConns:   stats.IdleConns(),
		MaxConns:    stats.MaxConns(),
	}

	if err := c.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Error = fmt.Sprintf("ping failed: %v", err)
		health.ResponseTime = time.Since(start)
		return health
	}

	health.Status = "healthy"
	health.ResponseTime = time.Since(start)
	return health
}

// IsHealthy returns true if the database is healthy
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.CheckHealth(ctx).Status == "healthy"
}
