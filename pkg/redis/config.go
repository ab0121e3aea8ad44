package redis

import (
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/errors"
)

// Mode represents the mode of the Redis client.
type Mode string

const (
	// Standalone Mode is for a single Redis instance.
	Standalone Mode = "standalone"
	// Cluster Mode is for a Redis cluster setup.
	Cluster Mode = "cluster"
)

// Config holds the configuration for the Redis client.
type Config struct {
	Mode     Mode     `env:"MODE" envDefault:"standalone"`
	Username string   `env:"USERNAME"`
	Password string   `env:"PASSWORD"`
	DB       int      `env:"DB" envDefault:"0"`
	Addrs    []string `env:"ADDRS" envDefault:"localhost:6379"`

	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	MaxRetries      int           `env:"MAX_RETRIES" envDefault:"3"`
	MinRetryBackoff time.Duration `env:"MIN_RETRY_BACKOFF" envDefault:"100ms"`
	MaxRetryBackoff time.Duration `env:"MAX_RETRY_BACKOFF" envDefault:"2s"`
	PoolSize        int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns    int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	PoolTimeout     time.Duration `env:"POOL_TIMEOUT" envDefault:"4s"`

	KeyPrefix string `env:"KEY_PREFIX" envDefault:"clearing"`
}

// DefaultConfig returns a default configuration for the Redis client.
func DefaultConfig() *Config {
	return &Config{
		Mode:            Standalone,
		Addrs:           []string{"localhost:6379"},
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
		PoolTimeout:     4 * time.Second,
		KeyPrefix:       "clearing",
	}
}

// Validate collects every configuration problem into one BaseError.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewErrorDetails("redis config is nil", string(errors.RedisConfigError), "config")
	}

	base := errors.NewBaseError()
	check := func(ok bool, message, field string) {
		if !ok {
			base.AddErrorDetails(errors.NewErrorDetails(message, string(errors.RedisConfigError), field))
		}
	}

	check(len(c.Addrs) > 0, "redis addresses are empty", "addrs")
	check(c.Mode == Standalone || c.Mode == Cluster, "invalid redis mode", "mode")
	check(c.ConnectTimeout > 0, "connect timeout must be positive", "connect_timeout")
	check(c.PoolSize > 0, "pool size must be positive", "pool_size")
	check(c.PoolTimeout > 0, "pool timeout must be positive", "pool_timeout")
	check(c.MaxRetries >= 0, "max retries must not be negative", "max_retries")
	check(c.MinRetryBackoff >= 0 && c.MaxRetryBackoff >= 0, "retry backoff must not be negative", "retry_backoff")

	if base.HasDetails() {
		return base
	}
	return nil
}
