package database

import (
	"fmt"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfigOptions provides configurable pool settings.
type PoolConfigOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
	ApplicationName   string
}

// DefaultPoolOptions returns pool options sized from the CPU count.
func DefaultPoolOptions() *PoolConfigOptions {
	cpuCount := int32(runtime.NumCPU())
	// Rule of thumb: (2 * CPU cores) + effective spindle count (1 for SSD)
	maxConns := cpuCount*2 + 1
	if maxConns < 10 {
		maxConns = 10
	}
	if maxConns > 50 {
		maxConns = 50
	}

	return &PoolConfigOptions{
		MaxConns:          maxConns,
		MinConns:          cpuCount / 2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    5 * time.Second,
		ApplicationName:   "ragserver",
	}
}

// CreatePoolConfig builds a pgxpool.Config from a connection string and
// pool options.
func CreatePoolConfig(connString string, opts *PoolConfigOptions) (*pgxpool.Config, error) {
	if opts == nil {
		opts = DefaultPoolOptions()
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName

	return cfg, nil
}
