package pgxdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors for pgxdb package operations
var (
	// Connection errors
	ErrInvalidConnectionString = errors.New("invalid database connection string")
	ErrConnectionPoolCreation  = errors.New("failed to create database connection pool")
	ErrDatabaseConnection      = errors.New("failed to connect to database")
)

// PoolConfig holds the connection pool settings applied on top of the URL
type PoolConfig struct {
	MinConns          int32
	MaxConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// DefaultPoolConfig suits the scraper: one writer upserting row by row, plus
// the occasional checkpoint query.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinConns:          1,
		MaxConns:          4,
		MaxConnLifetime:   30 * time.Minute,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 1 * time.Minute,
		ConnectTimeout:    10 * time.Second,
	}
}

// TestPoolConfig keeps test databases small and fails fast
func TestPoolConfig() PoolConfig {
	return PoolConfig{
		MinConns:          1,
		MaxConns:          2,
		MaxConnLifetime:   10 * time.Minute,
		MaxConnIdleTime:   1 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    5 * time.Second,
	}
}

// NewConnection creates a pgx connection pool with DefaultPoolConfig
func NewConnection(ctx context.Context, connectionString string) (*pgxpool.Pool, error) {
	return NewConnectionWithConfig(ctx, connectionString, DefaultPoolConfig())
}

// NewConnectionWithConfig creates a pgx connection pool and checks it with a ping
func NewConnectionWithConfig(ctx context.Context, connectionString string, pc PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	config.MinConns = pc.MinConns
	config.MaxConns = pc.MaxConns
	config.MaxConnLifetime = pc.MaxConnLifetime
	config.MaxConnIdleTime = pc.MaxConnIdleTime
	config.HealthCheckPeriod = pc.HealthCheckPeriod
	config.ConnConfig.ConnectTimeout = pc.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionPoolCreation, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}

	return pool, nil
}
