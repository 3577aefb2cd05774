// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB and Cockroach when
// configured for the MySQL wire protocol.
//
// Public entry points:
//
//	Open(dsn)                 quick helper with conservative pool sizes.
//	OpenWithOptions(dsn, p)   fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Pool tunes the connection pool.  Zero fields keep the defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	PingTimeout time.Duration
}

// DefaultPool is 15 max open, 5 idle, and a 30-minute connection lifetime.
var DefaultPool = Pool{MaxOpen: 15, MaxIdle: 5, MaxLifetime: 30 * time.Minute, PingTimeout: 5 * time.Second}

// Open returns a *sqlx.DB using DefaultPool.
func Open(dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, DefaultPool)
}

// OpenWithOptions lets callers tune the pool.
func OpenWithOptions(dsn string, p Pool) (*sqlx.DB, error) {
	p = p.withDefaults()

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), p.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (p Pool) withDefaults() Pool {
	if p.MaxOpen <= 0 {
		p.MaxOpen = DefaultPool.MaxOpen
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = DefaultPool.MaxIdle
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = DefaultPool.MaxLifetime
	}
	if p.PingTimeout <= 0 {
		p.PingTimeout = DefaultPool.PingTimeout
	}
	return p
}

// IsUnknownTable recognises MariaDB (error 1146) and Cockroach/Postgres
// (42P01) "table does not exist" errors without importing driver-specific
// types.
func IsUnknownTable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1146") || strings.Contains(msg, "42P01")
}
