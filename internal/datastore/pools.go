// Package datastore owns the named database pools a store draws its
// connections from.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver
)

// Type represents the kind of database behind a pool.
type Type string

const (
	// PostgreSQLStore uses a PostgreSQL server
	PostgreSQLStore Type = "postgresql"
	// SQLiteStore uses an embedded SQLite file
	SQLiteStore Type = "sqlite"
)

// Config holds the settings for one pool.
type Config struct {
	Type             Type
	ConnectionString string
	MaxOpenConns     int
}

// UnsupportedStoreTypeError is returned when an unsupported store type is requested
type UnsupportedStoreTypeError struct {
	Type string
}

func (e *UnsupportedStoreTypeError) Error() string {
	return "unsupported store type: " + e.Type
}

// UnknownPoolError is returned when a connection is requested from a pool
// that was never registered.
type UnknownPoolError struct {
	Name string
}

func (e *UnknownPoolError) Error() string {
	return fmt.Sprintf("unknown database pool %q", e.Name)
}

// DriverName returns the database/sql driver registered for t.
func DriverName(t Type) (string, error) {
	switch t {
	case PostgreSQLStore:
		return "postgres", nil
	case SQLiteStore:
		return "sqlite", nil
	default:
		return "", &UnsupportedStoreTypeError{Type: string(t)}
	}
}

// Pools is a registry of named connection pools. It is safe for concurrent
// use.
type Pools struct {
	mu    sync.RWMutex
	pools map[string]*sqlx.DB
}

// NewPools creates an empty registry.
func NewPools() *Pools {
	return &Pools{pools: make(map[string]*sqlx.DB)}
}

// Open opens and pings one pool per config entry. On failure every pool
// opened so far is closed.
func Open(ctx context.Context, configs map[string]Config) (*Pools, error) {
	p := NewPools()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		driver, err := DriverName(cfg.Type)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		if cfg.ConnectionString == "" {
			_ = p.Close()
			return nil, fmt.Errorf("pool %s: connection string is empty", name)
		}

		db, err := sqlx.Open(driver, cfg.ConnectionString)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to open pool %s: %w", name, err)
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			_ = p.Close()
			return nil, fmt.Errorf("failed to ping pool %s: %w", name, err)
		}
		p.Register(name, db)
	}
	return p, nil
}

// Register adds db under name, replacing any previous pool of that name.
func (p *Pools) Register(name string, db *sqlx.DB) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pools[name] = db
}

// DB returns the pool registered under name.
func (p *Pools) DB(name string) (*sqlx.DB, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	db, ok := p.pools[name]
	if !ok {
		return nil, &UnknownPoolError{Name: name}
	}
	return db, nil
}

// Acquire takes one connection out of the named pool. The caller must Close
// it to return it.
func (p *Pools) Acquire(ctx context.Context, name string) (*sqlx.Conn, error) {
	db, err := p.DB(name)
	if err != nil {
		return nil, err
	}
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection from pool %s: %w", name, err)
	}
	return conn, nil
}

// Names lists the registered pools in sorted order.
func (p *Pools) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.pools))
	for name := range p.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every pool.
func (p *Pools) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for name, db := range p.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pool %s: %w", name, err))
		}
	}
	p.pools = make(map[string]*sqlx.DB)
	return errors.Join(errs...)
}
