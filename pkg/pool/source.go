// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/logging"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/util"
	"golang.org/x/sync/singleflight"
)

const (
	startingSize = 2
	maxSize      = 10
)

// HealthStatus is the health state of a registered source pool.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// Health is the per-source health record.
type Health struct {
	Status    HealthStatus
	LastCheck time.Time
	LastError string
}

// RowSet is the execution result surfaced to the invocation closure.
type RowSet struct {
	Columns     []string
	ColumnTypes []string
	Rows        [][]interface{}
}

type sourceEntry struct {
	db *sql.DB

	mu     sync.Mutex
	health Health
}

// SourceManager is the Source Pool Manager: multiplexes
// queries across named upstream connection pools, lazily and
// single-flighted, with health supervision.
type SourceManager struct {
	sources map[string]*config.SourceDescriptor
	// single, when set, is the only source name this manager ever
	// resolves to, regardless of the name a caller asks for. Set for a
	// per-token AuthPool, which is bound to one
	// set of credentials rather than named sources.
	single string

	mu      sync.RWMutex
	entries map[string]*sourceEntry
	sf      singleflight.Group
}

// NewSourceManager builds a SourceManager over the resolved set of named
// sources from a MergedConfig.
func NewSourceManager(sources map[string]*config.SourceDescriptor) *SourceManager {
	return &SourceManager{
		sources: sources,
		entries: map[string]*sourceEntry{},
	}
}

// Execute resolves name to its pool (creating it on first use, single
// flighted so concurrent callers share one init attempt), runs sql with
// binds, and returns the resulting RowSet. It takes no security policy:
// the SQL Security Validator runs in the invocation closure, not here.
func (m *SourceManager) Execute(ctx context.Context, name, stmt string, binds []interface{}) (*RowSet, error) {
	entry, err := m.ensure(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := entry.db.QueryContext(ctx, stmt, binds...)
	if err != nil {
		m.markUnhealthy(entry, err)
		return nil, errs.Wrap(errs.KindDatabase, err, fmt.Sprintf("execute against source %q", name))
	}
	defer rows.Close()

	rs, err := scanRows(rows)
	if err != nil {
		m.markUnhealthy(entry, err)
		return nil, errs.Wrap(errs.KindDatabase, err, fmt.Sprintf("scan result from source %q", name))
	}
	m.markHealthy(entry)
	return rs, nil
}

// Health runs a canonical cheap query against name's pool on demand and
// reports its resulting status.
func (m *SourceManager) Health(ctx context.Context, name string) (Health, error) {
	entry, err := m.ensure(ctx, name)
	if err != nil {
		return Health{Status: HealthUnknown, LastError: err.Error()}, err
	}
	if _, err := entry.db.ExecContext(ctx, "SELECT 1"); err != nil {
		m.markUnhealthy(entry, err)
		entry.mu.Lock()
		h := entry.health
		entry.mu.Unlock()
		return h, err
	}
	m.markHealthy(entry)
	entry.mu.Lock()
	h := entry.health
	entry.mu.Unlock()
	return h, nil
}

// Close closes every opened pool.
func (m *SourceManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, e := range m.entries {
		if err := e.db.Close(); err != nil && firstErr == nil {
			firstErr = errs.Wrap(errs.KindDatabase, err, "close pool "+name)
		}
	}
	m.entries = map[string]*sourceEntry{}
	return firstErr
}

// ensure returns the sourceEntry for name, lazily creating its pool.
// Concurrent first use is single-flighted per name so callers share one
// pool initialization (including its backoff retries).
func (m *SourceManager) ensure(ctx context.Context, name string) (*sourceEntry, error) {
	if m.single != "" {
		name = m.single
	}

	m.mu.RLock()
	entry, ok := m.entries[name]
	m.mu.RUnlock()
	if ok {
		return entry, nil
	}

	desc, ok := m.sources[name]
	if !ok {
		return nil, errs.New(errs.KindServiceNotInitialized, fmt.Sprintf("source %q is not registered", name))
	}

	v, err, _ := m.sf.Do(name, func() (interface{}, error) {
		m.mu.RLock()
		if e, ok := m.entries[name]; ok {
			m.mu.RUnlock()
			return e, nil
		}
		m.mu.RUnlock()

		e, err := m.open(ctx, desc, startingSize, maxSize)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.entries[name] = e
		m.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sourceEntry), nil
}

func (m *SourceManager) open(ctx context.Context, desc *config.SourceDescriptor, idleSize, openSize int) (*sourceEntry, error) {
	if !desc.IgnoreUnauthorizedOrDefault() {
		if _, err := util.FetchPeerCertificate(ctx, desc.Host, desc.Port); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, err, "verify source TLS certificate")
		}
	}

	dsn, driver, err := dsnFor(desc)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, err, "build DSN for source "+desc.Name)
	}

	var db *sql.DB
	op := func() error {
		var openErr error
		db, openErr = sql.Open(driver, dsn)
		if openErr != nil {
			return openErr
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, errs.Wrap(errs.KindDatabase, err, "connect to source "+desc.Name)
	}

	db.SetMaxIdleConns(idleSize)
	db.SetMaxOpenConns(openSize)
	db.SetConnMaxLifetime(time.Hour)

	logging.GetLogger().Info("source pool initialized", "source", desc.Name, "driver", driver,
		"starting_size", idleSize, "max_size", openSize)

	return &sourceEntry{db: db, health: Health{Status: HealthHealthy, LastCheck: time.Now()}}, nil
}

func (m *SourceManager) markHealthy(e *sourceEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = Health{Status: HealthHealthy, LastCheck: time.Now()}
}

func (m *SourceManager) markUnhealthy(e *sourceEntry, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = Health{Status: HealthUnhealthy, LastCheck: time.Now(), LastError: cause.Error()}
}

// dsnFor builds a driver-appropriate DSN for the mysql, postgres, and
// sqlite database/sql drivers this server registers.
func dsnFor(desc *config.SourceDescriptor) (dsn, driver string, err error) {
	driver = desc.DriverOrDefault()
	db := desc.Database
	switch driver {
	case "mysql":
		port := desc.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", desc.User, desc.Password, desc.Host, port, db), driver, nil
	case "postgres":
		port := desc.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			desc.Host, port, desc.User, desc.Password, db), driver, nil
	case "sqlite":
		return db, "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported source driver %q", driver)
	}
}

func scanRows(rows *sql.Rows) (*RowSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &RowSet{Columns: cols}
	if cts, err := rows.ColumnTypes(); err == nil {
		rs.ColumnTypes = make([]string, len(cts))
		for i, ct := range cts {
			rs.ColumnTypes[i] = ct.DatabaseTypeName()
		}
	}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, rows.Err()
}
