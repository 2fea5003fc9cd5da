// Package database owns the relational connection: lazy connect with a bounded
// ping, one-time goose migrations, and the reachability facts reported by the
// health endpoints. A failed connect is remembered and retried on the next call,
// so a cold start without a database keeps serving in degraded mode.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sjoshi/portfolio-api/internal/config"
	"github.com/sjoshi/portfolio-api/internal/dbx"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	ModeConnectionString = "connectionString"
	ModeDiscrete         = "discrete"
)

var _ dbx.Connector = (*Manager)(nil)

type Manager struct {
	cfg     config.DatabaseConfig
	open    func(driverName, dsn string) (*sql.DB, error)
	migrate func(ctx context.Context, db *sql.DB, dialect string) error

	// connectMu serialises dialing and migrations; mu only guards the fields
	// below so health reads never wait on the network.
	connectMu sync.Mutex
	mu        sync.Mutex
	db        *sql.DB
	lastErr   error
}

func NewManager(cfg config.DatabaseConfig) *Manager {
	return &Manager{
		cfg:     cfg,
		open:    sql.Open,
		migrate: RunMigrations,
	}
}

// Configured reports whether enough settings exist to attempt a connection.
func (m *Manager) Configured() bool {
	if m.cfg.GetDBConnectionString() != "" {
		return true
	}
	if m.Dialect() == config.DriverSQLite {
		return false
	}
	return m.cfg.GetDBHost() != "" && m.cfg.GetDBName() != "" && m.cfg.GetDBUser() != "" && m.cfg.GetDBPassword() != ""
}

func (m *Manager) Mode() string {
	if m.cfg.GetDBConnectionString() != "" {
		return ModeConnectionString
	}
	return ModeDiscrete
}

func (m *Manager) Dialect() string {
	if m.cfg.GetDBDriver() == config.DriverSQLite {
		return config.DriverSQLite
	}
	return config.DriverPostgres
}

func (m *Manager) Host() string {
	return m.cfg.GetDBHost()
}

func (m *Manager) Name() string {
	return m.cfg.GetDBName()
}

// Conn returns the live pool, connecting first if needed.
func (m *Manager) Conn(ctx context.Context) (dbx.DBTX, error) {
	db, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db != nil
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr == nil {
		return ""
	}
	return m.lastErr.Error()
}

// Ping connects if needed and runs SELECT 1.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.connect(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.GetDBConnectTimeout())
	defer cancel()

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		m.recordError(err)
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

func (m *Manager) Close() error {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *Manager) connect(ctx context.Context) (*sql.DB, error) {
	if db := m.current(); db != nil {
		return db, nil
	}
	if !m.Configured() {
		return nil, fmt.Errorf("database: %w", apperrors.ErrNotConfigured)
	}

	m.connectMu.Lock()
	defer m.connectMu.Unlock()
	if db := m.current(); db != nil {
		return db, nil
	}

	driverName, dsn := m.dataSource()
	db, err := m.open(driverName, dsn)
	if err != nil {
		m.recordError(err)
		return nil, fmt.Errorf("database open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.GetDBConnectTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		m.recordError(err)
		log.Err(err).Str("driver", m.Dialect()).Str("mode", m.Mode()).Msg("Database connection failed")
		return nil, fmt.Errorf("database connect: %w", err)
	}

	if m.cfg.GetDBMigrate() {
		if err := m.migrate(ctx, db, m.Dialect()); err != nil {
			_ = db.Close()
			m.recordError(err)
			log.Err(err).Msg("Database migrations failed")
			return nil, fmt.Errorf("database migrate: %w", err)
		}
	}

	m.mu.Lock()
	m.db = db
	m.lastErr = nil
	m.mu.Unlock()
	log.Info().Str("driver", m.Dialect()).Str("mode", m.Mode()).Msg("Connected to database")
	return db, nil
}

func (m *Manager) current() *sql.DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// dataSource resolves the database/sql driver name and DSN.
func (m *Manager) dataSource() (driverName string, dsn string) {
	if m.Dialect() == config.DriverSQLite {
		return "sqlite", m.cfg.GetDBConnectionString()
	}
	if cs := m.cfg.GetDBConnectionString(); cs != "" {
		return "pgx", cs
	}

	sslMode := "disable"
	if m.cfg.GetDBSSL() {
		sslMode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(m.cfg.GetDBUser(), m.cfg.GetDBPassword()),
		Host:     net.JoinHostPort(m.cfg.GetDBHost(), strconv.Itoa(m.cfg.GetDBPort())),
		Path:     "/" + m.cfg.GetDBName(),
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return "pgx", u.String()
}
