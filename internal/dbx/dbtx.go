// Package dbx provides the small database/sql abstractions shared by the SQL
// repositories: the DBTX interface satisfied by *sql.DB and *sql.Tx, and
// placeholder rebinding between dialects.
package dbx

import (
	"context"
	"database/sql"
	"regexp"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connector hands out a live DBTX on demand. Implementations may connect
// lazily, so every call can fail.
type Connector interface {
	Conn(ctx context.Context) (DBTX, error)
	Dialect() string
}

var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $N placeholders to ? for dialects that expect them.
// Queries must use each placeholder once, in order.
func Rebind(dialect, query string) string {
	if dialect != "sqlite" {
		return query
	}
	return dollarPlaceholder.ReplaceAllString(query, "?")
}

type staticConnector struct {
	db      DBTX
	dialect string
}

// Static wraps an already open handle as a Connector.
func Static(db DBTX, dialect string) Connector {
	return staticConnector{db: db, dialect: dialect}
}

func (c staticConnector) Conn(context.Context) (DBTX, error) {
	return c.db, nil
}

func (c staticConnector) Dialect() string {
	return c.dialect
}
