package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"github.com/sjoshi/portfolio-api/internal/config"
	"github.com/sjoshi/portfolio-api/internal/database/migrations"
)

// RunMigrations applies the embedded migrations for the given dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	gooseDialect := "postgres"
	if dialect == config.DriverSQLite {
		gooseDialect = "sqlite3"
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("goose dialect %s: %w", gooseDialect, err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	log.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	log.Fatal().Msgf(strings.TrimSpace(format), v...)
}
