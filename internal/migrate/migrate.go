package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sql/mysql/*.sql sql/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Run applies pending migrations for the given goose dialect ("mysql" or
// "sqlite3"). Files live under internal/migrate/sql/<dialect> and are named
// like 00001_description.sql with goose Up/Down annotations.
func Run(ctx context.Context, db *sql.DB, dialect string, log *slog.Logger) error {
	dir, err := dirFor(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: log})
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if after == before {
		log.Debug("schema up to date", slog.Int64("version", after))
	} else {
		log.Info("schema migrated", slog.Int64("from", before), slog.Int64("to", after))
	}
	return nil
}

func dirFor(dialect string) (string, error) {
	switch dialect {
	case "mysql":
		return "sql/mysql", nil
	case "sqlite3", "sqlite":
		return "sql/sqlite", nil
	default:
		return "", fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
}

// gooseLogger routes goose output through slog.
type gooseLogger struct{ log *slog.Logger }

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}
