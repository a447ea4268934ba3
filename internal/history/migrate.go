package history

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseDialects maps store drivers to goose dialects.
var gooseDialects = map[string]string{
	DriverSQLite:   "sqlite3",
	DriverPostgres: "postgres",
}

// gooseLogger forwards goose output to slog at debug level.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level. Migration failures reach the caller as the
// error returned by goose.
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (s *SQLStore) configureGoose() error {
	dialect, ok := gooseDialects[s.driver]
	if !ok {
		return fmt.Errorf("no migration dialect for driver %q", s.driver)
	}

	// Configure goose for embedded migrations
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: s.logger})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate runs all pending database migrations.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if err := s.configureGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current migration version.
func (s *SQLStore) MigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	if err := s.configureGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, s.db)
}
