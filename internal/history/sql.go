package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql. Queries are written with ?
// placeholders and rebound for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open database. It does not run migrations.
func NewSQLStore(db *sql.DB, driver string, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{db: db, driver: driver, logger: logger}
}

// Open connects to the history database and migrates it.
// For sqlite, dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
		if dsn != ":memory:" {
			if dir := filepath.Dir(sqlitePath(dsn)); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return nil, fmt.Errorf("failed to create history directory: %w", err)
				}
			}
			dsn = withPragmas(dsn)
		}
	case DriverPostgres:
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// An in-memory database lives on a single connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	s := NewSQLStore(db, driver, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("history store opened", "driver", driver)
	return s, nil
}

// sqlitePragmas are applied to file databases.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// sqlitePath strips the file: scheme and query string from a sqlite DSN.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// withPragmas appends sqlitePragmas to the query string of dsn.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind converts ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// Record stores an evaluation.
func (s *SQLStore) Record(ctx context.Context, rec Record) (Record, error) {
	if s.db == nil {
		return Record{}, fmt.Errorf("database not opened")
	}

	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var result sql.NullInt64
	if rec.Result != nil {
		result = sql.NullInt64{Int64: *rec.Result, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO evaluations (id, expression, result, error_kind, error_message, source, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Expression, result, rec.ErrorKind, rec.Error, rec.Source, rec.Duration.Nanoseconds(), rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to record evaluation: %w", err)
	}

	return rec, nil
}

const selectColumns = `SELECT id, expression, result, error_kind, error_message, source, duration_ns, created_at FROM evaluations`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		result   sql.NullInt64
		duration int64
	)
	if err := row.Scan(&rec.ID, &rec.Expression, &result, &rec.ErrorKind, &rec.Error, &rec.Source, &duration, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if result.Valid {
		v := result.Int64
		rec.Result = &v
	}
	rec.Duration = time.Duration(duration)
	return rec, nil
}

// List returns records newest first.
func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := selectColumns
	var args []any
	if opts.ErrorsOnly {
		query += ` WHERE error_kind <> ''`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record with the given ID.
func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	if s.db == nil {
		return Record{}, fmt.Errorf("database not opened")
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get history record: %w", err)
	}
	return rec, nil
}

// Clear deletes all records.
func (s *SQLStore) Clear(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Debug("history cleared", "deleted", n)
	return n, nil
}

// Stats summarizes outcomes by error kind.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	if s.db == nil {
		return Stats{}, fmt.Errorf("database not opened")
	}

	st := Stats{ByKind: map[string]int{}}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN error_kind <> '' THEN 1 ELSE 0 END), 0) FROM evaluations`,
	).Scan(&st.Total, &st.Failed)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count history: %w", err)
	}
	st.Succeeded = st.Total - st.Failed

	rows, err := s.db.QueryContext(ctx,
		`SELECT error_kind, COUNT(*) FROM evaluations WHERE error_kind <> '' GROUP BY error_kind ORDER BY error_kind`,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to group history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return Stats{}, fmt.Errorf("failed to scan history stats: %w", err)
		}
		st.ByKind[kind] = n
	}
	return st, rows.Err()
}
