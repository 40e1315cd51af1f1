package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gastos/internal/core"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLiteDSN builds a modernc sqlite DSN with foreign keys enforced and
// write transactions started with BEGIN IMMEDIATE.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(dsnPath(dsn)), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single writer connection; concurrent callers queue on the pool.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(driver, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func dsnPath(dsn string) string {
	p, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return p
}

// Store runs queries against either the database handle or an open
// transaction.
type Store struct {
	q       sqlx.ExtContext
	driver  string
	timeout time.Duration
}

// Repository owns the connection pool and hands out transactional Stores.
type Repository struct {
	*Store
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB, timeout time.Duration) *Repository {
	return &Repository{
		Store: &Store{q: db, driver: db.DriverName(), timeout: timeout},
		db:    db,
	}
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return infraErr("ping database", err)
	}
	return nil
}

// WithTx runs fn inside a single database transaction. The transaction is
// committed only when fn returns nil.
func (r *Repository) WithTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return infraErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx, driver: r.driver, timeout: r.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return infraErr("commit transaction", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sqlx.GetContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

func (s *Store) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sqlx.SelectContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// forUpdate appends a row lock where the driver supports one. sqlite
// transactions already hold the database write lock from BEGIN IMMEDIATE.
func (s *Store) forUpdate(query string) string {
	if s.driver == DriverPostgres {
		return query + " FOR UPDATE"
	}
	return query
}

func infraErr(op string, err error) error {
	return &core.ErrInfrastructure{Op: op, Err: err}
}

// lookupErr maps a missing row to ErrNotFound and anything else to an
// infrastructure error.
func lookupErr(resource, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.ErrNotFound{Resource: resource, ID: id}
	}
	return infraErr("get "+resource, err)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// nullable turns empty optional references into NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
