package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// DefaultTemplateTTL is how long a saved question template stays valid.
const DefaultTemplateTTL = 7 * 24 * time.Hour

// Store owns the database handle and hands out repositories.
type Store struct {
	drv         *entsql.Driver
	templateTTL time.Duration
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTemplateTTL overrides DefaultTemplateTTL.
func WithTemplateTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.templateTTL = d
		}
	}
}

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs migrations.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; pragmas are per connection.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := applyPragmas(ctx, drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Store{drv: drv, templateTTL: DefaultTemplateTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.drv.DB()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Documents returns a DocumentRepo backed by this store.
func (s *Store) Documents() DocumentRepo {
	return &documentRepo{drv: s.drv, now: s.now}
}

// Templates returns a TemplateRepo backed by this store.
func (s *Store) Templates() TemplateRepo {
	return &templateRepo{drv: s.drv, ttl: s.templateTTL, now: s.now}
}

// Attempts returns an AttemptRepo backed by this store.
func (s *Store) Attempts() AttemptRepo {
	return &attemptRepo{drv: s.drv}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{drv: s.drv, now: s.now}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(ctx context.Context, drv dialect.ExecQuerier) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if err := drv.Exec(ctx, p, []any{}, nil); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PDFQUIZ_DB environment variable
// 2. $XDG_DATA_HOME/pdfquiz/pdfquiz.db
// 3. ~/.local/share/pdfquiz/pdfquiz.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PDFQUIZ_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "pdfquiz.db")
	return p, EnsureDir(p)
}

// DataDir returns $XDG_DATA_HOME/pdfquiz, defaulting to
// ~/.local/share/pdfquiz.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pdfquiz"), nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
