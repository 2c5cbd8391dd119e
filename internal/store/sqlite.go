package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/signature"
)

// SQLiteConfig tunes the SQLite backend.
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	BatchSize    int // rows per multi-row INSERT inside one transaction
	BusyTimeout  time.Duration
}

// SQLiteStore keeps the corpus in a single SQLite table.
type SQLiteStore struct {
	db        *sqlx.DB
	batchSize int
}

type entryRow struct {
	ID           int64          `db:"id"`
	Namespace    sql.NullString `db:"namespace"`
	LibName      string         `db:"lib_name"`
	Version      string         `db:"version"`
	FunctionName string         `db:"function_name"`
	CreatedAt    time.Time      `db:"created_at"`
	SimHash      []byte         `db:"simhash"`
	MinHash      []byte         `db:"minhash"`
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS reference_entries (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                namespace TEXT,
                lib_name TEXT NOT NULL,
                version TEXT NOT NULL,
                function_name TEXT NOT NULL,
                created_at DATETIME NOT NULL,
                simhash BLOB NOT NULL,
                minhash BLOB NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_reference_lib_version ON reference_entries(lib_name, version);`,
}

const insertEntry = `INSERT INTO reference_entries
        (namespace, lib_name, version, function_name, created_at, simhash, minhash)
        VALUES (:namespace, :lib_name, :version, :function_name, :created_at, :simhash, :minhash)`

// OpenSQLite opens (and migrates) the database at cfg.Path.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	// journal_mode cannot change inside the migration transaction.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, batchSize: cfg.BatchSize}
	if s.batchSize <= 0 {
		s.batchSize = 500
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	debug.LogIndexing("sqlite store opened at %s\n", abs)
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertBatch inserts entries in chunks of the configured batch size, all
// inside a single transaction.
func (s *SQLiteStore) InsertBatch(ctx context.Context, entries []ReferenceEntry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	rows := make([]entryRow, len(entries))
	for i := range entries {
		e := &entries[i]
		rows[i] = entryRow{
			Namespace:    sql.NullString{String: e.Namespace, Valid: e.Namespace != ""},
			LibName:      e.LibName,
			Version:      e.Version,
			FunctionName: e.FunctionName,
			CreatedAt:    createdAt(e),
			SimHash:      e.SimHash.Bytes(),
			MinHash:      e.MinHash.Bytes(),
		}
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return sqliteError("begin insert", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, insertEntry, rows[start:end]); err != nil {
			return sqliteError("insert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sqliteError("commit insert", err)
	}
	committed = true
	return nil
}

func (s *SQLiteStore) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.GetContext(ctx, &id, `SELECT COALESCE(MAX(id), 0) FROM reference_entries`); err != nil {
		return 0, sqliteError("max id", err)
	}
	return id, nil
}

func (s *SQLiteStore) LoadRange(ctx context.Context, from, to int64) ([]ReferenceEntry, error) {
	rows := []entryRow{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM reference_entries WHERE id >= ? AND id <= ? ORDER BY id`, from, to); err != nil {
		return nil, sqliteError("load range", err)
	}

	out := make([]ReferenceEntry, 0, len(rows))
	for _, r := range rows {
		sim, err := signature.SimHashFromBytes(r.SimHash)
		if err != nil {
			return nil, lerrors.NewStoreError("load range", false, fmt.Errorf("entry %d: %w", r.ID, err))
		}
		mh, err := signature.MinHashFromBytes(r.MinHash)
		if err != nil {
			return nil, lerrors.NewStoreError("load range", false, fmt.Errorf("entry %d: %w", r.ID, err))
		}
		out = append(out, ReferenceEntry{
			ID:           r.ID,
			Namespace:    r.Namespace.String,
			LibName:      r.LibName,
			Version:      r.Version,
			FunctionName: r.FunctionName,
			CreatedAt:    r.CreatedAt.UTC(),
			SimHash:      sim,
			MinHash:      mh,
		})
	}
	return out, nil
}

// sqliteError wraps err as a StoreError. Busy and locked databases are
// transient.
func sqliteError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	transient := false
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			transient = true
		}
	}
	return lerrors.NewStoreError(op, transient, err)
}
