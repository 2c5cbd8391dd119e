package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/signature"
)

var (
	entryPrefix = []byte("ref/")
	sequenceKey = []byte("seq/ref")
)

// BadgerConfig tunes the embedded backend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives badger's own log lines. Nil disables them.
	Logger *slog.Logger
	// SequenceLease is how many ids are reserved per sequence lease.
	SequenceLease uint64
}

// DefaultBadgerConfig returns durable settings for on-disk use.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:    true,
		SequenceLease: 1000,
	}
}

// InMemoryBadgerConfig returns settings for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:      true,
		SequenceLease: 100,
	}
}

// BadgerStore keeps entries under big-endian id keys so id ranges are
// contiguous key ranges.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// badgerValue is the gob payload stored per entry. The id lives in the key.
type badgerValue struct {
	Namespace    string
	LibName      string
	Version      string
	FunctionName string
	CreatedAt    time.Time
	SimHash      []byte
	MinHash      []byte
}

// OpenBadger opens the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	lease := cfg.SequenceLease
	if lease == 0 {
		lease = 1000
	}
	seq, err := db.GetSequence(sequenceKey, lease)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}
	debug.LogIndexing("badger store opened (in-memory=%v, path=%s)\n", cfg.InMemory, cfg.Path)
	return &BadgerStore{db: db, seq: seq}, nil
}

// OpenBadgerInMemory opens a throwaway store.
func OpenBadgerInMemory() (*BadgerStore, error) {
	return OpenBadger(InMemoryBadgerConfig())
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.seq.Release(); err != nil {
		debug.Warn("release badger sequence", "error", err)
	}
	return s.db.Close()
}

func entryKey(id int64) []byte {
	key := make([]byte, len(entryPrefix)+8)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint64(key[len(entryPrefix):], uint64(id))
	return key
}

func keyID(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(entryPrefix):]))
}

// InsertBatch writes entries in one badger transaction. A batch too large for
// one transaction is split; if a later part fails, parts already committed
// are deleted again so the batch stays all-or-nothing.
func (s *BadgerStore) InsertBatch(ctx context.Context, entries []ReferenceEntry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	type encoded struct {
		key   []byte
		value []byte
	}
	items := make([]encoded, len(entries))
	for i := range entries {
		e := &entries[i]
		next, err := s.seq.Next()
		if err != nil {
			return lerrors.NewStoreError("allocate id", true, err)
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(badgerValue{
			Namespace:    e.Namespace,
			LibName:      e.LibName,
			Version:      e.Version,
			FunctionName: e.FunctionName,
			CreatedAt:    createdAt(e),
			SimHash:      e.SimHash.Bytes(),
			MinHash:      e.MinHash.Bytes(),
		}); err != nil {
			return lerrors.NewStoreError("encode entry", false, err)
		}
		// Sequences start at zero; ids start at one.
		items[i] = encoded{key: entryKey(int64(next) + 1), value: buf.Bytes()}
	}

	var committed [][]byte
	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()
	pending := make([][]byte, 0, len(items))

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			s.rollback(committed)
			return err
		}
		err := txn.Set(it.key, it.value)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				s.rollback(committed)
				return badgerError("commit insert", err)
			}
			committed = append(committed, pending...)
			pending = pending[:0]
			txn = s.db.NewTransaction(true)
			err = txn.Set(it.key, it.value)
		}
		if err != nil {
			s.rollback(committed)
			return badgerError("insert", err)
		}
		pending = append(pending, it.key)
	}
	if err := txn.Commit(); err != nil {
		s.rollback(committed)
		return badgerError("commit insert", err)
	}
	return nil
}

// rollback removes keys of a partially committed batch.
func (s *BadgerStore) rollback(keys [][]byte) {
	if len(keys) == 0 {
		return
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			debug.Error("badger rollback delete", "error", err)
			return
		}
	}
	if err := wb.Flush(); err != nil {
		debug.Error("badger rollback flush", "error", err)
	}
}

func (s *BadgerStore) MaxID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, entryPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seek)
		if it.ValidForPrefix(entryPrefix) {
			id = keyID(it.Item().Key())
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, badgerError("max id", err)
	}
	return id, nil
}

func (s *BadgerStore) LoadRange(ctx context.Context, from, to int64) ([]ReferenceEntry, error) {
	if from < 1 {
		from = 1
	}
	var out []ReferenceEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(entryKey(from)); it.ValidForPrefix(entryPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := keyID(item.Key())
			if id > to {
				break
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy value: %w", err)
			}
			entry, err := decodeBadgerValue(id, raw)
			if err != nil {
				return lerrors.NewStoreError("load range", false, err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, badgerError("load range", err)
	}
	return out, nil
}

func decodeBadgerValue(id int64, raw []byte) (ReferenceEntry, error) {
	var v badgerValue
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return ReferenceEntry{}, fmt.Errorf("entry %d: decode: %w", id, err)
	}
	sim, err := signature.SimHashFromBytes(v.SimHash)
	if err != nil {
		return ReferenceEntry{}, fmt.Errorf("entry %d: %w", id, err)
	}
	mh, err := signature.MinHashFromBytes(v.MinHash)
	if err != nil {
		return ReferenceEntry{}, fmt.Errorf("entry %d: %w", id, err)
	}
	return ReferenceEntry{
		ID:           id,
		Namespace:    v.Namespace,
		LibName:      v.LibName,
		Version:      v.Version,
		FunctionName: v.FunctionName,
		CreatedAt:    v.CreatedAt.UTC(),
		SimHash:      sim,
		MinHash:      mh,
	}, nil
}

// badgerError wraps err as a StoreError. Write conflicts are transient.
func badgerError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var serr *lerrors.StoreError
	if errors.As(err, &serr) {
		return err
	}
	return lerrors.NewStoreError(op, errors.Is(err, badger.ErrConflict), err)
}
