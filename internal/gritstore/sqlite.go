package gritstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/db"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

// SqliteStore is a Store backed by internal/db's sqlite plumbing: the
// mattn/go-sqlite3 driver, golang-migrate embedded migrations, and the
// TransactionExecutor retry-on-serialization-error wrapper.
type SqliteStore struct {
	inner *db.SqliteStore
}

// SqliteConfig configures a SqliteStore.
type SqliteConfig struct {
	// DatabaseFileName is the full path to the sqlite database file.
	DatabaseFileName string

	// SkipMigrations skips running migrations on open; used in tests
	// that manage the schema themselves.
	SkipMigrations bool

	// SkipMigrationDBBackup skips the VACUUM INTO backup normally taken
	// before applying a pending migration.
	SkipMigrationDBBackup bool
}

// NewSqliteStore opens (creating if necessary) a sqlite-backed object store.
// A nil logger defaults to slog.Default().
func NewSqliteStore(cfg SqliteConfig, log *slog.Logger) (*SqliteStore, error) {
	if log == nil {
		log = slog.Default()
	}

	inner, err := db.NewSqliteStore(&db.SqliteConfig{
		DatabaseFileName:      cfg.DatabaseFileName,
		SkipMigrations:        cfg.SkipMigrations,
		SkipMigrationDBBackup: cfg.SkipMigrationDBBackup,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("gritstore: opening sqlite store: %w", err)
	}

	return &SqliteStore{inner: inner}, nil
}

func (s *SqliteStore) Put(ctx context.Context, o grit.Object) (grit.ObjectId, error) {
	id := grit.Hash(o)
	body := grit.Encode(o)

	err := s.inner.WithTx(ctx, func(ctx context.Context, q *db.Queries) error {
		return q.PutObject(ctx, id[:], body)
	})
	if err != nil {
		return grit.ObjectId{}, mapStorageError(err)
	}
	return id, nil
}

func (s *SqliteStore) Get(ctx context.Context, id grit.ObjectId) (grit.Object, error) {
	body, err := s.inner.Queries().GetObject(ctx, id[:])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapStorageError(err)
	}

	o, err := grit.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("gritstore: decoding stored object %s: %w", id, err)
	}
	return o, nil
}

func (s *SqliteStore) SetRef(ctx context.Context, name string, id grit.ObjectId) error {
	err := s.inner.WithTx(ctx, func(ctx context.Context, q *db.Queries) error {
		return q.SetRef(ctx, name, id[:])
	})
	return mapStorageError(err)
}

func (s *SqliteStore) GetRef(ctx context.Context, name string) (grit.ObjectId, error) {
	target, err := s.inner.Queries().GetRef(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return grit.ObjectId{}, ErrNotFound
	}
	if err != nil {
		return grit.ObjectId{}, mapStorageError(err)
	}

	var id grit.ObjectId
	copy(id[:], target)
	return id, nil
}

func (s *SqliteStore) GetRefs(
	ctx context.Context, prefix string,
) (map[string]grit.ObjectId, error) {

	rows, err := s.inner.Queries().GetRefs(ctx, prefix)
	if err != nil {
		return nil, mapStorageError(err)
	}

	out := make(map[string]grit.ObjectId, len(rows))
	for _, r := range rows {
		var id grit.ObjectId
		copy(id[:], r.Target)
		out[r.Name] = id
	}
	return out, nil
}

func (s *SqliteStore) DeleteRef(ctx context.Context, name string) error {
	err := s.inner.WithTx(ctx, func(ctx context.Context, q *db.Queries) error {
		return q.DeleteRef(ctx, name)
	})
	return mapStorageError(err)
}

func (s *SqliteStore) Close() error {
	return s.inner.Close()
}

// mapStorageError classifies a raw sqlite error into the grit storage error
// kinds from spec.md §7: SQLITE_FULL/SQLITE_BUSY become the recoverable
// ErrStorageFull, everything else becomes the fatal ErrStorageError. This is
// a distinct concern from internal/db's sqlerrors.go classification, which
// exists to drive transaction retries, not to surface a capacity signal to
// callers.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrFull, sqlite3.ErrBusy:
			return fmt.Errorf("%w: %v", ErrStorageFull, sqliteErr)
		}
	}

	return fmt.Errorf("%w: %v", ErrStorageError, err)
}
