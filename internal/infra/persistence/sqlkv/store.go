// Package sqlkv implements kv.Store over a single SQL table of
// (bucket, payload) rows. Driver-specific packages open the database and
// apply migrations before handing it to New.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskcore/internal/kv"

	sq "github.com/Masterminds/squirrel"
)

// Table is the name of the bucket table created by the migrations.
const Table = "state"

var (
	_ kv.Store   = (*Store)(nil)
	_ kv.Batcher = (*Store)(nil)
)

// Store persists whole values as rows of the state table.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	nowFn   func() time.Time
}

// New wraps an open database. placeholder selects the driver's bind syntax.
func New(db *sql.DB, placeholder sq.PlaceholderFormat) *Store {
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.builder.Select("payload").From(Table).Where(sq.Eq{"bucket": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var payload []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

func (s *Store) upsert(key string, value []byte) (string, []interface{}, error) {
	return s.builder.Insert(Table).
		Columns("bucket", "payload", "updated_at").
		Values(key, value, s.nowFn()).
		Suffix("ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
}

// Put implements kv.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.PutBatch(ctx, []kv.Entry{{Key: key, Value: value}})
}

// PutBatch writes every entry in one database transaction.
func (s *Store) PutBatch(ctx context.Context, entries []kv.Entry) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, e := range entries {
		query, args, err := s.upsert(e.Key, e.Value)
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	query, args, err := s.builder.Delete(Table).Where(sq.Eq{"bucket": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys implements kv.Store.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	query, args, err := s.builder.Select("bucket").From(Table).OrderBy("bucket").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return keys, nil
}

// Close implements kv.Store.
func (s *Store) Close() error { return s.db.Close() }
