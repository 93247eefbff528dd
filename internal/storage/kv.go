package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// KV is a per-identity key/value store with whole-value overwrites. A
// missing key is not an error: Get reports found=false.
type KV interface {
	Get(ctx context.Context, identity, key string) ([]byte, bool, error)
	Put(ctx context.Context, identity, key string, value []byte) error
}

type SQLiteKV struct {
	db *sql.DB
}

func NewSQLiteKV(db *sql.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

func (s *SQLiteKV) Get(ctx context.Context, identity, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE identity = ? AND key = ?`,
		identity, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", identity, key, err)
	}
	return value, true, nil
}

func (s *SQLiteKV) Put(ctx context.Context, identity, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_store (identity, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (identity, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		identity, key, value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", identity, key, err)
	}
	return nil
}

// GetJSON decodes the stored value into dst. It reports false and leaves
// dst untouched when the key has never been written.
func GetJSON(ctx context.Context, kv KV, identity, key string, dst interface{}) (bool, error) {
	raw, ok, err := kv.Get(ctx, identity, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", identity, key, err)
	}
	return true, nil
}

func PutJSON(ctx context.Context, kv KV, identity, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", identity, key, err)
	}
	return kv.Put(ctx, identity, key, raw)
}
