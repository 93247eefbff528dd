package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresSink merges each field into a JSONB document per identity.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, identity, field string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_mirror (identity, document, updated_at)
		 VALUES ($1, jsonb_build_object($2::text, $3::jsonb), NOW())
		 ON CONFLICT (identity) DO UPDATE
		 SET document = player_mirror.document || EXCLUDED.document,
		     updated_at = NOW()`,
		identity, field, string(value),
	)
	if err != nil {
		return fmt.Errorf("postgres mirror write: %w", err)
	}
	return nil
}
