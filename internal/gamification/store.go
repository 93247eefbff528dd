package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sankofa-trivia/backend/internal/storage"
)

const (
	keyProgress = "progress"
	keyStreak   = "streak"
	keyDaily    = "daily"
	flagPrefix  = "migration:"
)

type Store struct {
	kv storage.KV
	db *sql.DB
}

// NewStore wires the per-identity key/value store. db backs the XP event
// journal and may be nil, in which case events are not recorded.
func NewStore(kv storage.KV, db *sql.DB) *Store {
	return &Store{kv: kv, db: db}
}

// ── Progress ────────────────────────────────────────────

func (s *Store) LoadProgress(ctx context.Context, identity string) (models.PlayerProgress, error) {
	p := models.PlayerProgress{ActiveBuffs: []models.Buff{}}
	if _, err := storage.GetJSON(ctx, s.kv, identity, keyProgress, &p); err != nil {
		return models.PlayerProgress{}, fmt.Errorf("load progress: %w", err)
	}
	if p.ActiveBuffs == nil {
		p.ActiveBuffs = []models.Buff{}
	}
	return p, nil
}

func (s *Store) SaveProgress(ctx context.Context, identity string, p models.PlayerProgress) error {
	if err := storage.PutJSON(ctx, s.kv, identity, keyProgress, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// ── Streak ──────────────────────────────────────────────

func (s *Store) LoadStreak(ctx context.Context, identity string) (models.StreakState, error) {
	var st models.StreakState
	if _, err := storage.GetJSON(ctx, s.kv, identity, keyStreak, &st); err != nil {
		return models.StreakState{}, fmt.Errorf("load streak: %w", err)
	}
	return st, nil
}

func (s *Store) SaveStreak(ctx context.Context, identity string, st models.StreakState) error {
	if err := storage.PutJSON(ctx, s.kv, identity, keyStreak, st); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

// ── Daily Challenge ─────────────────────────────────────

func (s *Store) LoadDaily(ctx context.Context, identity string) (models.DailyChallengeState, error) {
	var d models.DailyChallengeState
	if _, err := storage.GetJSON(ctx, s.kv, identity, keyDaily, &d); err != nil {
		return models.DailyChallengeState{}, fmt.Errorf("load daily: %w", err)
	}
	return d, nil
}

func (s *Store) SaveDaily(ctx context.Context, identity string, d models.DailyChallengeState) error {
	if err := storage.PutJSON(ctx, s.kv, identity, keyDaily, d); err != nil {
		return fmt.Errorf("save daily: %w", err)
	}
	return nil
}

// ── Migration Flags ─────────────────────────────────────

type migrationFlag struct {
	AppliedAt time.Time `json:"applied_at"`
}

func (s *Store) MigrationApplied(ctx context.Context, identity, name string) (bool, error) {
	var f migrationFlag
	found, err := storage.GetJSON(ctx, s.kv, identity, flagPrefix+name, &f)
	if err != nil {
		return false, fmt.Errorf("load migration flag %s: %w", name, err)
	}
	return found, nil
}

func (s *Store) MarkMigrationApplied(ctx context.Context, identity, name string, at time.Time) error {
	if err := storage.PutJSON(ctx, s.kv, identity, flagPrefix+name, migrationFlag{AppliedAt: at}); err != nil {
		return fmt.Errorf("mark migration %s: %w", name, err)
	}
	return nil
}

// ── XP Event Journal ────────────────────────────────────

func (s *Store) LogXPEvent(ctx context.Context, identity, eventType string, xpAmount int64, metadata map[string]interface{}, at time.Time) error {
	if s.db == nil {
		return nil
	}
	var metaJSON *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err == nil {
			m := string(b)
			metaJSON = &m
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO xp_events (identity, event_type, xp_amount, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		identity, eventType, xpAmount, metaJSON, at.UTC().UnixMilli(),
	)
	return err
}

func (s *Store) ListXPEvents(ctx context.Context, identity string, limit int) ([]models.XPEvent, error) {
	events := []models.XPEvent{}
	if s.db == nil {
		return events, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity, event_type, xp_amount, COALESCE(metadata, ''), created_at
		 FROM xp_events WHERE identity = ?
		 ORDER BY id DESC LIMIT ?`,
		identity, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list xp events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.XPEvent
		var createdMs int64
		if err := rows.Scan(&e.ID, &e.Identity, &e.EventType, &e.XPAmount, &e.Metadata, &createdMs); err != nil {
			return nil, fmt.Errorf("scan xp event: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
