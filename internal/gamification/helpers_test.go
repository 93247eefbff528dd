package gamification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/database"
	"github.com/sankofa-trivia/backend/internal/storage"
)

var testStart = time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.MigrateSQLite(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(storage.NewSQLiteKV(db), db)
}

type fixture struct {
	store   *Store
	clock   *clock.Manual
	ledger  *Ledger
	streaks *StreakTracker
	daily   *DailyGate
	mirror  *recordingMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newTestStore(t)
	clk := clock.NewManual(testStart)
	mirror := &recordingMirror{}
	return &fixture{
		store:   store,
		clock:   clk,
		ledger:  NewLedger(store, mirror, clk),
		streaks: NewStreakTracker(store, clk, time.UTC),
		daily:   NewDailyGate(store, clk, time.UTC),
		mirror:  mirror,
	}
}

func (f *fixture) service() *Service {
	migrator := NewMigrator(f.store, f.clock, StreakCompensation(f.streaks))
	return NewService(f.store, f.ledger, f.streaks, f.daily, migrator, nil)
}

type recordingMirror struct {
	mu     sync.Mutex
	fields map[string]interface{}
	pushes int
}

func (m *recordingMirror) Push(identity, field string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fields == nil {
		m.fields = make(map[string]interface{})
	}
	m.fields[identity+"/"+field] = value
	m.pushes++
}

func (m *recordingMirror) get(identity, field string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.fields[identity+"/"+field]
	return v, ok
}

// failingKV reads as empty and rejects every write.
type failingKV struct{}

func (failingKV) Get(ctx context.Context, identity, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (failingKV) Put(ctx context.Context, identity, key string, value []byte) error {
	return errors.New("disk full")
}
