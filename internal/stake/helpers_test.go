package stake

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/database"
	"github.com/sankofa-trivia/backend/internal/gamification"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sankofa-trivia/backend/internal/storage"
)

var testStart = time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)

type env struct {
	kv     storage.KV
	ledger *gamification.Ledger
	clock  *clock.Manual
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.MigrateSQLite(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	kv := storage.NewSQLiteKV(db)
	clk := clock.NewManual(testStart)
	return &env{
		kv:     kv,
		ledger: gamification.NewLedger(gamification.NewStore(kv, db), nil, clk),
		clock:  clk,
	}
}

func (e *env) fund(t *testing.T, identity string, xp int64) {
	t.Helper()
	if _, err := e.ledger.AddXP(context.Background(), identity, xp, "test"); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (e *env) balance(t *testing.T, identity string) int64 {
	t.Helper()
	xp, err := e.ledger.GetXP(context.Background(), identity)
	if err != nil {
		t.Fatalf("GetXP: %v", err)
	}
	return xp
}

// fakeQuestions serves questions 1..n in id order. Every answer is "right".
type fakeQuestions struct {
	qs    []models.Question
	draws int
}

func newFakeQuestions(n int) *fakeQuestions {
	f := &fakeQuestions{}
	for i := 1; i <= n; i++ {
		f.qs = append(f.qs, models.Question{
			ID:      int64(i),
			Prompt:  fmt.Sprintf("Question %d?", i),
			Options: []string{"wrong", "right"},
			Answer:  "right",
		})
	}
	return f
}

func (f *fakeQuestions) Draw(ctx context.Context, category string, count int, exclude []int64) ([]models.Question, error) {
	f.draws++
	skip := make(map[int64]bool)
	for _, id := range exclude {
		skip[id] = true
	}
	var out []models.Question
	for _, q := range f.qs {
		if !skip[q.ID] {
			out = append(out, q)
		}
		if len(out) == count {
			return out, nil
		}
	}
	return nil, models.ErrContentExhausted
}
