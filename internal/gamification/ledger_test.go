package gamification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sankofa-trivia/backend/internal/storage"
)

func TestLedger_NewIdentityStartsAtZero(t *testing.T) {
	f := newFixture(t)

	snap, err := f.ledger.Snapshot(context.Background(), "ama")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.TotalXP != 0 || snap.Level != 1 || snap.Rank != RankTourist {
		t.Errorf("Snapshot() = %+v, want zero progress at level 1", snap)
	}
	if snap.ActiveBuffs == nil {
		t.Error("ActiveBuffs is nil, want empty slice")
	}
}

func TestLedger_AddAndSpend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	credited, err := f.ledger.AddXP(ctx, "ama", 100, "test")
	if err != nil || credited != 100 {
		t.Fatalf("AddXP(100) = %d, %v; want 100", credited, err)
	}

	ok, err := f.ledger.SpendXP(ctx, "ama", 150, "test")
	if err != nil || ok {
		t.Fatalf("SpendXP(150) = %v, %v; want false", ok, err)
	}
	if xp, _ := f.ledger.GetXP(ctx, "ama"); xp != 100 {
		t.Errorf("balance after refused spend = %d, want 100", xp)
	}

	ok, err = f.ledger.SpendXP(ctx, "ama", 40, "test")
	if err != nil || !ok {
		t.Fatalf("SpendXP(40) = %v, %v; want true", ok, err)
	}
	if xp, _ := f.ledger.GetXP(ctx, "ama"); xp != 60 {
		t.Errorf("balance = %d, want 60", xp)
	}
}

func TestLedger_InvalidAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ledger.AddXP(ctx, "ama", -1, "test"); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("AddXP(-1) error = %v, want ErrInvalidAmount", err)
	}
	if _, err := f.ledger.SpendXP(ctx, "ama", 0, "test"); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("SpendXP(0) error = %v, want ErrInvalidAmount", err)
	}
}

func TestLedger_MultiplierBuffExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expires := f.clock.Now().Add(2 * time.Hour)
	if err := f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffMultiplier, Value: 1.5, ExpiresAt: &expires}); err != nil {
		t.Fatalf("AddBuff() error = %v", err)
	}

	credited, _ := f.ledger.AddXP(ctx, "ama", 100, "test")
	if credited != 150 {
		t.Errorf("AddXP(100) with 1.5x = %d, want 150", credited)
	}

	f.clock.Advance(2*time.Hour + time.Second)

	snap, _ := f.ledger.Snapshot(ctx, "ama")
	if len(snap.ActiveBuffs) != 0 || snap.Multiplier != 1 {
		t.Errorf("expired buff still visible: %+v", snap)
	}
	credited, _ = f.ledger.AddXP(ctx, "ama", 100, "test")
	if credited != 100 {
		t.Errorf("AddXP(100) after expiry = %d, want 100", credited)
	}
}

func TestLedger_HighestMultiplierWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expires := f.clock.Now().Add(time.Hour)
	f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffMultiplier, Value: 1.5, ExpiresAt: &expires})
	f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffMultiplier, Value: 2, ExpiresAt: &expires})

	credited, _ := f.ledger.AddXP(ctx, "ama", 10, "test")
	if credited != 20 {
		t.Errorf("AddXP(10) = %d, want 20", credited)
	}
}

func TestLedger_ShieldSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffShield, Value: 1})

	if ok, _ := f.ledger.ConsumeShield(ctx, "ama"); !ok {
		t.Fatal("first ConsumeShield() = false, want true")
	}
	if ok, _ := f.ledger.ConsumeShield(ctx, "ama"); ok {
		t.Error("second ConsumeShield() = true, want false")
	}
}

func TestLedger_ExpiredShieldIsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.clock.Now().Add(-time.Minute)
	f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffShield, Value: 1, ExpiresAt: &past})

	if ok, _ := f.ledger.ConsumeShield(ctx, "ama"); ok {
		t.Error("ConsumeShield() consumed an expired shield")
	}
}

func TestLedger_ConcurrentShieldConsumedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffShield, Value: 1})

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := f.ledger.ConsumeShield(ctx, "ama"); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("shield consumed %d times, want 1", wins)
	}
}

func TestLedger_ConcurrentCreditsSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ledger.AddXP(ctx, "ama", 10, "test")
		}()
	}
	wg.Wait()

	if xp, _ := f.ledger.GetXP(ctx, "ama"); xp != 500 {
		t.Errorf("balance = %d, want 500", xp)
	}
}

func TestLedger_TransactRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.AddXP(ctx, "ama", 100, "test")

	boom := errors.New("boom")
	_, err := f.ledger.Transact(ctx, "ama", func(tx *Txn) error {
		tx.Spend(80, "test")
		tx.AddBuff(models.Buff{Kind: models.BuffShield, Value: 1})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transact() error = %v, want boom", err)
	}

	snap, _ := f.ledger.Snapshot(ctx, "ama")
	if snap.TotalXP != 100 || snap.Shields != 0 {
		t.Errorf("state changed after rollback: %+v", snap)
	}
}

func TestLedger_PersistsAcrossRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.AddXP(ctx, "ama", 420, "test")
	f.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffShield, Value: 1})

	reloaded := NewLedger(f.store, nil, f.clock)
	snap, err := reloaded.Snapshot(ctx, "ama")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.TotalXP != 420 || snap.Shields != 1 {
		t.Errorf("reloaded snapshot = %+v, want 420 XP and one shield", snap)
	}
}

func TestLedger_PersistenceFailureKeepsMemoryState(t *testing.T) {
	store := NewStore(failingKV{}, nil)
	ledger := NewLedger(store, nil, clock.NewManual(testStart))
	ctx := context.Background()

	credited, err := ledger.AddXP(ctx, "ama", 100, "test")
	if err != nil {
		t.Fatalf("AddXP() error = %v, want nil on local write failure", err)
	}
	if credited != 100 {
		t.Errorf("credited = %d, want 100", credited)
	}

	snap, _ := ledger.Snapshot(ctx, "ama")
	if snap.TotalXP != 100 {
		t.Errorf("in-memory balance = %d, want 100", snap.TotalXP)
	}
	if !snap.Unsaved {
		t.Error("snapshot not marked unsaved")
	}
}

func TestLedger_ObserversAndMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got []Change
	unsubscribe := f.ledger.Subscribe(func(c Change) { got = append(got, c) })

	f.ledger.AddXP(ctx, "ama", 300, "test")
	if len(got) != 1 {
		t.Fatalf("observer saw %d changes, want 1", len(got))
	}
	if got[0].Snapshot.TotalXP != 300 || got[0].Snapshot.Level != 2 {
		t.Errorf("change snapshot = %+v", got[0].Snapshot)
	}
	if len(got[0].Events) != 1 || got[0].Events[0].Type != EventCredit {
		t.Errorf("change events = %+v", got[0].Events)
	}

	if v, ok := f.mirror.get("ama", "total_xp"); !ok || v.(int64) != 300 {
		t.Errorf("mirror total_xp = %v, %v", v, ok)
	}
	if v, ok := f.mirror.get("ama", "rank"); !ok || v.(string) != RankTourist {
		t.Errorf("mirror rank = %v, %v", v, ok)
	}

	// Refused spends change nothing and notify nobody.
	f.ledger.SpendXP(ctx, "ama", 1000, "test")
	if len(got) != 1 {
		t.Errorf("observer notified for a no-op, got %d changes", len(got))
	}

	unsubscribe()
	f.ledger.AddXP(ctx, "ama", 1, "test")
	if len(got) != 1 {
		t.Errorf("observer notified after unsubscribe")
	}
}

func TestLedger_JournalsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ledger.AddXP(ctx, "ama", 100, "daily_quiz")
	f.clock.Advance(90 * time.Minute)
	f.ledger.SpendXP(ctx, "ama", 30, "ritual")

	events, err := f.store.ListXPEvents(ctx, "ama", 10)
	if err != nil {
		t.Fatalf("ListXPEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EventType != "ritual" || events[0].XPAmount != -30 {
		t.Errorf("latest event = %+v, want ritual -30", events[0])
	}
	if events[1].EventType != "daily_quiz" || events[1].XPAmount != 100 {
		t.Errorf("first event = %+v, want daily_quiz 100", events[1])
	}
	if !events[1].CreatedAt.Equal(testStart) {
		t.Errorf("first event at %v, want %v", events[1].CreatedAt, testStart)
	}
	if want := testStart.Add(90 * time.Minute); !events[0].CreatedAt.Equal(want) {
		t.Errorf("latest event at %v, want %v", events[0].CreatedAt, want)
	}
}

var _ storage.KV = failingKV{}
