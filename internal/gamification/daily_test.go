package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/models"
)

func TestDailyGate_CompletesOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done, err := f.daily.IsCompletedToday(ctx, "ama")
	if err != nil || done {
		t.Fatalf("IsCompletedToday() = %v, %v; want false", done, err)
	}

	if err := f.daily.MarkCompleted(ctx, "ama"); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if done, _ := f.daily.IsCompletedToday(ctx, "ama"); !done {
		t.Error("IsCompletedToday() = false after MarkCompleted")
	}

	f.clock.Advance(14 * time.Hour) // past midnight
	if done, _ := f.daily.IsCompletedToday(ctx, "ama"); done {
		t.Error("IsCompletedToday() = true on the next day")
	}
}

func TestDailyGate_WatchReportsFlips(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan models.DailyStatus, 8)
	go f.daily.Watch(ctx, "ama", 5*time.Millisecond, func(s models.DailyStatus) { updates <- s })

	expect := func(want bool) {
		t.Helper()
		select {
		case s := <-updates:
			if s.CompletedToday != want {
				t.Fatalf("status = %+v, want completed=%v", s, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no status update, want completed=%v", want)
		}
	}

	expect(false)

	f.daily.MarkCompleted(context.Background(), "ama")
	expect(true)

	f.clock.Advance(24 * time.Hour)
	expect(false)
}
