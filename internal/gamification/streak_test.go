package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/models"
)

func TestProjectStreak(t *testing.T) {
	tests := []struct {
		name  string
		state models.StreakState
		today string
		want  int
	}{
		{"never played", models.StreakState{}, "2026-03-06", 1},
		{"same day", models.StreakState{LastPlayedDate: "2026-03-06", CurrentStreak: 4}, "2026-03-06", 4},
		{"yesterday", models.StreakState{LastPlayedDate: "2026-03-05", CurrentStreak: 4}, "2026-03-06", 5},
		{"two days ago", models.StreakState{LastPlayedDate: "2026-03-04", CurrentStreak: 4}, "2026-03-06", 1},
		{"long gap", models.StreakState{LastPlayedDate: "2025-12-25", CurrentStreak: 40}, "2026-03-06", 1},
		{"across month end", models.StreakState{LastPlayedDate: "2026-02-28", CurrentStreak: 9}, "2026-03-01", 10},
		{"garbage date", models.StreakState{LastPlayedDate: "yesterday", CurrentStreak: 3}, "2026-03-06", 1},
		{"future date", models.StreakState{LastPlayedDate: "2026-03-07", CurrentStreak: 3}, "2026-03-06", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectStreak(tt.state, tt.today); got != tt.want {
				t.Errorf("ProjectStreak(%+v, %s) = %d, want %d", tt.state, tt.today, got, tt.want)
			}
		})
	}
}

func TestStreakTracker_ConfirmIdempotentWithinDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.streaks.Confirm(ctx, "ama")
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	second, _ := f.streaks.Confirm(ctx, "ama")
	if first.Current != 1 || second.Current != 1 {
		t.Errorf("same-day confirms = %d, %d; want 1, 1", first.Current, second.Current)
	}

	f.clock.Advance(24 * time.Hour)
	next, _ := f.streaks.Confirm(ctx, "ama")
	if next.Current != 2 {
		t.Errorf("next-day confirm = %d, want 2", next.Current)
	}
	again, _ := f.streaks.Confirm(ctx, "ama")
	if again.Current != 2 {
		t.Errorf("repeat confirm = %d, want 2", again.Current)
	}
}

func TestStreakTracker_GapResetsToOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.streaks.Confirm(ctx, "ama")
	f.clock.Advance(24 * time.Hour)
	f.streaks.Confirm(ctx, "ama")

	f.clock.Advance(72 * time.Hour)
	projected, _ := f.streaks.Projected(ctx, "ama")
	if projected.Current != 1 {
		t.Errorf("projected after gap = %d, want 1", projected.Current)
	}

	// Projection never writes.
	st, _ := f.store.LoadStreak(ctx, "ama")
	if st.CurrentStreak != 2 {
		t.Errorf("stored streak = %d after projection, want 2", st.CurrentStreak)
	}

	confirmed, _ := f.streaks.Confirm(ctx, "ama")
	if confirmed.Current != 1 {
		t.Errorf("confirmed after gap = %d, want 1", confirmed.Current)
	}
}

func TestStreakTracker_UsesConfiguredTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plusTwo := time.FixedZone("UTC+2", 2*60*60)
	tracker := NewStreakTracker(f.store, f.clock, plusTwo)

	// 23:00 UTC on the 6th is already the 7th two hours east.
	f.clock.Set(time.Date(2026, 3, 6, 23, 0, 0, 0, time.UTC))
	info, _ := tracker.Confirm(ctx, "ama")
	if info.LastPlayed != "2026-03-07" {
		t.Errorf("LastPlayed = %s, want 2026-03-07", info.LastPlayed)
	}
}

func TestStreakCompensation(t *testing.T) {
	ctx := context.Background()

	t.Run("old identity gets two-day streak once", func(t *testing.T) {
		f := newFixture(t)
		m := NewMigrator(f.store, f.clock, StreakCompensation(f.streaks))
		ident := models.Identity{ID: "ama", JoinedAt: f.clock.Now().Add(-72 * time.Hour)}

		if err := m.Run(ctx, ident); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		st, _ := f.store.LoadStreak(ctx, "ama")
		if st.CurrentStreak != 2 || st.LastPlayedDate != "2026-03-05" {
			t.Errorf("compensated streak = %+v, want 2 ending 2026-03-05", st)
		}

		// Playing today continues the repaired streak.
		info, _ := f.streaks.Confirm(ctx, "ama")
		if info.Current != 3 {
			t.Errorf("streak after play = %d, want 3", info.Current)
		}

		// A second run is a no-op.
		if err := m.Run(ctx, ident); err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		st, _ = f.store.LoadStreak(ctx, "ama")
		if st.CurrentStreak != 3 {
			t.Errorf("streak after rerun = %d, want 3", st.CurrentStreak)
		}
	})

	t.Run("young identity is compensated once old enough", func(t *testing.T) {
		f := newFixture(t)
		m := NewMigrator(f.store, f.clock, StreakCompensation(f.streaks))
		ident := models.Identity{ID: "kofi", JoinedAt: f.clock.Now().Add(-time.Hour)}

		if err := m.Run(ctx, ident); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		st, _ := f.store.LoadStreak(ctx, "kofi")
		if st.CurrentStreak != 0 {
			t.Errorf("young identity streak = %+v, want untouched", st)
		}
		if done, _ := f.store.MigrationApplied(ctx, "kofi", "streak_compensation_v1"); done {
			t.Error("migration flagged before identity was eligible")
		}

		f.clock.Advance(72 * time.Hour)
		if err := m.Run(ctx, ident); err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		st, _ = f.store.LoadStreak(ctx, "kofi")
		if st.CurrentStreak != 2 || st.LastPlayedDate != "2026-03-08" {
			t.Errorf("streak after 72h = %+v, want 2 ending 2026-03-08", st)
		}
		if done, _ := f.store.MigrationApplied(ctx, "kofi", "streak_compensation_v1"); !done {
			t.Error("migration not flagged after compensation")
		}
	})

	t.Run("identity without join time is left pending", func(t *testing.T) {
		f := newFixture(t)
		m := NewMigrator(f.store, f.clock, StreakCompensation(f.streaks))

		if err := m.Run(ctx, models.Identity{ID: "yaw"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if done, _ := f.store.MigrationApplied(ctx, "yaw", "streak_compensation_v1"); done {
			t.Error("migration flagged for identity without join time")
		}
	})

	t.Run("live long streak is kept", func(t *testing.T) {
		f := newFixture(t)
		f.store.SaveStreak(ctx, "esi", models.StreakState{LastPlayedDate: "2026-03-06", CurrentStreak: 9})
		m := NewMigrator(f.store, f.clock, StreakCompensation(f.streaks))

		m.Run(ctx, models.Identity{ID: "esi", JoinedAt: f.clock.Now().Add(-30 * 24 * time.Hour)})
		st, _ := f.store.LoadStreak(ctx, "esi")
		if st.CurrentStreak != 9 {
			t.Errorf("live streak = %d, want 9", st.CurrentStreak)
		}
		if done, _ := f.store.MigrationApplied(ctx, "esi", "streak_compensation_v1"); done {
			t.Error("migration flagged although nothing was compensated")
		}
	})
}
