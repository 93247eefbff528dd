package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/keylock"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// DateOf formats the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// daysBetween counts whole calendar days from a to b. Both are dates in
// dateLayout; an unparseable a is treated as far in the past.
func daysBetween(a, b string) int {
	from, err := time.Parse(dateLayout, a)
	if err != nil {
		return 1 << 30
	}
	to, err := time.Parse(dateLayout, b)
	if err != nil {
		return 1 << 30
	}
	return int(to.Sub(from).Hours() / 24)
}

// ProjectStreak returns the streak a player would have if they played on
// today. It never mutates anything.
func ProjectStreak(st models.StreakState, today string) int {
	if st.LastPlayedDate == "" || st.CurrentStreak < 1 {
		return 1
	}
	switch daysBetween(st.LastPlayedDate, today) {
	case 0:
		return st.CurrentStreak
	case 1:
		return st.CurrentStreak + 1
	default:
		return 1
	}
}

type StreakTracker struct {
	store *Store
	clock clock.Clock
	loc   *time.Location
	locks *keylock.Set
}

func NewStreakTracker(store *Store, clk clock.Clock, loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakTracker{store: store, clock: clk, loc: loc, locks: keylock.New()}
}

func (t *StreakTracker) today() string {
	return DateOf(t.clock.Now(), t.loc)
}

// Projected is the display value of the streak for today.
func (t *StreakTracker) Projected(ctx context.Context, identity string) (models.StreakInfo, error) {
	st, err := t.store.LoadStreak(ctx, identity)
	if err != nil {
		return models.StreakInfo{}, err
	}
	return models.StreakInfo{Current: ProjectStreak(st, t.today()), LastPlayed: st.LastPlayedDate}, nil
}

// Confirm persists today's projection. Calling it again on the same day
// changes nothing.
func (t *StreakTracker) Confirm(ctx context.Context, identity string) (models.StreakInfo, error) {
	unlock := t.locks.Lock(identity)
	defer unlock()

	st, err := t.store.LoadStreak(ctx, identity)
	if err != nil {
		return models.StreakInfo{}, err
	}
	today := t.today()
	next := models.StreakState{LastPlayedDate: today, CurrentStreak: ProjectStreak(st, today)}
	if next == st {
		return models.StreakInfo{Current: st.CurrentStreak, LastPlayed: st.LastPlayedDate}, nil
	}

	if err := t.store.SaveStreak(ctx, identity, next); err != nil {
		return models.StreakInfo{}, fmt.Errorf("confirm streak: %w", err)
	}
	logrus.WithField("identity", identity).Debugf("[streak] confirmed %d on %s", next.CurrentStreak, today)
	return models.StreakInfo{Current: next.CurrentStreak, LastPlayed: next.LastPlayedDate}, nil
}

// Compensate restores a two-day streak ending yesterday. A streak that is
// still alive and longer than two days is left alone.
func (t *StreakTracker) Compensate(ctx context.Context, identity string) (bool, error) {
	unlock := t.locks.Lock(identity)
	defer unlock()

	st, err := t.store.LoadStreak(ctx, identity)
	if err != nil {
		return false, err
	}
	now := t.clock.Now()
	today := DateOf(now, t.loc)
	if d := daysBetween(st.LastPlayedDate, today); d <= 1 && st.CurrentStreak > 2 {
		return false, nil
	}

	yesterday := DateOf(now.In(t.loc).AddDate(0, 0, -1), t.loc)
	if err := t.store.SaveStreak(ctx, identity, models.StreakState{LastPlayedDate: yesterday, CurrentStreak: 2}); err != nil {
		return false, fmt.Errorf("compensate streak: %w", err)
	}
	return true, nil
}
