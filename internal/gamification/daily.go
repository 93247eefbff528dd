package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// DailyGate answers "has today's challenge been completed".
type DailyGate struct {
	store *Store
	clock clock.Clock
	loc   *time.Location
}

func NewDailyGate(store *Store, clk clock.Clock, loc *time.Location) *DailyGate {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyGate{store: store, clock: clk, loc: loc}
}

func (g *DailyGate) Status(ctx context.Context, identity string) (models.DailyStatus, error) {
	d, err := g.store.LoadDaily(ctx, identity)
	if err != nil {
		return models.DailyStatus{}, err
	}
	today := DateOf(g.clock.Now(), g.loc)
	return models.DailyStatus{CompletedToday: d.LastCompletedDate == today, Date: today}, nil
}

func (g *DailyGate) IsCompletedToday(ctx context.Context, identity string) (bool, error) {
	s, err := g.Status(ctx, identity)
	return s.CompletedToday, err
}

func (g *DailyGate) MarkCompleted(ctx context.Context, identity string) error {
	today := DateOf(g.clock.Now(), g.loc)
	if err := g.store.SaveDaily(ctx, identity, models.DailyChallengeState{LastCompletedDate: today}); err != nil {
		return fmt.Errorf("mark daily completed: %w", err)
	}
	return nil
}

// Watch polls the gate every interval and calls fn with the initial value
// and on every flip, e.g. when midnight passes. It returns when ctx ends.
func (g *DailyGate) Watch(ctx context.Context, identity string, interval time.Duration, fn func(models.DailyStatus)) {
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}

	last, err := g.Status(ctx, identity)
	if err != nil {
		logrus.WithField("identity", identity).Warnf("[daily] initial status failed: %v", err)
	} else {
		fn(last)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := g.Status(ctx, identity)
			if err != nil {
				if ctx.Err() == nil {
					logrus.WithField("identity", identity).Warnf("[daily] status poll failed: %v", err)
				}
				continue
			}
			if s != last {
				last = s
				fn(s)
			}
		}
	}
}
