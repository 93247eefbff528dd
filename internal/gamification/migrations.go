package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// MigrationStep is a one-time, per-identity data repair. Apply reports
// whether the repair happened; only then is the step flagged as done. An
// identity the step does not yet apply to is evaluated again next session.
type MigrationStep struct {
	Name  string
	Apply func(ctx context.Context, ident models.Identity) (bool, error)
}

type Migrator struct {
	store *Store
	clock clock.Clock
	steps []MigrationStep
}

func NewMigrator(store *Store, clk clock.Clock, steps ...MigrationStep) *Migrator {
	return &Migrator{store: store, clock: clk, steps: steps}
}

// Run applies every pending step for ident in order. Failed and not yet
// applicable steps stay unflagged.
func (m *Migrator) Run(ctx context.Context, ident models.Identity) error {
	log := logrus.WithField("identity", ident.ID)
	for _, step := range m.steps {
		done, err := m.store.MigrationApplied(ctx, ident.ID, step.Name)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		applied, err := step.Apply(ctx, ident)
		if err != nil {
			return fmt.Errorf("migration %s: %w", step.Name, err)
		}
		if !applied {
			log.Debugf("[migrations] %s not applicable yet", step.Name)
			continue
		}
		if err := m.store.MarkMigrationApplied(ctx, ident.ID, step.Name, m.clock.Now()); err != nil {
			return err
		}
		log.Infof("[migrations] applied %s", step.Name)
	}
	return nil
}

const streakCompensationAge = 48 * time.Hour

// StreakCompensation repairs streaks for identities that existed before the
// streak fix shipped. Identities up to 48h old, and identities whose streak is
// still alive past two days, are left for a later session.
func StreakCompensation(tracker *StreakTracker) MigrationStep {
	return MigrationStep{
		Name: "streak_compensation_v1",
		Apply: func(ctx context.Context, ident models.Identity) (bool, error) {
			if ident.Age(tracker.clock.Now()) <= streakCompensationAge {
				return false, nil
			}
			return tracker.Compensate(ctx, ident.ID)
		},
	}
}
