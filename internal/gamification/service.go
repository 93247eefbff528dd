package gamification

import (
	"context"
	"fmt"

	"github.com/sankofa-trivia/backend/internal/keylock"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// LeaderboardReader ranks identities by total XP.
type LeaderboardReader interface {
	Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

type Service struct {
	store       *Store
	ledger      *Ledger
	streaks     *StreakTracker
	daily       *DailyGate
	migrator    *Migrator
	leaderboard LeaderboardReader
	locks       *keylock.Set
}

func NewService(store *Store, ledger *Ledger, streaks *StreakTracker, daily *DailyGate, migrator *Migrator, leaderboard LeaderboardReader) *Service {
	return &Service{
		store:       store,
		ledger:      ledger,
		streaks:     streaks,
		daily:       daily,
		migrator:    migrator,
		leaderboard: leaderboard,
		locks:       keylock.New(),
	}
}

func (s *Service) Daily() *DailyGate { return s.daily }

// ── Session ─────────────────────────────────────────────

// StartSession runs pending per-identity migrations and returns the home
// screen state.
func (s *Service) StartSession(ctx context.Context, ident models.Identity) (*models.SessionResponse, error) {
	if err := s.migrator.Run(ctx, ident); err != nil {
		// Migrations retry next session; the player can still play.
		logrus.WithField("identity", ident.ID).Warnf("[gamification] migrations failed: %v", err)
	}
	return s.Home(ctx, ident.ID)
}

func (s *Service) Home(ctx context.Context, identity string) (*models.SessionResponse, error) {
	progress, err := s.ledger.Snapshot(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	streak, err := s.streaks.Projected(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	daily, err := s.daily.Status(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get daily status: %w", err)
	}
	return &models.SessionResponse{Progress: progress, Streak: streak, Daily: daily}, nil
}

// ── Quiz Completion ─────────────────────────────────────

// CompleteDailyQuiz credits the daily quiz once per calendar day.
func (s *Service) CompleteDailyQuiz(ctx context.Context, identity string, req models.CompleteQuizRequest) (*models.QuizCompleteResponse, error) {
	if err := validateQuiz(req); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(identity)
	defer unlock()

	done, err := s.daily.IsCompletedToday(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("check daily gate: %w", err)
	}
	if done {
		return nil, models.ErrAlreadyCompletedToday
	}

	streak, err := s.streaks.Projected(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}

	var reward models.RewardBreakdown
	var credited int64
	progress, err := s.ledger.Transact(ctx, identity, func(t *Txn) error {
		reward = ComputeReward(req.Correct, req.Total, streak.Current, t.Level().Level)
		credited = t.Credit(reward.Total, "daily_quiz")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("credit daily quiz: %w", err)
	}

	confirmed, err := s.streaks.Confirm(ctx, identity)
	if err != nil {
		logrus.WithField("identity", identity).Warnf("[gamification] streak confirm failed: %v", err)
		confirmed = streak
	}
	if err := s.daily.MarkCompleted(ctx, identity); err != nil {
		logrus.WithField("identity", identity).Warnf("[gamification] daily gate not persisted: %v", err)
	}

	return &models.QuizCompleteResponse{
		Reward:     reward,
		CreditedXP: credited,
		Streak:     confirmed,
		Progress:   progress,
	}, nil
}

// CompleteCategoryQuiz credits a practice quiz. When the run was not
// perfect, one shield forgives one wrong answer; the shield check and the
// credit see the same ledger state.
func (s *Service) CompleteCategoryQuiz(ctx context.Context, identity string, req models.CompleteQuizRequest) (*models.QuizCompleteResponse, error) {
	if err := validateQuiz(req); err != nil {
		return nil, err
	}

	streak, err := s.streaks.Projected(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}

	var reward models.RewardBreakdown
	var credited int64
	var shielded bool
	progress, err := s.ledger.Transact(ctx, identity, func(t *Txn) error {
		correct := req.Correct
		if correct < req.Total && t.ConsumeShield() {
			correct++
			shielded = true
		}
		reward = ComputeReward(correct, req.Total, streak.Current, t.Level().Level)
		credited = t.Credit(reward.Total, "category_quiz")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("credit category quiz: %w", err)
	}

	confirmed, err := s.streaks.Confirm(ctx, identity)
	if err != nil {
		logrus.WithField("identity", identity).Warnf("[gamification] streak confirm failed: %v", err)
		confirmed = streak
	}

	return &models.QuizCompleteResponse{
		Reward:         reward,
		CreditedXP:     credited,
		ShieldConsumed: shielded,
		Streak:         confirmed,
		Progress:       progress,
	}, nil
}

func validateQuiz(req models.CompleteQuizRequest) error {
	if req.Total <= 0 {
		return fmt.Errorf("%w: total must be positive", models.ErrInvalidAmount)
	}
	if req.Correct < 0 || req.Correct > req.Total {
		return fmt.Errorf("%w: correct must be within [0, %d]", models.ErrInvalidAmount, req.Total)
	}
	return nil
}

// ── Leaderboard & History ───────────────────────────────

func (s *Service) Leaderboard(ctx context.Context, limit int) (*models.LeaderboardResponse, error) {
	if s.leaderboard == nil {
		return &models.LeaderboardResponse{Entries: []models.LeaderboardEntry{}}, nil
	}
	entries, err := s.leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return &models.LeaderboardResponse{Entries: entries}, nil
}

func (s *Service) XPHistory(ctx context.Context, identity string, limit int) (*models.XPHistoryResponse, error) {
	events, err := s.store.ListXPEvents(ctx, identity, limit)
	if err != nil {
		return nil, err
	}
	return &models.XPHistoryResponse{Events: events}, nil
}
