// Package stake implements the two XP wagering games: the Gauntlet, a
// question ladder with an entry fee, and the Crash round.
package stake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/keylock"
	"github.com/sankofa-trivia/backend/internal/metrics"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sankofa-trivia/backend/internal/storage"
	"github.com/sirupsen/logrus"
)

// Ledger is the slice of the progress ledger the stake games use.
type Ledger interface {
	GetXP(ctx context.Context, identity string) (int64, error)
	SpendXP(ctx context.Context, identity string, amount int64, sink string) (bool, error)
	AddXP(ctx context.Context, identity string, amount int64, source string) (int64, error)
	Snapshot(ctx context.Context, identity string) (models.ProgressSnapshot, error)
}

// QuestionSource draws count distinct questions outside exclude, options
// already shuffled.
type QuestionSource interface {
	Draw(ctx context.Context, category string, count int, exclude []int64) ([]models.Question, error)
}

const keyGauntlet = "gauntlet"

type gauntletSession struct {
	id        string
	phase     models.GauntletPhase
	tier      models.StakeTier
	questions []models.Question
	index     int
}

type Gauntlet struct {
	tiers     []models.StakeTier
	cooldown  time.Duration
	ledger    Ledger
	questions QuestionSource
	kv        storage.KV
	clock     clock.Clock
	locks     *keylock.Set

	mu       sync.Mutex
	sessions map[string]*gauntletSession
	records  map[string]models.GauntletRecord
}

func NewGauntlet(tiers []models.StakeTier, cooldown time.Duration, ledger Ledger, questions QuestionSource, kv storage.KV, clk clock.Clock) *Gauntlet {
	if clk == nil {
		clk = clock.System
	}
	return &Gauntlet{
		tiers:     tiers,
		cooldown:  cooldown,
		ledger:    ledger,
		questions: questions,
		kv:        kv,
		clock:     clk,
		locks:     keylock.New(),
		sessions:  make(map[string]*gauntletSession),
		records:   make(map[string]models.GauntletRecord),
	}
}

func (g *Gauntlet) Tiers() []models.StakeTier {
	out := make([]models.StakeTier, len(g.tiers))
	copy(out, g.tiers)
	return out
}

// Enter starts a run at the given tier. Checks run in order: cooldown, funds,
// question supply. Nothing is debited unless all pass.
func (g *Gauntlet) Enter(ctx context.Context, identity string, tierIndex int) (*models.GauntletState, error) {
	unlock := g.locks.Lock(identity)
	defer unlock()

	if tierIndex < 0 || tierIndex >= len(g.tiers) {
		return nil, models.ErrUnknownTier
	}
	tier := g.tiers[tierIndex]

	if s := g.session(identity); s != nil && s.phase == models.GauntletPlaying {
		return nil, models.ErrRoundInProgress
	}

	rec, err := g.loadRecord(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := g.clock.Now()
	if remaining := g.cooldownRemaining(rec, now); remaining > 0 {
		return nil, &models.CooldownError{Remaining: remaining}
	}

	balance, err := g.ledger.GetXP(ctx, identity)
	if err != nil {
		return nil, err
	}
	if balance < tier.XPCost {
		return nil, models.ErrInsufficientFunds
	}

	qs, err := g.questions.Draw(ctx, "", tier.QuestionCount, rec.SeenQuestionIDs)
	if err != nil {
		return nil, err
	}

	ok, err := g.ledger.SpendXP(ctx, identity, tier.XPCost, "gauntlet_entry")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrInsufficientFunds
	}

	rec.LastPlayedAt = now
	g.saveRecord(ctx, identity, rec)

	s := &gauntletSession{
		id:        uuid.New().String(),
		phase:     models.GauntletPlaying,
		tier:      tier,
		questions: qs,
	}
	g.mu.Lock()
	g.sessions[identity] = s
	g.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"identity": identity,
		"session":  s.id,
		"tier":     tier.Label,
	}).Info("[gauntlet] run started")

	state := g.stateOf(s, rec, now)
	return &state, nil
}

// Answer grades the current question. The question is marked seen whatever
// the outcome.
func (g *Gauntlet) Answer(ctx context.Context, identity string, req models.GauntletAnswerRequest) (*models.GauntletAnswerResponse, error) {
	unlock := g.locks.Lock(identity)
	defer unlock()

	s := g.session(identity)
	if s == nil || s.phase != models.GauntletPlaying {
		return nil, models.ErrNoActiveSession
	}
	q := s.questions[s.index]
	if req.QuestionID != q.ID {
		return nil, models.ErrWrongQuestion
	}

	rec, err := g.loadRecord(ctx, identity)
	if err != nil {
		return nil, err
	}
	rec.SeenQuestionIDs = append(rec.SeenQuestionIDs, q.ID)
	g.saveRecord(ctx, identity, rec)

	resp := &models.GauntletAnswerResponse{
		Correct:       req.Answer == q.Answer,
		CorrectAnswer: q.Answer,
	}
	log := logrus.WithFields(logrus.Fields{"identity": identity, "session": s.id})

	if !resp.Correct {
		s.phase = models.GauntletDefeat
		metrics.StakeRounds.WithLabelValues("gauntlet", "defeat").Inc()
		log.Infof("[gauntlet] defeat on question %d/%d", s.index+1, len(s.questions))
	} else {
		s.index++
		if s.index == len(s.questions) {
			credited, err := g.ledger.AddXP(ctx, identity, s.tier.RewardXP, "gauntlet_victory")
			if err != nil {
				s.index--
				return nil, fmt.Errorf("credit gauntlet reward: %w", err)
			}
			s.phase = models.GauntletVictory
			resp.CreditedXP = credited
			metrics.StakeRounds.WithLabelValues("gauntlet", "victory").Inc()
			log.Infof("[gauntlet] victory, credited %d XP", credited)
		}
	}

	snap, err := g.ledger.Snapshot(ctx, identity)
	if err != nil {
		return nil, err
	}
	resp.Progress = &snap
	resp.State = g.stateOf(s, rec, g.clock.Now())
	return resp, nil
}

// Reset returns the player to the lobby. Abandoning a live run forfeits the
// stake; the cooldown is untouched either way.
func (g *Gauntlet) Reset(ctx context.Context, identity string) (*models.GauntletState, error) {
	unlock := g.locks.Lock(identity)
	defer unlock()

	g.mu.Lock()
	s := g.sessions[identity]
	delete(g.sessions, identity)
	g.mu.Unlock()

	if s != nil && s.phase == models.GauntletPlaying {
		metrics.StakeRounds.WithLabelValues("gauntlet", "abandoned").Inc()
		logrus.WithField("identity", identity).Info("[gauntlet] run abandoned")
	}
	return g.status(ctx, identity)
}

func (g *Gauntlet) Status(ctx context.Context, identity string) (*models.GauntletState, error) {
	unlock := g.locks.Lock(identity)
	defer unlock()
	return g.status(ctx, identity)
}

func (g *Gauntlet) status(ctx context.Context, identity string) (*models.GauntletState, error) {
	rec, err := g.loadRecord(ctx, identity)
	if err != nil {
		return nil, err
	}
	state := g.stateOf(g.session(identity), rec, g.clock.Now())
	return &state, nil
}

// ── Internals ───────────────────────────────────────────

func (g *Gauntlet) session(identity string) *gauntletSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[identity]
}

func (g *Gauntlet) cooldownRemaining(rec models.GauntletRecord, now time.Time) time.Duration {
	if rec.LastPlayedAt.IsZero() {
		return 0
	}
	remaining := g.cooldown - now.Sub(rec.LastPlayedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (g *Gauntlet) stateOf(s *gauntletSession, rec models.GauntletRecord, now time.Time) models.GauntletState {
	state := models.GauntletState{
		Phase:             models.GauntletLobby,
		CooldownRemaining: int64(g.cooldownRemaining(rec, now).Seconds()),
		Tiers:             g.Tiers(),
	}
	if s == nil {
		return state
	}
	tier := s.tier
	state.SessionID = s.id
	state.Phase = s.phase
	state.Tier = &tier
	state.QuestionIndex = s.index
	state.QuestionCount = len(s.questions)
	if s.phase == models.GauntletPlaying {
		v := s.questions[s.index].View()
		state.Question = &v
	}
	return state
}

// loadRecord prefers the in-memory copy so a failed local write never
// reopens the cooldown or forgets seen questions.
func (g *Gauntlet) loadRecord(ctx context.Context, identity string) (models.GauntletRecord, error) {
	g.mu.Lock()
	rec, ok := g.records[identity]
	g.mu.Unlock()
	if !ok {
		if _, err := storage.GetJSON(ctx, g.kv, identity, keyGauntlet, &rec); err != nil {
			return models.GauntletRecord{}, fmt.Errorf("load gauntlet record: %w", err)
		}
	}
	rec.SeenQuestionIDs = append([]int64(nil), rec.SeenQuestionIDs...)
	return rec, nil
}

func (g *Gauntlet) saveRecord(ctx context.Context, identity string, rec models.GauntletRecord) {
	g.mu.Lock()
	g.records[identity] = rec
	g.mu.Unlock()

	if err := storage.PutJSON(ctx, g.kv, identity, keyGauntlet, rec); err != nil {
		metrics.PersistenceFailures.WithLabelValues("gauntlet").Inc()
		logrus.WithField("identity", identity).Warnf("[gauntlet] failed to persist record: %v", err)
	}
}
