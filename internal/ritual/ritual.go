// Package ritual sells proverb draws for XP. Each draw grants a buff or a
// refund and permanently unlocks the proverb for that player.
package ritual

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sankofa-trivia/backend/internal/gamification"
	"github.com/sankofa-trivia/backend/internal/keylock"
	"github.com/sankofa-trivia/backend/internal/metrics"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sankofa-trivia/backend/internal/storage"
	"github.com/sirupsen/logrus"
)

const keyUnlocked = "ritual_unlocked"

type Config struct {
	CostXP             int64
	MultiplierDuration time.Duration
}

type Service struct {
	cfg    Config
	pool   []models.RitualItem
	ledger *gamification.Ledger
	kv     storage.KV
	locks  *keylock.Set

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	unlocked map[string][]string
}

func NewService(cfg Config, pool []models.RitualItem, ledger *gamification.Ledger, kv storage.KV, rng *rand.Rand) *Service {
	return &Service{
		cfg:      cfg,
		pool:     pool,
		ledger:   ledger,
		kv:       kv,
		locks:    keylock.New(),
		rng:      rng,
		unlocked: make(map[string][]string),
	}
}

// Invoke draws one never-unlocked item and applies its effect. The cost,
// the draw and the effect commit in one ledger transaction. An exhausted
// pool is reported before anything is debited.
func (s *Service) Invoke(ctx context.Context, identity string) (*models.RitualResult, error) {
	unlock := s.locks.Lock(identity)
	defer unlock()

	owned, err := s.loadUnlocked(ctx, identity)
	if err != nil {
		return nil, err
	}
	candidates := s.candidates(owned)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: every proverb is already unlocked", models.ErrContentExhausted)
	}

	result := &models.RitualResult{}
	snap, err := s.ledger.Transact(ctx, identity, func(t *gamification.Txn) error {
		if !t.Spend(s.cfg.CostXP, "ritual") {
			return models.ErrInsufficientFunds
		}

		item := candidates[s.intn(len(candidates))]
		result.Item = item

		switch item.Effect {
		case models.EffectXPRefund:
			result.RefundedXP = t.Credit(int64(item.Value), "ritual_refund")
		case models.EffectShield:
			b := models.Buff{Kind: models.BuffShield, Value: 1, Source: item.ID}
			t.AddBuff(b)
			result.Buff = &b
		case models.EffectXPMultiplier:
			expires := t.Now().Add(s.cfg.MultiplierDuration)
			b := models.Buff{Kind: models.BuffMultiplier, Value: item.Value, ExpiresAt: &expires, Source: item.ID}
			t.AddBuff(b)
			result.Buff = &b
		default:
			return fmt.Errorf("unknown ritual effect %q", item.Effect)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Progress = snap

	s.saveUnlocked(ctx, identity, append(owned, result.Item.ID))
	metrics.RitualDraws.WithLabelValues(string(result.Item.Effect)).Inc()
	logrus.WithFields(logrus.Fields{
		"identity": identity,
		"item":     result.Item.ID,
		"effect":   result.Item.Effect,
	}).Info("[ritual] proverb unlocked")

	return result, nil
}

// Pool lists every item with the identity's unlock flags.
func (s *Service) Pool(ctx context.Context, identity string) (*models.RitualPoolResponse, error) {
	unlock := s.locks.Lock(identity)
	defer unlock()

	owned, err := s.loadUnlocked(ctx, identity)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(owned))
	for _, id := range owned {
		have[id] = true
	}

	resp := &models.RitualPoolResponse{CostXP: s.cfg.CostXP, Items: make([]models.RitualPoolEntry, 0, len(s.pool))}
	for _, it := range s.pool {
		resp.Items = append(resp.Items, models.RitualPoolEntry{RitualItem: it, Unlocked: have[it.ID]})
		if !have[it.ID] {
			resp.Remaining++
		}
	}
	return resp, nil
}

// ── Internals ───────────────────────────────────────────

func (s *Service) candidates(owned []string) []models.RitualItem {
	have := make(map[string]bool, len(owned))
	for _, id := range owned {
		have[id] = true
	}
	var out []models.RitualItem
	for _, it := range s.pool {
		if !have[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func (s *Service) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *Service) loadUnlocked(ctx context.Context, identity string) ([]string, error) {
	s.mu.Lock()
	cached, ok := s.unlocked[identity]
	s.mu.Unlock()
	if ok {
		return append([]string(nil), cached...), nil
	}

	var ids []string
	if _, err := storage.GetJSON(ctx, s.kv, identity, keyUnlocked, &ids); err != nil {
		return nil, fmt.Errorf("load unlocked proverbs: %w", err)
	}
	return ids, nil
}

func (s *Service) saveUnlocked(ctx context.Context, identity string, ids []string) {
	sort.Strings(ids)
	s.mu.Lock()
	s.unlocked[identity] = ids
	s.mu.Unlock()

	if err := storage.PutJSON(ctx, s.kv, identity, keyUnlocked, ids); err != nil {
		metrics.PersistenceFailures.WithLabelValues("ritual").Inc()
		logrus.WithField("identity", identity).Warnf("[ritual] failed to persist unlocked set: %v", err)
	}
}
