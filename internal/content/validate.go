package content

import (
	"fmt"
	"strings"

	"github.com/sankofa-trivia/backend/internal/models"
)

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed: %s", strings.Join(e.Errors, "; "))
}

const (
	minOptions = 2
	maxOptions = 6
)

func (c *Catalog) Validate() error {
	var errs []string

	if len(c.StakeTiers) == 0 {
		errs = append(errs, "no stake tiers")
	}
	for i, t := range c.StakeTiers {
		n := i + 1
		if t.Label == "" {
			errs = append(errs, fmt.Sprintf("tier %d: empty label", n))
		}
		if t.XPCost <= 0 {
			errs = append(errs, fmt.Sprintf("tier %d: xp_cost must be positive, got %d", n, t.XPCost))
		}
		if t.RewardXP <= 0 {
			errs = append(errs, fmt.Sprintf("tier %d: reward_xp must be positive, got %d", n, t.RewardXP))
		}
		if t.QuestionCount < 1 {
			errs = append(errs, fmt.Sprintf("tier %d: question_count must be at least 1", n))
		}
	}

	seenItems := make(map[string]bool)
	for i, it := range c.RitualPool {
		n := i + 1
		if it.ID == "" {
			errs = append(errs, fmt.Sprintf("ritual item %d: empty id", n))
		} else if seenItems[it.ID] {
			errs = append(errs, fmt.Sprintf("ritual item %d: duplicate id %q", n, it.ID))
		}
		seenItems[it.ID] = true

		if !models.ValidRitualEffects[it.Effect] {
			errs = append(errs, fmt.Sprintf("ritual item %q: invalid effect %q", it.ID, it.Effect))
			continue
		}
		switch it.Effect {
		case models.EffectXPRefund:
			if it.Value <= 0 || it.Value != float64(int64(it.Value)) {
				errs = append(errs, fmt.Sprintf("ritual item %q: xp_refund value must be a positive whole number", it.ID))
			}
		case models.EffectXPMultiplier:
			if it.Value <= 1 {
				errs = append(errs, fmt.Sprintf("ritual item %q: multiplier must exceed 1, got %v", it.ID, it.Value))
			}
		}
	}

	seenQuestions := make(map[int64]bool)
	for i, q := range c.Questions {
		n := i + 1
		if q.ID <= 0 {
			errs = append(errs, fmt.Sprintf("question %d: id must be positive", n))
		} else if seenQuestions[q.ID] {
			errs = append(errs, fmt.Sprintf("question %d: duplicate id %d", n, q.ID))
		}
		seenQuestions[q.ID] = true

		if strings.TrimSpace(q.Prompt) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty prompt", q.ID))
		}
		if len(q.Options) < minOptions || len(q.Options) > maxOptions {
			errs = append(errs, fmt.Sprintf("question %d: expected %d-%d options, got %d", q.ID, minOptions, maxOptions, len(q.Options)))
			continue
		}

		opts := make(map[string]bool)
		for _, o := range q.Options {
			if opts[o] {
				errs = append(errs, fmt.Sprintf("question %d: duplicate option %q", q.ID, o))
			}
			opts[o] = true
		}
		if !opts[q.Answer] {
			errs = append(errs, fmt.Sprintf("question %d: answer %q is not among the options", q.ID, q.Answer))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
