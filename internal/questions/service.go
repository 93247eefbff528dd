// Package questions holds the trivia question bank and the draws the quiz
// and stake engines build their rounds from.
package questions

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

type Bank struct {
	store *Store

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBank uses rng for every non-daily draw. The bank serializes access, so
// the same *rand.Rand must not be shared with other goroutines.
func NewBank(store *Store, rng *rand.Rand) *Bank {
	return &Bank{store: store, rng: rng}
}

// SeedFrom loads qs into the bank. Existing rows with the same id are
// refreshed.
func (b *Bank) SeedFrom(ctx context.Context, qs []models.Question) error {
	n, err := b.store.Seed(ctx, qs)
	if err != nil {
		return err
	}
	total, err := b.store.Count(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("[questions] seeded %d questions (%d in bank)", n, total)
	return nil
}

// Draw picks count distinct questions outside exclude and shuffles each
// one's options. It returns ErrContentExhausted when too few remain.
func (b *Bank) Draw(ctx context.Context, category string, count int, exclude []int64) ([]models.Question, error) {
	candidates, err := b.store.ListCandidates(ctx, category, exclude)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("draw count must be positive, got %d", count)
	}
	if len(candidates) < count {
		return nil, fmt.Errorf("%w: %d unseen questions, %d needed", models.ErrContentExhausted, len(candidates), count)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return pick(candidates, count, b.rng), nil
}

// DailySet returns the same questions, in the same order, to every player
// on a given date.
func (b *Bank) DailySet(ctx context.Context, date string, count int) ([]models.Question, error) {
	candidates, err := b.store.ListCandidates(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, models.ErrContentExhausted
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	h := fnv.New64a()
	h.Write([]byte(date))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return pick(candidates, count, rng), nil
}

func (b *Bank) Categories(ctx context.Context) ([]string, error) {
	return b.store.Categories(ctx)
}

func pick(candidates []models.Question, count int, rng *rand.Rand) []models.Question {
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	out := make([]models.Question, count)
	for i := range out {
		out[i] = ShuffleOptions(candidates[i], rng)
	}
	return out
}

// ShuffleOptions returns q with its options in a new order. The answer text
// is unchanged, so it still matches exactly one option.
func ShuffleOptions(q models.Question, rng *rand.Rand) models.Question {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	q.Options = opts
	return q
}

func quizItems(qs []models.Question) []models.QuizQuestion {
	items := make([]models.QuizQuestion, len(qs))
	for i, q := range qs {
		items[i] = models.QuizQuestion{QuestionView: q.View(), Answer: q.Answer}
	}
	return items
}
