package stake

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinCrashPoint = 1.10
	MaxCrashPoint = 1000.0
	bigWinLow     = 10.0
	bigWinHigh    = 100.0
)

// PointSource supplies the hidden crash point for each round.
type PointSource interface {
	Next() float64
}

// Distribution draws crash points from a seeded generator. Safe for
// concurrent use.
type Distribution struct {
	mu           sync.Mutex
	rng          *rand.Rand
	bigWinChance float64
}

func NewDistribution(rng *rand.Rand, bigWinChance float64) *Distribution {
	return &Distribution{rng: rng, bigWinChance: bigWinChance}
}

func (d *Distribution) Next() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DrawCrashPoint(d.rng, d.bigWinChance)
}

// DrawCrashPoint returns a value in [MinCrashPoint, MaxCrashPoint]. With
// probability bigWinChance it is uniform in [10, 100); otherwise it follows
// 1/(1-U), clamped.
func DrawCrashPoint(rng *rand.Rand, bigWinChance float64) float64 {
	if rng.Float64() < bigWinChance {
		return bigWinLow + rng.Float64()*(bigWinHigh-bigWinLow)
	}
	m := 1 / (1 - rng.Float64())
	return math.Min(math.Max(m, MinCrashPoint), MaxCrashPoint)
}

// MultiplierAt is exp(k·t) for t seconds into the round.
func MultiplierAt(elapsed time.Duration, k float64) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Exp(k * elapsed.Seconds())
}

// LatchMultiplier truncates a sampled multiplier to two decimals.
func LatchMultiplier(m float64) decimal.Decimal {
	return decimal.NewFromFloat(m).Truncate(2)
}

// Payout is round(wager × cashOut × factor), half away from zero, before
// any ledger multiplier.
func Payout(wager int64, cashOut, factor decimal.Decimal) int64 {
	return decimal.NewFromInt(wager).Mul(cashOut).Mul(factor).Round(0).IntPart()
}
