package stake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/metrics"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CrashConfig struct {
	MinWager       int64
	GrowthRate     float64
	PayoutFactor   float64
	CountdownTicks int
	CountdownTick  time.Duration
	FrameInterval  time.Duration
	DisplayDelay   time.Duration
}

const subscriberBuffer = 64

type crashRound struct {
	id         string
	phase      models.CrashPhase
	wager      int64
	countdown  int
	startedAt  time.Time
	crashPoint float64
	multiplier float64
	cashedOut  bool
	cashOutAt  decimal.Decimal
	payout     int64
	err        string

	cancel    context.CancelFunc
	idleTimer *time.Timer
}

// Crash runs one round per identity. Rounds for different identities are
// independent.
type Crash struct {
	cfg    CrashConfig
	ledger Ledger
	points PointSource
	clock  clock.Clock
	factor decimal.Decimal

	mu     sync.Mutex
	rounds map[string]*crashRound

	subsMu  sync.RWMutex
	subs    map[string]map[int]chan models.CrashState
	nextSub int
}

func NewCrash(cfg CrashConfig, ledger Ledger, points PointSource, clk clock.Clock) *Crash {
	if clk == nil {
		clk = clock.System
	}
	if cfg.CountdownTicks <= 0 {
		cfg.CountdownTicks = 5
	}
	return &Crash{
		cfg:    cfg,
		ledger: ledger,
		points: points,
		clock:  clk,
		factor: decimal.NewFromFloat(cfg.PayoutFactor),
		rounds: make(map[string]*crashRound),
		subs:   make(map[string]map[int]chan models.CrashState),
	}
}

// PlaceBet moves Idle to Betting and starts the countdown. The wager is only
// debited at tick zero.
func (c *Crash) PlaceBet(ctx context.Context, identity string, wager int64) (models.CrashState, error) {
	if err := c.validateWager(ctx, identity, wager); err != nil {
		return models.CrashState{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.rounds[identity]
	if r != nil && r.phase != models.CrashIdle {
		return c.stateLocked(r), models.ErrRoundInProgress
	}

	roundCtx, cancel := context.WithCancel(context.Background())
	r = &crashRound{
		id:         uuid.New().String(),
		phase:      models.CrashBetting,
		wager:      wager,
		countdown:  c.cfg.CountdownTicks,
		multiplier: 1,
		cancel:     cancel,
	}
	c.rounds[identity] = r

	go c.runCountdown(roundCtx, identity, r)

	state := c.stateLocked(r)
	c.publish(identity, state)
	return state, nil
}

// AdjustWager changes the wager while the countdown is running.
func (c *Crash) AdjustWager(ctx context.Context, identity string, wager int64) (models.CrashState, error) {
	if err := c.validateWager(ctx, identity, wager); err != nil {
		return models.CrashState{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.rounds[identity]
	if r == nil || r.phase != models.CrashBetting {
		return c.idleOr(r), models.ErrRoundNotBetting
	}
	r.wager = wager
	state := c.stateLocked(r)
	c.publish(identity, state)
	return state, nil
}

// CashOut latches the multiplier sampled now and credits the payout. Calls
// after a successful cash-out return the same result.
func (c *Crash) CashOut(ctx context.Context, identity string) (models.CrashState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.rounds[identity]
	if r == nil {
		return c.idleOr(nil), models.ErrRoundNotRunning
	}
	if r.cashedOut {
		return c.stateLocked(r), nil
	}
	if r.phase == models.CrashCrashed {
		return c.stateLocked(r), models.ErrRoundCrashed
	}
	if r.phase != models.CrashRunning {
		return c.stateLocked(r), models.ErrRoundNotRunning
	}

	m := MultiplierAt(c.clock.Now().Sub(r.startedAt), c.cfg.GrowthRate)
	if m >= r.crashPoint {
		c.crashLocked(identity, r)
		return c.stateLocked(r), models.ErrRoundCrashed
	}

	latched := LatchMultiplier(m)
	payout := Payout(r.wager, latched, c.factor)
	credited, err := c.ledger.AddXP(ctx, identity, payout, "crash_cashout")
	if err != nil {
		return c.stateLocked(r), fmt.Errorf("credit crash payout: %w", err)
	}

	r.cashedOut = true
	r.cashOutAt = latched
	r.payout = credited
	r.multiplier = latched.InexactFloat64()
	r.phase = models.CrashCrashed
	r.cancel()
	c.scheduleIdle(identity, r)

	metrics.StakeRounds.WithLabelValues("crash", "cashed_out").Inc()
	logrus.WithFields(logrus.Fields{
		"identity": identity,
		"round":    r.id,
	}).Infof("[crash] cashed out at %sx, credited %d XP", latched.StringFixed(2), credited)

	state := c.stateLocked(r)
	c.publish(identity, state)
	return state, nil
}

func (c *Crash) State(identity string) models.CrashState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleOr(c.rounds[identity])
}

// Subscribe streams round events for identity. Slow readers miss frames
// rather than stall the round.
func (c *Crash) Subscribe(identity string) (<-chan models.CrashState, func()) {
	ch := make(chan models.CrashState, subscriberBuffer)

	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	if c.subs[identity] == nil {
		c.subs[identity] = make(map[int]chan models.CrashState)
	}
	c.subs[identity][id] = ch
	c.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs[identity], id)
			if len(c.subs[identity]) == 0 {
				delete(c.subs, identity)
			}
			c.subsMu.Unlock()
			close(ch)
		})
	}
}

// Shutdown stops every round loop and pending idle timer.
func (c *Crash) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rounds {
		r.cancel()
		if r.idleTimer != nil {
			r.idleTimer.Stop()
		}
	}
}

// ── Round loop ──────────────────────────────────────────

func (c *Crash) runCountdown(ctx context.Context, identity string, r *crashRound) {
	ticker := time.NewTicker(c.cfg.CountdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.rounds[identity] != r || r.phase != models.CrashBetting {
			c.mu.Unlock()
			return
		}
		r.countdown--
		if r.countdown > 0 {
			c.publish(identity, c.stateLocked(r))
			c.mu.Unlock()
			continue
		}
		launched := c.launchLocked(ctx, identity, r)
		c.mu.Unlock()

		if launched {
			c.runFrames(ctx, identity, r)
		}
		return
	}
}

// launchLocked debits the wager at tick zero and draws the crash point.
func (c *Crash) launchLocked(ctx context.Context, identity string, r *crashRound) bool {
	log := logrus.WithFields(logrus.Fields{"identity": identity, "round": r.id})

	ok, err := c.ledger.SpendXP(ctx, identity, r.wager, "crash_wager")
	if err != nil || !ok {
		if err != nil {
			log.Warnf("[crash] wager debit failed: %v", err)
			r.err = "wager could not be debited"
		} else {
			r.err = models.ErrInsufficientFunds.Error()
		}
		r.phase = models.CrashIdle
		r.cancel()
		metrics.StakeRounds.WithLabelValues("crash", "aborted").Inc()
		c.publish(identity, c.stateLocked(r))
		return false
	}

	r.crashPoint = c.points.Next()
	r.startedAt = c.clock.Now()
	r.phase = models.CrashRunning
	r.err = ""
	metrics.CrashPoints.Observe(r.crashPoint)
	log.Infof("[crash] round running, wager %d", r.wager)

	c.publish(identity, c.stateLocked(r))
	return true
}

func (c *Crash) runFrames(ctx context.Context, identity string, r *crashRound) {
	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if r.phase != models.CrashRunning {
			c.mu.Unlock()
			return
		}
		m := MultiplierAt(c.clock.Now().Sub(r.startedAt), c.cfg.GrowthRate)
		if m >= r.crashPoint {
			c.crashLocked(identity, r)
			c.mu.Unlock()
			return
		}
		r.multiplier = m
		c.publish(identity, c.stateLocked(r))
		c.mu.Unlock()
	}
}

// crashLocked ends a round that was not cashed out. The wager stays spent.
func (c *Crash) crashLocked(identity string, r *crashRound) {
	r.phase = models.CrashCrashed
	r.multiplier = r.crashPoint
	r.cancel()
	c.scheduleIdle(identity, r)

	metrics.StakeRounds.WithLabelValues("crash", "crashed").Inc()
	logrus.WithFields(logrus.Fields{
		"identity": identity,
		"round":    r.id,
	}).Infof("[crash] crashed at %.2fx, wager %d forfeited", r.crashPoint, r.wager)

	c.publish(identity, c.stateLocked(r))
}

func (c *Crash) scheduleIdle(identity string, r *crashRound) {
	r.idleTimer = time.AfterFunc(c.cfg.DisplayDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rounds[identity] != r || r.phase != models.CrashCrashed {
			return
		}
		r.phase = models.CrashIdle
		c.publish(identity, c.stateLocked(r))
	})
}

// ── Internals ───────────────────────────────────────────

func (c *Crash) validateWager(ctx context.Context, identity string, wager int64) error {
	if wager <= 0 || wager < c.cfg.MinWager {
		return fmt.Errorf("%w: wager must be at least %d", models.ErrInvalidAmount, c.cfg.MinWager)
	}
	balance, err := c.ledger.GetXP(ctx, identity)
	if err != nil {
		return err
	}
	if wager > balance {
		return models.ErrInsufficientFunds
	}
	return nil
}

func (c *Crash) idleOr(r *crashRound) models.CrashState {
	if r == nil {
		return models.CrashState{Phase: models.CrashIdle, Multiplier: 1, At: c.clock.Now()}
	}
	return c.stateLocked(r)
}

func (c *Crash) stateLocked(r *crashRound) models.CrashState {
	s := models.CrashState{
		RoundID:    r.id,
		Phase:      r.phase,
		Wager:      r.wager,
		Multiplier: r.multiplier,
		CashedOut:  r.cashedOut,
		Payout:     r.payout,
		Error:      r.err,
		At:         c.clock.Now(),
	}
	switch r.phase {
	case models.CrashBetting:
		s.Countdown = r.countdown
	case models.CrashRunning:
		if m := MultiplierAt(s.At.Sub(r.startedAt), c.cfg.GrowthRate); m < r.crashPoint {
			s.Multiplier = m
		}
	case models.CrashCrashed, models.CrashIdle:
		if !r.cashedOut {
			s.CrashPoint = r.crashPoint
		}
	}
	if r.cashedOut {
		s.CashOutAt = r.cashOutAt.StringFixed(2)
	}
	return s
}

func (c *Crash) publish(identity string, s models.CrashState) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, ch := range c.subs[identity] {
		select {
		case ch <- s:
		default:
		}
	}
}
