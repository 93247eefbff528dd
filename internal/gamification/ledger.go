package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/metrics"
	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Mirror receives best-effort copies of persisted fields. Push must not
// block the caller.
type Mirror interface {
	Push(identity, field string, value interface{})
}

type discardMirror struct{}

func (discardMirror) Push(string, string, interface{}) {}

// Change is broadcast to subscribers after every committed mutation.
type Change struct {
	Identity string
	Snapshot models.ProgressSnapshot
	Events   []LedgerEvent
}

// LedgerEvent is one credit or debit inside a committed transaction.
type LedgerEvent struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
	Label  string `json:"label"`
}

const (
	EventCredit = "credit"
	EventDebit  = "debit"
	EventBuff   = "buff"
	EventShield = "shield_consumed"
)

// Ledger owns XP and buffs. Every mutation for one identity is serialized
// through Transact; other identities proceed independently.
type Ledger struct {
	store  *Store
	mirror Mirror
	clock  clock.Clock

	mu       sync.Mutex
	accounts map[string]*account

	subsMu  sync.RWMutex
	subs    map[int]func(Change)
	nextSub int
}

type account struct {
	mu       sync.Mutex
	loaded   bool
	progress models.PlayerProgress
	unsaved  bool
}

func NewLedger(store *Store, mirror Mirror, clk clock.Clock) *Ledger {
	if mirror == nil {
		mirror = discardMirror{}
	}
	if clk == nil {
		clk = clock.System
	}
	return &Ledger{
		store:    store,
		mirror:   mirror,
		clock:    clk,
		accounts: make(map[string]*account),
		subs:     make(map[int]func(Change)),
	}
}

// ── Transactions ────────────────────────────────────────

// Txn is a working copy of one player's progress. Changes become visible
// only if the Transact callback returns nil.
type Txn struct {
	now      time.Time
	progress models.PlayerProgress
	events   []LedgerEvent
	changed  bool
}

func (t *Txn) Now() time.Time { return t.now }

func (t *Txn) Balance() int64 { return t.progress.TotalXP }

func (t *Txn) Level() models.LevelInfo { return LevelFor(t.progress.TotalXP) }

func (t *Txn) ActiveBuffs() []models.Buff { return activeBuffs(t.progress.ActiveBuffs, t.now) }

// Multiplier is the highest active multiplier buff, or 1.
func (t *Txn) Multiplier() float64 { return multiplierOf(t.progress.ActiveBuffs, t.now) }

// Spend debits amount if the balance covers it. Insufficient funds is a
// normal false, never a partial debit.
func (t *Txn) Spend(amount int64, sink string) bool {
	if amount <= 0 || amount > t.progress.TotalXP {
		return false
	}
	t.progress.TotalXP -= amount
	t.events = append(t.events, LedgerEvent{Type: EventDebit, Amount: amount, Label: sink})
	t.changed = true
	return true
}

// Credit applies the active multiplier and returns the amount actually
// credited.
func (t *Txn) Credit(amount int64, source string) int64 {
	if amount <= 0 {
		return 0
	}
	credited := ApplyMultiplier(amount, t.Multiplier())
	t.progress.TotalXP += credited
	t.events = append(t.events, LedgerEvent{Type: EventCredit, Amount: credited, Label: source})
	t.changed = true
	return credited
}

func (t *Txn) AddBuff(b models.Buff) {
	t.progress.ActiveBuffs = append(t.progress.ActiveBuffs, b)
	t.events = append(t.events, LedgerEvent{Type: EventBuff, Label: string(b.Kind)})
	t.changed = true
}

// ConsumeShield removes the oldest live shield.
func (t *Txn) ConsumeShield() bool {
	for i, b := range t.progress.ActiveBuffs {
		if b.Kind == models.BuffShield && b.Active(t.now) {
			t.progress.ActiveBuffs = append(t.progress.ActiveBuffs[:i:i], t.progress.ActiveBuffs[i+1:]...)
			t.events = append(t.events, LedgerEvent{Type: EventShield, Label: string(models.BuffShield)})
			t.changed = true
			return true
		}
	}
	return false
}

// Transact runs fn against a private copy of the identity's progress and
// commits it atomically. Observers registered via Subscribe must not call
// back into the ledger for the same identity.
func (l *Ledger) Transact(ctx context.Context, identity string, fn func(*Txn) error) (models.ProgressSnapshot, error) {
	acc, err := l.acquire(ctx, identity)
	if err != nil {
		return models.ProgressSnapshot{}, err
	}
	defer acc.mu.Unlock()

	now := l.clock.Now()
	txn := &Txn{now: now, progress: acc.progress.Clone()}
	if err := fn(txn); err != nil {
		return l.snapshotLocked(identity, acc, now), err
	}
	if !txn.changed {
		return l.snapshotLocked(identity, acc, now), nil
	}

	txn.progress.ActiveBuffs = activeBuffs(txn.progress.ActiveBuffs, now)
	txn.progress.UpdatedAt = now
	acc.progress = txn.progress

	log := logrus.WithField("identity", identity)
	if err := l.store.SaveProgress(ctx, identity, acc.progress); err != nil {
		acc.unsaved = true
		metrics.PersistenceFailures.WithLabelValues("ledger").Inc()
		log.Warnf("[ledger] progress kept in memory, local write failed: %v", err)
	} else {
		acc.unsaved = false
	}

	for _, ev := range txn.events {
		switch ev.Type {
		case EventCredit:
			metrics.XPCredited.WithLabelValues(ev.Label).Add(float64(ev.Amount))
		case EventDebit:
			metrics.XPSpent.WithLabelValues(ev.Label).Add(float64(ev.Amount))
		}
		if ev.Amount == 0 {
			continue
		}
		amount := ev.Amount
		if ev.Type == EventDebit {
			amount = -amount
		}
		if err := l.store.LogXPEvent(ctx, identity, ev.Label, amount, map[string]interface{}{
			"type":     ev.Type,
			"total_xp": acc.progress.TotalXP,
		}, txn.now); err != nil {
			log.Warnf("[ledger] failed to journal %s event: %v", ev.Label, err)
		}
	}

	snap := l.snapshotLocked(identity, acc, now)
	l.mirror.Push(identity, "total_xp", snap.TotalXP)
	l.mirror.Push(identity, "level", snap.Level)
	l.mirror.Push(identity, "rank", snap.Rank)
	l.mirror.Push(identity, "active_buffs", snap.ActiveBuffs)
	l.notify(Change{Identity: identity, Snapshot: snap, Events: txn.events})

	return snap, nil
}

// ── Operations ──────────────────────────────────────────

func (l *Ledger) GetXP(ctx context.Context, identity string) (int64, error) {
	snap, err := l.Snapshot(ctx, identity)
	return snap.TotalXP, err
}

func (l *Ledger) Snapshot(ctx context.Context, identity string) (models.ProgressSnapshot, error) {
	acc, err := l.acquire(ctx, identity)
	if err != nil {
		return models.ProgressSnapshot{}, err
	}
	defer acc.mu.Unlock()
	return l.snapshotLocked(identity, acc, l.clock.Now()), nil
}

// AddXP credits amount after the active multiplier and returns the
// credited value.
func (l *Ledger) AddXP(ctx context.Context, identity string, amount int64, source string) (int64, error) {
	if amount < 0 {
		return 0, models.ErrInvalidAmount
	}
	var credited int64
	_, err := l.Transact(ctx, identity, func(t *Txn) error {
		credited = t.Credit(amount, source)
		return nil
	})
	return credited, err
}

// SpendXP reports false, without mutating, when amount exceeds the balance.
func (l *Ledger) SpendXP(ctx context.Context, identity string, amount int64, sink string) (bool, error) {
	if amount <= 0 {
		return false, models.ErrInvalidAmount
	}
	var ok bool
	_, err := l.Transact(ctx, identity, func(t *Txn) error {
		ok = t.Spend(amount, sink)
		return nil
	})
	return ok, err
}

func (l *Ledger) AddBuff(ctx context.Context, identity string, b models.Buff) error {
	_, err := l.Transact(ctx, identity, func(t *Txn) error {
		t.AddBuff(b)
		return nil
	})
	return err
}

func (l *Ledger) ConsumeShield(ctx context.Context, identity string) (bool, error) {
	var ok bool
	_, err := l.Transact(ctx, identity, func(t *Txn) error {
		ok = t.ConsumeShield()
		return nil
	})
	return ok, err
}

// ── Observers ───────────────────────────────────────────

// Subscribe registers fn for every committed change and returns the
// matching unsubscribe func. fn runs while the identity is locked.
func (l *Ledger) Subscribe(fn func(Change)) func() {
	l.subsMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subsMu.Unlock()

	return func() {
		l.subsMu.Lock()
		delete(l.subs, id)
		l.subsMu.Unlock()
	}
}

func (l *Ledger) notify(c Change) {
	l.subsMu.RLock()
	defer l.subsMu.RUnlock()
	for _, fn := range l.subs {
		fn(c)
	}
}

// ── Internals ───────────────────────────────────────────

func (l *Ledger) acquire(ctx context.Context, identity string) (*account, error) {
	l.mu.Lock()
	acc, ok := l.accounts[identity]
	if !ok {
		acc = &account{}
		l.accounts[identity] = acc
	}
	l.mu.Unlock()

	acc.mu.Lock()
	if !acc.loaded {
		p, err := l.store.LoadProgress(ctx, identity)
		if err != nil {
			acc.mu.Unlock()
			return nil, err
		}
		acc.progress = p
		acc.loaded = true
	}
	return acc, nil
}

func (l *Ledger) snapshotLocked(identity string, acc *account, now time.Time) models.ProgressSnapshot {
	buffs := activeBuffs(acc.progress.ActiveBuffs, now)
	shields := 0
	for _, b := range buffs {
		if b.Kind == models.BuffShield {
			shields++
		}
	}
	return models.ProgressSnapshot{
		LevelInfo:   LevelFor(acc.progress.TotalXP),
		Identity:    identity,
		TotalXP:     acc.progress.TotalXP,
		ActiveBuffs: buffs,
		Shields:     shields,
		Multiplier:  multiplierOf(buffs, now),
		Unsaved:     acc.unsaved,
	}
}

func activeBuffs(buffs []models.Buff, now time.Time) []models.Buff {
	out := make([]models.Buff, 0, len(buffs))
	for _, b := range buffs {
		if b.Active(now) {
			out = append(out, b)
		}
	}
	return out
}

func multiplierOf(buffs []models.Buff, now time.Time) float64 {
	m := 1.0
	for _, b := range buffs {
		if b.Kind == models.BuffMultiplier && b.Active(now) && b.Value > m {
			m = b.Value
		}
	}
	return m
}
