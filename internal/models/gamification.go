package models

import "time"

// ── Core Progress Structs ─────────────────────────────────

type BuffKind string

const (
	BuffShield     BuffKind = "shield"
	BuffMultiplier BuffKind = "multiplier"
)

// Buff is a temporary or consumable modifier owned by a player. A nil
// ExpiresAt means the buff lasts until it is consumed.
type Buff struct {
	Kind      BuffKind   `json:"kind"`
	Value     float64    `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Source    string     `json:"source,omitempty"`
}

// Active reports whether the buff is still usable at now.
func (b Buff) Active(now time.Time) bool {
	return b.ExpiresAt == nil || !now.After(*b.ExpiresAt)
}

// PlayerProgress is the persisted root aggregate of the ledger. Level and
// rank are derived from TotalXP and never stored.
type PlayerProgress struct {
	TotalXP     int64     `json:"total_xp"`
	ActiveBuffs []Buff    `json:"active_buffs"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p PlayerProgress) Clone() PlayerProgress {
	c := p
	c.ActiveBuffs = make([]Buff, len(p.ActiveBuffs))
	copy(c.ActiveBuffs, p.ActiveBuffs)
	return c
}

type StreakState struct {
	LastPlayedDate string `json:"last_played_date"`
	CurrentStreak  int    `json:"current_streak"`
}

type DailyChallengeState struct {
	LastCompletedDate string `json:"last_completed_date"`
}

type XPEvent struct {
	ID        int64     `json:"id"`
	Identity  string    `json:"identity"`
	EventType string    `json:"event_type"`
	XPAmount  int64     `json:"xp_amount"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ── Derived Views ─────────────────────────────────────────

type LevelInfo struct {
	Level           int    `json:"level"`
	Rank            string `json:"rank"`
	ProgressPercent int    `json:"progress_percent"`
	XPToNextLevel   int64  `json:"xp_to_next_level"`
}

type ProgressSnapshot struct {
	LevelInfo
	Identity    string  `json:"identity"`
	TotalXP     int64   `json:"total_xp"`
	ActiveBuffs []Buff  `json:"active_buffs"`
	Shields     int     `json:"shields"`
	Multiplier  float64 `json:"multiplier"`
	Unsaved     bool    `json:"unsaved,omitempty"`
}

type RewardBreakdown struct {
	BaseXP       int64 `json:"base_xp"`
	PerCorrectXP int64 `json:"per_correct_xp"`
	PerfectBonus int64 `json:"perfect_bonus"`
	StreakBonus  int64 `json:"streak_bonus"`
	Total        int64 `json:"total"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Identity string `json:"identity"`
	TotalXP  int64  `json:"total_xp"`
}

// ── Request Types ─────────────────────────────────────────

type CompleteQuizRequest struct {
	Category string `json:"category,omitempty"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

// ── Response Types ────────────────────────────────────────

type StreakInfo struct {
	Current    int    `json:"current"`
	LastPlayed string `json:"last_played,omitempty"`
}

type DailyStatus struct {
	CompletedToday bool   `json:"completed_today"`
	Date           string `json:"date"`
}

type SessionResponse struct {
	Progress ProgressSnapshot `json:"progress"`
	Streak   StreakInfo       `json:"streak"`
	Daily    DailyStatus      `json:"daily"`
}

type QuizCompleteResponse struct {
	Reward         RewardBreakdown  `json:"reward"`
	CreditedXP     int64            `json:"credited_xp"`
	ShieldConsumed bool             `json:"shield_consumed"`
	Streak         StreakInfo       `json:"streak"`
	Progress       ProgressSnapshot `json:"progress"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type XPHistoryResponse struct {
	Events []XPEvent `json:"events"`
}
