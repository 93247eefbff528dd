package models

import "time"

// StakeTier configures one Gauntlet entry level.
type StakeTier struct {
	Label         string `json:"label" yaml:"label"`
	XPCost        int64  `json:"xp_cost" yaml:"xp_cost"`
	RewardXP      int64  `json:"reward_xp" yaml:"reward_xp"`
	QuestionCount int    `json:"question_count" yaml:"question_count"`
}

// ── Gauntlet ──────────────────────────────────────────────

type GauntletPhase string

const (
	GauntletLobby   GauntletPhase = "lobby"
	GauntletPlaying GauntletPhase = "playing"
	GauntletVictory GauntletPhase = "victory"
	GauntletDefeat  GauntletPhase = "defeat"
)

// GauntletRecord is the persisted per-identity Gauntlet history.
type GauntletRecord struct {
	SeenQuestionIDs []int64   `json:"seen_question_ids"`
	LastPlayedAt    time.Time `json:"last_played_at"`
}

type EnterGauntletRequest struct {
	Tier int `json:"tier"`
}

type GauntletAnswerRequest struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

type GauntletState struct {
	SessionID         string        `json:"session_id,omitempty"`
	Phase             GauntletPhase `json:"phase"`
	Tier              *StakeTier    `json:"tier,omitempty"`
	QuestionIndex     int           `json:"question_index"`
	QuestionCount     int           `json:"question_count"`
	Question          *QuestionView `json:"question,omitempty"`
	CooldownRemaining int64         `json:"cooldown_remaining_seconds"`
	Tiers             []StakeTier   `json:"tiers,omitempty"`
}

type GauntletAnswerResponse struct {
	Correct       bool              `json:"correct"`
	CorrectAnswer string            `json:"correct_answer"`
	CreditedXP    int64             `json:"credited_xp,omitempty"`
	State         GauntletState     `json:"state"`
	Progress      *ProgressSnapshot `json:"progress,omitempty"`
}

// ── Crash ─────────────────────────────────────────────────

type CrashPhase string

const (
	CrashIdle    CrashPhase = "idle"
	CrashBetting CrashPhase = "betting"
	CrashRunning CrashPhase = "running"
	CrashCrashed CrashPhase = "crashed"
)

type CrashBetRequest struct {
	Wager int64 `json:"wager"`
}

// CrashState is both the REST response and the websocket event payload for
// a crash round. CrashPoint is only revealed once the round has crashed;
// a round that was cashed out never reveals it.
type CrashState struct {
	RoundID    string     `json:"round_id,omitempty"`
	Phase      CrashPhase `json:"phase"`
	Wager      int64      `json:"wager,omitempty"`
	Countdown  int        `json:"countdown,omitempty"`
	Multiplier float64    `json:"multiplier"`
	CrashPoint float64    `json:"crash_point,omitempty"`
	CashedOut  bool       `json:"cashed_out"`
	CashOutAt  string     `json:"cash_out_at,omitempty"`
	Payout     int64      `json:"payout,omitempty"`
	Error      string     `json:"error,omitempty"`
	At         time.Time  `json:"at"`
}
