package gamification

import (
	"math"

	"github.com/sankofa-trivia/backend/internal/models"
)

const (
	baseRewardXP   = 100
	levelRewardXP  = 10
	perCorrectXP   = 20
	perfectRunXP   = 100
	perStreakDayXP = 5
)

// ComputeReward returns the quiz-completion breakdown before any buff
// multiplier is applied.
func ComputeReward(correct, total, streak, level int) models.RewardBreakdown {
	if correct < 0 {
		correct = 0
	}
	if streak < 0 {
		streak = 0
	}

	r := models.RewardBreakdown{
		BaseXP:       int64(baseRewardXP + levelRewardXP*level),
		PerCorrectXP: int64(perCorrectXP * correct),
		StreakBonus:  int64(perStreakDayXP * streak),
	}
	if total > 0 && correct == total {
		r.PerfectBonus = perfectRunXP
	}
	r.Total = r.BaseXP + r.PerCorrectXP + r.PerfectBonus + r.StreakBonus
	return r
}

// ApplyMultiplier rounds half away from zero. Every multiplier-affected
// credit in the system goes through here.
func ApplyMultiplier(xp int64, multiplier float64) int64 {
	return int64(math.Round(float64(xp) * multiplier))
}
