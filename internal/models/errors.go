package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient XP")
	ErrContentExhausted      = errors.New("content exhausted")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrAlreadyCompletedToday = errors.New("daily challenge already completed today")
	ErrNoActiveSession       = errors.New("no active session")
	ErrWrongQuestion         = errors.New("answer does not match the current question")
	ErrRoundInProgress       = errors.New("round already in progress")
	ErrRoundNotBetting       = errors.New("round is not accepting wagers")
	ErrRoundNotRunning       = errors.New("round is not running")
	ErrRoundCrashed          = errors.New("round crashed before cash-out")
	ErrUnknownTier           = errors.New("unknown stake tier")
)

// CooldownError is returned when an entry is attempted before the cooldown
// window has elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: %s remaining", e.Remaining.Round(time.Second))
}
