package models

import (
	"time"
)

// Identity is the stable player identity handed over by the session
// provider. JoinedAt is the account creation time claimed by the token.
type Identity struct {
	ID       string    `json:"id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Age returns how long the identity has existed at now.
func (i Identity) Age(now time.Time) time.Duration {
	if i.JoinedAt.IsZero() {
		return 0
	}
	return now.Sub(i.JoinedAt)
}

type ErrorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}
