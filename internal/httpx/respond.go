// Package httpx holds the JSON response helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sirupsen/logrus"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError maps domain errors to status codes. Unknown errors become a
// 500 with fallback as the message.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	var cooldown *models.CooldownError
	switch {
	case errors.As(err, &cooldown):
		WriteJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Error:             err.Error(),
			Code:              "cooldown_active",
			RetryAfterSeconds: int64(cooldown.Remaining.Seconds() + 0.5),
		})
	case errors.Is(err, models.ErrInsufficientFunds):
		WriteJSON(w, http.StatusPaymentRequired, models.ErrorResponse{Error: err.Error(), Code: "insufficient_funds"})
	case errors.Is(err, models.ErrContentExhausted):
		WriteJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error(), Code: "content_exhausted"})
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, models.ErrUnknownTier):
		WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "invalid_request"})
	case errors.Is(err, models.ErrAlreadyCompletedToday):
		WriteJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error(), Code: "already_completed"})
	case errors.Is(err, models.ErrNoActiveSession),
		errors.Is(err, models.ErrWrongQuestion),
		errors.Is(err, models.ErrRoundInProgress),
		errors.Is(err, models.ErrRoundNotBetting),
		errors.Is(err, models.ErrRoundNotRunning),
		errors.Is(err, models.ErrRoundCrashed):
		WriteJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error(), Code: "invalid_state"})
	default:
		logrus.Errorf("[http] %s: %v", fallback, err)
		WriteJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fallback})
	}
}

func IntQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
