package stake

import (
	"encoding/json"
	"net/http"

	"github.com/sankofa-trivia/backend/internal/auth"
	"github.com/sankofa-trivia/backend/internal/httpx"
	"github.com/sankofa-trivia/backend/internal/models"
)

type Handler struct {
	gauntlet *Gauntlet
	crash    *Crash
}

func NewHandler(gauntlet *Gauntlet, crash *Crash) *Handler {
	return &Handler{gauntlet: gauntlet, crash: crash}
}

func getIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return "", false
	}
	return ident.ID, true
}

// ── Gauntlet ────────────────────────────────────────────

func (h *Handler) GauntletStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	state, err := h.gauntlet.Status(r.Context(), identity)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get gauntlet status")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) EnterGauntlet(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	var req models.EnterGauntletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	state, err := h.gauntlet.Enter(r.Context(), identity, req.Tier)
	if err != nil {
		httpx.WriteError(w, err, "Failed to enter gauntlet")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, state)
}

func (h *Handler) AnswerGauntlet(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	var req models.GauntletAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.gauntlet.Answer(r.Context(), identity, req)
	if err != nil {
		httpx.WriteError(w, err, "Failed to submit answer")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ResetGauntlet(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	state, err := h.gauntlet.Reset(r.Context(), identity)
	if err != nil {
		httpx.WriteError(w, err, "Failed to reset gauntlet")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, state)
}

// ── Crash ───────────────────────────────────────────────

func (h *Handler) CrashState(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.crash.State(identity))
}

func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	var req models.CrashBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	state, err := h.crash.PlaceBet(r.Context(), identity, req.Wager)
	if err != nil {
		httpx.WriteError(w, err, "Failed to place bet")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, state)
}

func (h *Handler) AdjustWager(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	var req models.CrashBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	state, err := h.crash.AdjustWager(r.Context(), identity, req.Wager)
	if err != nil {
		httpx.WriteError(w, err, "Failed to adjust wager")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) CashOut(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(w, r)
	if !ok {
		return
	}

	state, err := h.crash.CashOut(r.Context(), identity)
	if err != nil {
		httpx.WriteError(w, err, "Failed to cash out")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, state)
}
