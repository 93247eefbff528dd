package gamification

import (
	"encoding/json"
	"net/http"

	"github.com/sankofa-trivia/backend/internal/auth"
	"github.com/sankofa-trivia/backend/internal/httpx"
	"github.com/sankofa-trivia/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func getIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
	}
	return ident, ok
}

// ── Session & Progress ──────────────────────────────────

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	ident, ok := getIdentity(w, r)
	if !ok {
		return
	}

	resp, err := h.service.StartSession(r.Context(), ident)
	if err != nil {
		httpx.WriteError(w, err, "Failed to start session")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ident, ok := getIdentity(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Home(r.Context(), ident.ID)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get progress")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetXPHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := getIdentity(w, r)
	if !ok {
		return
	}

	limit := httpx.IntQueryParam(r.URL.Query(), "limit", 50)
	if limit > 200 {
		limit = 200
	}

	resp, err := h.service.XPHistory(r.Context(), ident.ID, limit)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get XP history")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Quizzes ─────────────────────────────────────────────

func (h *Handler) GetDailyStatus(w http.ResponseWriter, r *http.Request) {
	ident, ok := getIdentity(w, r)
	if !ok {
		return
	}

	status, err := h.service.Daily().Status(r.Context(), ident.ID)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get daily status")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) CompleteDailyQuiz(w http.ResponseWriter, r *http.Request) {
	ident, ok := getIdentity(w, r)
	if !ok {
		return
	}

	var req models.CompleteQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.CompleteDailyQuiz(r.Context(), ident.ID, req)
	if err != nil {
		httpx.WriteError(w, err, "Failed to complete daily quiz")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CompleteCategoryQuiz(w http.ResponseWriter, r *http.Request) {
	ident, ok := getIdentity(w, r)
	if !ok {
		return
	}

	var req models.CompleteQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.CompleteCategoryQuiz(r.Context(), ident.ID, req)
	if err != nil {
		httpx.WriteError(w, err, "Failed to complete category quiz")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Leaderboard ─────────────────────────────────────────

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := getIdentity(w, r); !ok {
		return
	}

	limit := httpx.IntQueryParam(r.URL.Query(), "limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	resp, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, err, "Failed to get leaderboard")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
