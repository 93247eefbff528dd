package questions

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sankofa-trivia/backend/internal/clock"
	"github.com/sankofa-trivia/backend/internal/gamification"
	"github.com/sankofa-trivia/backend/internal/httpx"
	"github.com/sankofa-trivia/backend/internal/models"
)

const (
	dailyQuestionCount  = 5
	defaultQuizCount    = 5
	maxCategoryQuizSize = 20
)

type Handler struct {
	bank  *Bank
	clock clock.Clock
	loc   *time.Location
}

func NewHandler(bank *Bank, clk clock.Clock, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{bank: bank, clock: clk, loc: loc}
}

func (h *Handler) DailyQuestions(w http.ResponseWriter, r *http.Request) {
	date := gamification.DateOf(h.clock.Now(), h.loc)

	qs, err := h.bank.DailySet(r.Context(), date, dailyQuestionCount)
	if err != nil {
		httpx.WriteError(w, err, "Failed to load daily questions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.QuizQuestionsResponse{Date: date, Questions: quizItems(qs)})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.bank.Categories(r.Context())
	if err != nil {
		httpx.WriteError(w, err, "Failed to list categories")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.CategoriesResponse{Categories: cats})
}

func (h *Handler) CategoryQuestions(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	count := httpx.IntQueryParam(r.URL.Query(), "count", defaultQuizCount)
	if count == 0 {
		count = defaultQuizCount
	}
	if count > maxCategoryQuizSize {
		count = maxCategoryQuizSize
	}

	qs, err := h.bank.Draw(r.Context(), category, count, nil)
	if err != nil {
		httpx.WriteError(w, err, "Failed to load questions")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.QuizQuestionsResponse{Category: category, Questions: quizItems(qs)})
}
