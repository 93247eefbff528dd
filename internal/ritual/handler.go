package ritual

import (
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

func (h *Handler) Pool(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.service.Pool(r.Context(), ident.ID)
	if err != nil {
		httpx.WriteError(w, err, "Failed to load ritual pool")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	result, err := h.service.Invoke(r.Context(), ident.ID)
	if err != nil {
		httpx.WriteError(w, err, "Ritual failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}
