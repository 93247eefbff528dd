package stake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/auth"
	"github.com/sankofa-trivia/backend/internal/models"
)

func serveAs(identity string, fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/gauntlet", strings.NewReader(body))
	if identity != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), models.Identity{ID: identity}))
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestHandler_EnterGauntletCooldown(t *testing.T) {
	g, e := newTestGauntlet(t, 10)
	h := NewHandler(g, nil)
	e.fund(t, "ama", 1000)

	rec := serveAs("ama", h.EnterGauntlet, `{"tier":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first enter status = %d, want 201: %s", rec.Code, rec.Body)
	}

	rec = serveAs("ama", h.EnterGauntlet, `{"tier":0}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("enter during run status = %d, want 409", rec.Code)
	}

	if rec := serveAs("ama", h.ResetGauntlet, ""); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", rec.Code)
	}

	e.clock.Advance(time.Hour)
	rec = serveAs("ama", h.EnterGauntlet, `{"tier":0}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("enter during cooldown status = %d, want 429: %s", rec.Code, rec.Body)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "cooldown_active" || body.RetryAfterSeconds != int64((23 * time.Hour).Seconds()) {
		t.Errorf("cooldown body = %+v, want retry after 23h", body)
	}
	if got := e.balance(t, "ama"); got != 900 {
		t.Errorf("balance = %d, want 900 (one entry fee)", got)
	}

	e.clock.Advance(23 * time.Hour)
	if rec := serveAs("ama", h.EnterGauntlet, `{"tier":0}`); rec.Code != http.StatusCreated {
		t.Errorf("enter after cooldown status = %d, want 201", rec.Code)
	}
}

func TestHandler_EnterGauntletErrors(t *testing.T) {
	tests := []struct {
		name       string
		identity   string
		body       string
		fund       int64
		wantStatus int
	}{
		{"unauthenticated", "", `{"tier":0}`, 1000, http.StatusUnauthorized},
		{"malformed body", "kofi", `{"tier":`, 1000, http.StatusBadRequest},
		{"unknown tier", "kofi", `{"tier":7}`, 1000, http.StatusBadRequest},
		{"insufficient funds", "kofi", `{"tier":1}`, 100, http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, e := newTestGauntlet(t, 10)
			e.fund(t, "kofi", tt.fund)
			rec := serveAs(tt.identity, NewHandler(g, nil).EnterGauntlet, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandler_EnterGauntletContentExhausted(t *testing.T) {
	g, e := newTestGauntlet(t, 1)
	e.fund(t, "esi", 1000)

	rec := serveAs("esi", NewHandler(g, nil).EnterGauntlet, `{"tier":0}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if got := e.balance(t, "esi"); got != 1000 {
		t.Errorf("balance = %d, want 1000 (no debit)", got)
	}
}
