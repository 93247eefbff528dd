package stake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sankofa-trivia/backend/internal/models"
	"github.com/sankofa-trivia/backend/internal/storage"
)

var testTiers = []models.StakeTier{
	{Label: "Akwaaba", XPCost: 100, RewardXP: 300, QuestionCount: 2},
	{Label: "Kente Weaver", XPCost: 500, RewardXP: 2000, QuestionCount: 3},
}

func newTestGauntlet(t *testing.T, questions int) (*Gauntlet, *env) {
	t.Helper()
	e := newEnv(t)
	g := NewGauntlet(testTiers, 24*time.Hour, e.ledger, newFakeQuestions(questions), e.kv, e.clock)
	return g, e
}

func answerCurrent(t *testing.T, g *Gauntlet, identity, answer string) *models.GauntletAnswerResponse {
	t.Helper()
	st, err := g.Status(context.Background(), identity)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Question == nil {
		t.Fatalf("no current question in phase %s", st.Phase)
	}
	resp, err := g.Answer(context.Background(), identity, models.GauntletAnswerRequest{QuestionID: st.Question.ID, Answer: answer})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	return resp
}

func TestGauntlet_Victory(t *testing.T) {
	g, e := newTestGauntlet(t, 6)
	ctx := context.Background()
	e.fund(t, "ama", 500)

	st, err := g.Enter(ctx, "ama", 0)
	if err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if st.Phase != models.GauntletPlaying || st.QuestionCount != 2 || st.SessionID == "" {
		t.Fatalf("Enter() state = %+v", st)
	}
	if got := e.balance(t, "ama"); got != 400 {
		t.Errorf("balance after entry = %d, want 400", got)
	}

	resp := answerCurrent(t, g, "ama", "right")
	if !resp.Correct || resp.State.Phase != models.GauntletPlaying {
		t.Fatalf("first answer = %+v", resp)
	}
	resp = answerCurrent(t, g, "ama", "right")
	if resp.State.Phase != models.GauntletVictory {
		t.Fatalf("phase = %s, want victory", resp.State.Phase)
	}
	if resp.CreditedXP != 300 {
		t.Errorf("CreditedXP = %d, want 300", resp.CreditedXP)
	}
	if got := e.balance(t, "ama"); got != 700 {
		t.Errorf("balance after victory = %d, want 700", got)
	}

	var rec models.GauntletRecord
	if _, err := storage.GetJSON(ctx, e.kv, "ama", keyGauntlet, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.SeenQuestionIDs) != 2 || !rec.LastPlayedAt.Equal(testStart) {
		t.Errorf("persisted record = %+v", rec)
	}
}

func TestGauntlet_DefeatKeepsStake(t *testing.T) {
	g, e := newTestGauntlet(t, 6)
	e.fund(t, "kofi", 100)

	if _, err := g.Enter(context.Background(), "kofi", 0); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	resp := answerCurrent(t, g, "kofi", "wrong")
	if resp.Correct || resp.State.Phase != models.GauntletDefeat {
		t.Fatalf("answer = %+v, want defeat", resp)
	}
	if resp.CorrectAnswer != "right" {
		t.Errorf("CorrectAnswer = %q", resp.CorrectAnswer)
	}
	if got := e.balance(t, "kofi"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}

	_, err := g.Answer(context.Background(), "kofi", models.GauntletAnswerRequest{QuestionID: 2, Answer: "right"})
	if !errors.Is(err, models.ErrNoActiveSession) {
		t.Errorf("answer after defeat error = %v, want ErrNoActiveSession", err)
	}
}

func TestGauntlet_CooldownAppliesRegardlessOfOutcome(t *testing.T) {
	g, e := newTestGauntlet(t, 10)
	ctx := context.Background()
	e.fund(t, "esi", 1000)

	g.Enter(ctx, "esi", 0)
	answerCurrent(t, g, "esi", "wrong")
	if _, err := g.Reset(ctx, "esi"); err != nil {
		t.Fatal(err)
	}

	e.clock.Advance(23 * time.Hour)
	_, err := g.Enter(ctx, "esi", 0)
	var cooldown *models.CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("Enter() error = %v, want CooldownError", err)
	}
	if cooldown.Remaining != time.Hour {
		t.Errorf("Remaining = %v, want 1h", cooldown.Remaining)
	}
	if got := e.balance(t, "esi"); got != 900 {
		t.Errorf("balance = %d, want 900 (no debit on rejected entry)", got)
	}

	e.clock.Advance(time.Hour)
	if _, err := g.Enter(ctx, "esi", 0); err != nil {
		t.Errorf("Enter() after cooldown error = %v", err)
	}
}

func TestGauntlet_EntryCheckOrder(t *testing.T) {
	g, e := newTestGauntlet(t, 2)
	ctx := context.Background()

	// No funds and not enough questions for tier 1: funds fail first.
	if _, err := g.Enter(ctx, "yaw", 1); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("Enter() error = %v, want ErrInsufficientFunds", err)
	}

	e.fund(t, "yaw", 1000)
	if _, err := g.Enter(ctx, "yaw", 1); !errors.Is(err, models.ErrContentExhausted) {
		t.Errorf("Enter() error = %v, want ErrContentExhausted", err)
	}
	if got := e.balance(t, "yaw"); got != 1000 {
		t.Errorf("balance = %d, want 1000 after rejected entries", got)
	}

	st, err := g.Status(ctx, "yaw")
	if err != nil {
		t.Fatal(err)
	}
	if st.CooldownRemaining != 0 || st.Phase != models.GauntletLobby {
		t.Errorf("rejected entry changed state: %+v", st)
	}

	if _, err := g.Enter(ctx, "yaw", 7); !errors.Is(err, models.ErrUnknownTier) {
		t.Errorf("Enter(7) error = %v, want ErrUnknownTier", err)
	}
}

func TestGauntlet_NeverRepeatsSeenQuestions(t *testing.T) {
	g, e := newTestGauntlet(t, 5)
	ctx := context.Background()
	e.fund(t, "abena", 1000)

	served := make(map[int64]bool)
	for round := 0; round < 2; round++ {
		st, err := g.Enter(ctx, "abena", 0)
		if err != nil {
			t.Fatalf("round %d Enter() error = %v", round, err)
		}
		for st.Phase == models.GauntletPlaying {
			id := st.Question.ID
			if served[id] {
				t.Fatalf("question %d served twice", id)
			}
			served[id] = true
			resp, err := g.Answer(ctx, "abena", models.GauntletAnswerRequest{QuestionID: id, Answer: "right"})
			if err != nil {
				t.Fatal(err)
			}
			st = &resp.State
		}
		g.Reset(ctx, "abena")
		e.clock.Advance(24 * time.Hour)
	}

	// Four of five seen; a two-question tier cannot be filled.
	if _, err := g.Enter(ctx, "abena", 0); !errors.Is(err, models.ErrContentExhausted) {
		t.Errorf("third Enter() error = %v, want ErrContentExhausted", err)
	}
}

func TestGauntlet_AnswerValidation(t *testing.T) {
	g, e := newTestGauntlet(t, 6)
	ctx := context.Background()
	e.fund(t, "kwame", 500)

	if _, err := g.Answer(ctx, "kwame", models.GauntletAnswerRequest{QuestionID: 1}); !errors.Is(err, models.ErrNoActiveSession) {
		t.Errorf("Answer() without session error = %v", err)
	}

	st, _ := g.Enter(ctx, "kwame", 0)
	if _, err := g.Enter(ctx, "kwame", 0); !errors.Is(err, models.ErrRoundInProgress) {
		t.Errorf("second Enter() error = %v, want ErrRoundInProgress", err)
	}
	_, err := g.Answer(ctx, "kwame", models.GauntletAnswerRequest{QuestionID: st.Question.ID + 100, Answer: "right"})
	if !errors.Is(err, models.ErrWrongQuestion) {
		t.Errorf("Answer() for other question error = %v, want ErrWrongQuestion", err)
	}
}

func TestGauntlet_RewardUsesMultiplier(t *testing.T) {
	g, e := newTestGauntlet(t, 6)
	ctx := context.Background()
	e.fund(t, "ama", 100)
	e.ledger.AddBuff(ctx, "ama", models.Buff{Kind: models.BuffMultiplier, Value: 1.5})

	g.Enter(ctx, "ama", 0)
	answerCurrent(t, g, "ama", "right")
	resp := answerCurrent(t, g, "ama", "right")
	if resp.CreditedXP != 450 {
		t.Errorf("CreditedXP = %d, want 450", resp.CreditedXP)
	}
}
