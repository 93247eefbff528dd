package models

import "time"

// Question is a single cultural trivia item. Answer always matches one of
// Options exactly.
type Question struct {
	ID         int64     `json:"id" yaml:"id"`
	Category   string    `json:"category" yaml:"category"`
	Prompt     string    `json:"prompt" yaml:"prompt"`
	Options    []string  `json:"options" yaml:"options"`
	Answer     string    `json:"-" yaml:"answer"`
	Difficulty string    `json:"difficulty,omitempty" yaml:"difficulty"`
	CreatedAt  time.Time `json:"created_at,omitempty" yaml:"-"`
}

// QuestionView is what a player sees: the answer is withheld.
type QuestionView struct {
	ID       int64    `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
}

func (q Question) View() QuestionView {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return QuestionView{ID: q.ID, Category: q.Category, Prompt: q.Prompt, Options: opts}
}

type RitualEffect string

const (
	EffectXPRefund     RitualEffect = "xp_refund"
	EffectShield       RitualEffect = "shield"
	EffectXPMultiplier RitualEffect = "xp_multiplier"
)

var ValidRitualEffects = map[RitualEffect]bool{
	EffectXPRefund:     true,
	EffectShield:       true,
	EffectXPMultiplier: true,
}

// RitualItem is one collectible proverb in the ritual pool.
type RitualItem struct {
	ID      string       `json:"id" yaml:"id"`
	Proverb string       `json:"proverb" yaml:"proverb"`
	Meaning string       `json:"meaning" yaml:"meaning"`
	Effect  RitualEffect `json:"effect" yaml:"effect"`
	Value   float64      `json:"value" yaml:"value"`
	Rarity  string       `json:"rarity" yaml:"rarity"`
}

type RitualPoolEntry struct {
	RitualItem
	Unlocked bool `json:"unlocked"`
}

type RitualPoolResponse struct {
	CostXP    int64             `json:"cost_xp"`
	Items     []RitualPoolEntry `json:"items"`
	Remaining int               `json:"remaining"`
}

type RitualResult struct {
	Item       RitualItem       `json:"item"`
	Buff       *Buff            `json:"buff,omitempty"`
	RefundedXP int64            `json:"refunded_xp,omitempty"`
	Progress   ProgressSnapshot `json:"progress"`
}

// QuizQuestion carries the answer: quizzes are graded by the client and
// only the score is reported back.
type QuizQuestion struct {
	QuestionView
	Answer string `json:"answer"`
}

type QuizQuestionsResponse struct {
	Date      string         `json:"date,omitempty"`
	Category  string         `json:"category,omitempty"`
	Questions []QuizQuestion `json:"questions"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}
