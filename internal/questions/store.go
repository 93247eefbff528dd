package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sankofa-trivia/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Seed upserts the catalog questions in one transaction and returns how many
// rows were written. Re-seeding the same catalog is a no-op apart from
// refreshed text.
func (s *Store) Seed(ctx context.Context, qs []models.Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixMilli()
	written := 0
	for _, q := range qs {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("encode options for question %d: %w", q.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, category, prompt, options, answer, difficulty, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			     category = excluded.category,
			     prompt = excluded.prompt,
			     options = excluded.options,
			     answer = excluded.answer,
			     difficulty = excluded.difficulty`,
			q.ID, q.Category, q.Prompt, string(opts), q.Answer, q.Difficulty, now,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert question %d: %w", q.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return written, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM questions ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ListCandidates returns every question not in excludeIDs, ordered by id.
// An empty category matches all categories.
func (s *Store) ListCandidates(ctx context.Context, category string, excludeIDs []int64) ([]models.Question, error) {
	var args []interface{}
	var filterClauses []string

	if category != "" {
		filterClauses = append(filterClauses, "category = ?")
		args = append(args, category)
	}
	if len(excludeIDs) > 0 {
		placeholders := make([]string, len(excludeIDs))
		for i, id := range excludeIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		filterClauses = append(filterClauses, fmt.Sprintf("id NOT IN (%s)", strings.Join(placeholders, ",")))
	}

	where := ""
	if len(filterClauses) > 0 {
		where = "WHERE " + strings.Join(filterClauses, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, category, prompt, options, answer, difficulty, created_at
		FROM questions
		%s
		ORDER BY id`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	var qs []models.Question
	for rows.Next() {
		var q models.Question
		var opts string
		var createdMs int64
		if err := rows.Scan(&q.ID, &q.Category, &q.Prompt, &opts, &q.Answer, &q.Difficulty, &createdMs); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for question %d: %w", q.ID, err)
		}
		q.CreatedAt = time.UnixMilli(createdMs).UTC()
		qs = append(qs, q)
	}
	return qs, rows.Err()
}
