package postgres

import (
	"context"
	"fmt"

	"driving-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads the question catalog from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadQuestions returns questions ordered by id. Options keep their insertion
// order, which is independent of their sort_order value.
func (l *QuestionLoader) LoadQuestions(ctx context.Context) (domain.Catalog, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, title, image, category_id, is_screening, correct_answer_index FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var catalog domain.Catalog
	positions := make(map[int]int)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Image, &q.CategoryID, &q.Screening, &q.CorrectAnswerIndex); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		positions[q.ID] = len(catalog)
		catalog = append(catalog, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	optRows, err := l.pool.Query(ctx, `SELECT id, question_id, text, sort_order FROM options ORDER BY question_id, id`)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var (
			opt        domain.Option
			id         int64
			questionID int
		)
		if err := optRows.Scan(&id, &questionID, &opt.Text, &opt.Order); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		opt.ID = int(id)
		pos, ok := positions[questionID]
		if !ok {
			continue
		}
		catalog[pos].Options = append(catalog[pos].Options, opt)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	return catalog, nil
}
