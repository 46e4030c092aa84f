package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"driving-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID                 int    `bun:"id,pk"`
	Title              string `bun:"title,notnull"`
	Image              string `bun:"image,notnull"`
	CategoryID         int    `bun:"category_id,notnull"`
	Screening          bool   `bun:"is_screening,notnull"`
	CorrectAnswerIndex int    `bun:"correct_answer_index,notnull"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:options"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int    `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
	SortOrder  int    `bun:"sort_order,notnull"`
}

// CatalogImporter upserts question catalogs through bun.
type CatalogImporter struct {
	db *bun.DB
}

func NewCatalogImporter(db *bun.DB) *CatalogImporter {
	return &CatalogImporter{db: db}
}

// Import replaces each question of the catalog together with its options.
// Questions absent from the catalog are left untouched.
func (i *CatalogImporter) Import(ctx context.Context, catalog domain.Catalog) (int, error) {
	err := i.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, q := range catalog {
			row := questionRow{
				ID:                 q.ID,
				Title:              q.Title,
				Image:              q.Image,
				CategoryID:         q.CategoryID,
				Screening:          q.Screening,
				CorrectAnswerIndex: q.CorrectAnswerIndex,
			}
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (id) DO UPDATE").
				Set("title = EXCLUDED.title").
				Set("image = EXCLUDED.image").
				Set("category_id = EXCLUDED.category_id").
				Set("is_screening = EXCLUDED.is_screening").
				Set("correct_answer_index = EXCLUDED.correct_answer_index").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert question %d: %w", q.ID, err)
			}

			if _, err := tx.NewDelete().Model((*optionRow)(nil)).Where("question_id = ?", q.ID).Exec(ctx); err != nil {
				return fmt.Errorf("clear options of %d: %w", q.ID, err)
			}
			if len(q.Options) == 0 {
				continue
			}
			options := make([]optionRow, 0, len(q.Options))
			for _, opt := range q.Options {
				options = append(options, optionRow{QuestionID: q.ID, Text: opt.Text, SortOrder: opt.Order})
			}
			if _, err := tx.NewInsert().Model(&options).Exec(ctx); err != nil {
				return fmt.Errorf("insert options of %d: %w", q.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(catalog), nil
}
