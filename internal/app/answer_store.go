package app

import (
	"context"
	"time"

	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
)

// AnswerStore keeps one user's answers, one JSON list per scope.
// Every operation is best-effort: failures are logged and never returned.
type AnswerStore struct {
	store jsonStore
	now   func() time.Time
}

func NewAnswerStore(kv KVStore, userID string, logger logging.Logger) *AnswerStore {
	return NewAnswerStoreWithClock(kv, userID, logger, time.Now)
}

// NewAnswerStoreWithClock allows deterministic timestamps in tests.
func NewAnswerStoreWithClock(kv KVStore, userID string, logger logging.Logger, now func() time.Time) *AnswerStore {
	return &AnswerStore{store: newJSONStore(kv, userID, logger), now: now}
}

// SaveAnswer replaces any previous answer for the question in the scope.
func (s *AnswerStore) SaveAnswer(ctx context.Context, scope domain.Scope, questionID, selectedIndex int, isCorrect bool) domain.AnswerRecord {
	record := domain.AnswerRecord{
		QuestionID:     questionID,
		SelectedAnswer: selectedIndex,
		IsCorrect:      isCorrect,
		AnsweredAt:     s.now(),
	}
	id := scope.ID
	if scope.Kind == domain.ScopeCategory {
		record.CategoryID = &id
	} else {
		record.TestID = &id
	}

	key := s.key(scope)
	defer scopeLocks.lock(key)()

	existing := s.AnswersForScope(ctx, scope)
	records := make([]domain.AnswerRecord, 0, len(existing)+1)
	for _, r := range existing {
		if r.QuestionID != questionID {
			records = append(records, r)
		}
	}
	records = append(records, record)
	s.store.save(ctx, key, records)
	return record
}

// GetAnswer returns the stored answer for a question, if any.
func (s *AnswerStore) GetAnswer(ctx context.Context, scope domain.Scope, questionID int) (domain.AnswerRecord, bool) {
	for _, r := range s.AnswersForScope(ctx, scope) {
		if r.QuestionID == questionID {
			return r, true
		}
	}
	return domain.AnswerRecord{}, false
}

// AnswersForScope returns every answer in the scope in insertion order.
func (s *AnswerStore) AnswersForScope(ctx context.Context, scope domain.Scope) []domain.AnswerRecord {
	var records []domain.AnswerRecord
	if !s.store.load(ctx, s.key(scope), &records) {
		return nil
	}
	return records
}

// ClearScope drops all answers of the scope and nothing else.
func (s *AnswerStore) ClearScope(ctx context.Context, scope domain.Scope) {
	s.store.remove(ctx, s.key(scope))
}

func (s *AnswerStore) key(scope domain.Scope) string {
	return s.store.key("answers", scope.Key())
}
