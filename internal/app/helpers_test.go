package app_test

import (
	"context"
	"errors"
	"time"

	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/infra/memory"
	"driving-quiz-service/internal/logging"
)

// manualClock is a settable time source.
type manualClock struct {
	t time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// brokenStore fails every call, standing in for unavailable storage.
type brokenStore struct{}

var errStorageDown = errors.New("storage down")

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errStorageDown }
func (brokenStore) Set(context.Context, string, []byte) error         { return errStorageDown }
func (brokenStore) Remove(context.Context, string) error              { return errStorageDown }

func nopLogger() logging.Logger { return logging.NewNopLogger() }

func newKV() *memory.KVStore { return memory.NewKVStore() }

// makeQuestions builds n questions whose first option (order 1) is correct.
func makeQuestions(firstID, n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:    firstID + i,
			Title: "Question",
			Options: []domain.Option{
				{ID: (firstID + i) * 10, Text: "right", Order: 1},
				{ID: (firstID+i)*10 + 1, Text: "wrong", Order: 2},
			},
			CorrectAnswerIndex: 1,
		})
	}
	return questions
}
