package app

import (
	"context"
	"fmt"
	"time"

	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
)

// DefaultTestSize is how many educational questions make up one test.
const DefaultTestSize = 20

// Settings tunes the quiz flows; zero values fall back to the defaults.
type Settings struct {
	TestDuration  time.Duration
	TestSize      int
	ScreeningSize int
}

// ProgressService builds per-user quiz flows on top of a question source and
// a progress store.
type ProgressService struct {
	kv        KVStore
	questions QuestionSource
	logger    logging.Logger
	settings  Settings
	evaluator Evaluator
	now       func() time.Time
	rnd       RandomSource
}

func NewProgressService(kv KVStore, questions QuestionSource, logger logging.Logger, settings Settings) *ProgressService {
	return NewProgressServiceWithDeps(kv, questions, logger, settings, time.Now, newLockedRand())
}

// NewProgressServiceWithDeps is test-only for deterministic clocks and sampling.
func NewProgressServiceWithDeps(kv KVStore, questions QuestionSource, logger logging.Logger, settings Settings, now func() time.Time, rnd RandomSource) *ProgressService {
	if settings.TestDuration <= 0 {
		settings.TestDuration = DefaultTestDuration
	}
	if settings.TestSize <= 0 {
		settings.TestSize = DefaultTestSize
	}
	if settings.ScreeningSize <= 0 {
		settings.ScreeningSize = DefaultScreeningSize
	}
	return &ProgressService{
		kv:        kv,
		questions: questions,
		logger:    logger,
		settings:  settings,
		evaluator: NewEvaluator(),
		now:       now,
		rnd:       rnd,
	}
}

func (s *ProgressService) answerStore(userID string) *AnswerStore {
	return NewAnswerStoreWithClock(s.kv, userID, s.logger.With("user", userID), s.now)
}

// Learning opens the learning flow for a category.
func (s *ProgressService) Learning(ctx context.Context, userID string, categoryID int) (*Navigator, error) {
	questions, err := s.questions.ListQuestionsByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category %d: %w", categoryID, err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrCategoryNotFound
	}
	return NewNavigator(ctx, domain.CategoryScope(categoryID), questions, s.answerStore(userID), s.evaluator), nil
}

// CategoryProgress counts answered and correct questions of a category.
func (s *ProgressService) CategoryProgress(ctx context.Context, userID string, categoryID int) (domain.Progress, error) {
	nav, err := s.Learning(ctx, userID, categoryID)
	if err != nil {
		return domain.Progress{}, err
	}
	answered, correct := nav.AnsweredCount()
	return domain.Progress{
		Total:    len(nav.Questions()),
		Answered: answered,
		Correct:  correct,
	}, nil
}

// ResetCategory forgets the user's learning answers for a category.
func (s *ProgressService) ResetCategory(ctx context.Context, userID string, categoryID int) {
	s.answerStore(userID).ClearScope(ctx, domain.CategoryScope(categoryID))
}

// TestQuestions returns the questions of test n (1-based): the n-th chunk of
// TestSize educational questions.
func (s *ProgressService) TestQuestions(ctx context.Context, testID int) ([]domain.Question, error) {
	all, err := s.questions.ListEducationalQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list educational questions: %w", err)
	}
	start := (testID - 1) * s.settings.TestSize
	if testID < 1 || start >= len(all) {
		return nil, domain.ErrTestNotFound
	}
	end := start + s.settings.TestSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// TestCount reports how many tests the educational questions fill.
func (s *ProgressService) TestCount(ctx context.Context) (int, error) {
	all, err := s.questions.ListEducationalQuestions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list educational questions: %w", err)
	}
	return (len(all) + s.settings.TestSize - 1) / s.settings.TestSize, nil
}

// TimedTest opens a test session once the test's screening gate is passed.
// The timer starts only on Start.
func (s *ProgressService) TimedTest(ctx context.Context, userID string, testID int) (*TimedTest, error) {
	questions, err := s.TestQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}
	gate, err := s.screeningGate(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	if !gate.IsPassed(ctx) {
		return nil, domain.ErrScreeningRequired
	}
	nav := NewNavigator(ctx, domain.TestScope(testID), questions, s.answerStore(userID), s.evaluator)
	timers := NewTimerStore(s.kv, userID, s.logger.With("user", userID))
	return NewTimedTest(nav, testID, timers, s.settings.TestDuration, s.now), nil
}

// Screening opens the screening gate of a test with its sample already drawn.
func (s *ProgressService) Screening(ctx context.Context, userID string, testID int) (*ScreeningGate, error) {
	if _, err := s.TestQuestions(ctx, testID); err != nil {
		return nil, err
	}
	return s.screeningGate(ctx, userID, testID)
}

func (s *ProgressService) screeningGate(ctx context.Context, userID string, testID int) (*ScreeningGate, error) {
	pool, err := s.questions.ListScreeningPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("list screening pool: %w", err)
	}
	logger := s.logger.With("user", userID)
	gate := NewScreeningGate(testID, s.settings.ScreeningSize, NewSampleStore(s.kv, userID, logger), s.answerStore(userID), s.rnd, s.evaluator)
	gate.EnsureSample(ctx, pool)
	return gate, nil
}
