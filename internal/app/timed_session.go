package app

import (
	"context"
	"time"

	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
)

// DefaultTestDuration is the time allowed for a full test.
const DefaultTestDuration = 30 * time.Minute

// TimerStore persists the user's single active test timer. Starting a timer
// for one test replaces the timer of any other test.
type TimerStore struct {
	store jsonStore
}

func NewTimerStore(kv KVStore, userID string, logger logging.Logger) *TimerStore {
	return &TimerStore{store: newJSONStore(kv, userID, logger)}
}

func (s *TimerStore) Get(ctx context.Context) (domain.TimerRecord, bool) {
	var timer domain.TimerRecord
	if !s.store.load(ctx, s.store.key("timer"), &timer) {
		return domain.TimerRecord{}, false
	}
	return timer, true
}

func (s *TimerStore) Set(ctx context.Context, timer domain.TimerRecord) {
	s.store.save(ctx, s.store.key("timer"), timer)
}

func (s *TimerStore) Clear(ctx context.Context) {
	s.store.remove(ctx, s.store.key("timer"))
}

// TimedTest is a Navigator over one test with a wall-clock deadline.
// Expiry is detected when RemainingTime or IsTimeUp is called.
type TimedTest struct {
	*Navigator
	testID   int
	timers   *TimerStore
	duration time.Duration
	now      func() time.Time
}

func NewTimedTest(nav *Navigator, testID int, timers *TimerStore, duration time.Duration, now func() time.Time) *TimedTest {
	if duration <= 0 {
		duration = DefaultTestDuration
	}
	if now == nil {
		now = time.Now
	}
	return &TimedTest{
		Navigator: nav,
		testID:    testID,
		timers:    timers,
		duration:  duration,
		now:       now,
	}
}

func (t *TimedTest) TestID() int { return t.testID }

// Start begins the countdown. A zero duration uses the configured default.
func (t *TimedTest) Start(ctx context.Context, duration time.Duration) domain.TimerRecord {
	if duration <= 0 {
		duration = t.duration
	}
	timer := domain.TimerRecord{
		TestID:    t.testID,
		StartTime: t.now(),
		Duration:  duration,
	}
	t.timers.Set(ctx, timer)
	return timer
}

// HasTimer reports whether the active timer belongs to this test.
func (t *TimedTest) HasTimer(ctx context.Context) bool {
	timer, ok := t.timers.Get(ctx)
	return ok && timer.TestID == t.testID
}

// RemainingTime never goes below zero and is zero when this test has no timer.
func (t *TimedTest) RemainingTime(ctx context.Context) time.Duration {
	timer, ok := t.timers.Get(ctx)
	if !ok || timer.TestID != t.testID {
		return 0
	}
	remaining := timer.Duration - t.now().Sub(timer.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *TimedTest) IsTimeUp(ctx context.Context) bool {
	return t.RemainingTime(ctx) == 0
}

// Answer records a selection unless the running timer has expired.
func (t *TimedTest) Answer(ctx context.Context, questionID, selectedIndex int) (domain.AnswerRecord, error) {
	if t.HasTimer(ctx) && t.IsTimeUp(ctx) {
		return domain.AnswerRecord{}, domain.ErrTimeUp
	}
	return t.Navigator.Answer(ctx, questionID, selectedIndex)
}

// Reset clears this test's timer and answers.
func (t *TimedTest) Reset(ctx context.Context) {
	if t.HasTimer(ctx) {
		t.timers.Clear(ctx)
	}
	t.Navigator.Reset(ctx)
}

// Result is available once every question of the test has a stored answer.
func (t *TimedTest) Result(ctx context.Context) (domain.TestResult, bool) {
	total := len(t.questions)
	if total == 0 {
		return domain.TestResult{}, false
	}
	answered, correct := 0, 0
	for _, r := range t.store.AnswersForScope(ctx, t.scope) {
		if _, ok := t.positions[r.QuestionID]; !ok {
			continue
		}
		answered++
		if r.IsCorrect {
			correct++
		}
	}
	if answered != total {
		return domain.TestResult{}, false
	}
	return domain.TestResult{
		Total:       total,
		Correct:     correct,
		IsCompleted: true,
		IsPerfect:   correct == total,
	}, true
}
