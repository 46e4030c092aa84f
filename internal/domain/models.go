package domain

import (
	"fmt"
	"time"
)

// Option represents a possible answer for a question.
// Order is the 1-based position persisted with the option; it is not tied to
// the option's position in Question.Options.
type Option struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Question models a single-choice question.
// CorrectAnswerIndex holds either the Order of the correct option or its
// zero-based position in Options; see app.Evaluator.
type Question struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Image              string   `json:"image,omitempty"`
	CategoryID         int      `json:"categoryId"`
	Screening          bool     `json:"screening"`
	Options            []Option `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// ScopeKind tags which flow an answer belongs to.
type ScopeKind string

const (
	ScopeCategory  ScopeKind = "category"
	ScopeTest      ScopeKind = "test"
	ScopeScreening ScopeKind = "screening"
)

// Scope identifies an answer namespace: a learning category, a timed test,
// or the screening gate of a timed test.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   int       `json:"id"`
}

func CategoryScope(categoryID int) Scope { return Scope{Kind: ScopeCategory, ID: categoryID} }
func TestScope(testID int) Scope         { return Scope{Kind: ScopeTest, ID: testID} }
func ScreeningScope(testID int) Scope    { return Scope{Kind: ScopeScreening, ID: testID} }

// Key renders the scope as a storage key segment, e.g. "test:7".
func (s Scope) Key() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// AnswerRecord is the last answer a user gave to a question within a scope.
type AnswerRecord struct {
	QuestionID     int       `json:"questionId"`
	SelectedAnswer int       `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	CategoryID     *int      `json:"categoryId,omitempty"`
	TestID         *int      `json:"testId,omitempty"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// TimerRecord is the single active deadline for a timed test.
type TimerRecord struct {
	TestID    int           `json:"testId"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
}

// Deadline returns the instant the test expires.
func (t TimerRecord) Deadline() time.Time {
	return t.StartTime.Add(t.Duration)
}

// ScreeningSample remembers which questions were drawn for a test's screening gate.
type ScreeningSample struct {
	TestID      int   `json:"testId"`
	QuestionIDs []int `json:"questionIds"`
}

// AnswerStatus is the per-question state shown in a progress sidebar.
type AnswerStatus string

const (
	StatusUnanswered AnswerStatus = "unanswered"
	StatusCorrect    AnswerStatus = "correct"
	StatusIncorrect  AnswerStatus = "incorrect"
)

// SidebarEntry is one row of the navigation overview.
type SidebarEntry struct {
	QuestionID int          `json:"questionId"`
	Status     AnswerStatus `json:"status"`
	Current    bool         `json:"current"`
}

// TestResult summarizes a completed test.
type TestResult struct {
	Total       int  `json:"total"`
	Correct     int  `json:"correct"`
	IsCompleted bool `json:"isCompleted"`
	IsPerfect   bool `json:"isPerfect"`
}

// Progress summarizes answered questions in a learning category.
type Progress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}
