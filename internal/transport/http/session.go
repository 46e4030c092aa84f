package http

import (
	"context"
	"time"

	"driving-quiz-service/internal/app"
	"driving-quiz-service/internal/domain"
)

// session binds one connection to its quiz flow. nav is always set;
// test or gate is set for the matching mode.
type session struct {
	mode string
	nav  *app.Navigator
	test *app.TimedTest
	gate *app.ScreeningGate

	// reopenGate draws a new screening sample from the current pool.
	reopenGate func(ctx context.Context) (*app.ScreeningGate, error)
}

type optionView struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// questionView omits the correct answer; clients ask for it via "reveal".
type questionView struct {
	ID      int          `json:"id"`
	Title   string       `json:"title"`
	Image   string       `json:"image,omitempty"`
	Options []optionView `json:"options"`
}

type statePayload struct {
	Mode             string                `json:"mode"`
	Scope            string                `json:"scope"`
	TestID           int                   `json:"testId,omitempty"`
	Current          *questionView         `json:"current,omitempty"`
	CurrentIndex     int                   `json:"currentIndex"`
	Total            int                   `json:"total"`
	Sidebar          []domain.SidebarEntry `json:"sidebar"`
	Selected         *int                  `json:"selected,omitempty"`
	HasTimer         bool                  `json:"hasTimer,omitempty"`
	RemainingSeconds int64                 `json:"remainingSeconds,omitempty"`
	TimeUp           bool                  `json:"timeUp,omitempty"`
	Result           *domain.TestResult    `json:"result,omitempty"`
	Passed           *bool                 `json:"passed,omitempty"`
}

func (s *session) answer(ctx context.Context, questionID, selectedIndex int) (domain.AnswerRecord, error) {
	switch {
	case s.test != nil:
		return s.test.Answer(ctx, questionID, selectedIndex)
	case s.gate != nil:
		return s.gate.Answer(ctx, questionID, selectedIndex)
	default:
		return s.nav.Answer(ctx, questionID, selectedIndex)
	}
}

func (s *session) reset(ctx context.Context) error {
	switch {
	case s.test != nil:
		s.test.Reset(ctx)
	case s.gate != nil:
		s.gate.Reset(ctx)
		gate, err := s.reopenGate(ctx)
		if err != nil {
			return err
		}
		s.gate = gate
		s.nav = gate.Navigator()
	default:
		s.nav.Reset(ctx)
	}
	return nil
}

func (s *session) state(ctx context.Context) statePayload {
	state := statePayload{
		Mode:         s.mode,
		Scope:        s.nav.Scope().Key(),
		CurrentIndex: s.nav.CurrentIndex(),
		Total:        len(s.nav.Questions()),
		Sidebar:      s.nav.Sidebar(),
	}
	if q, ok := s.nav.Current(); ok {
		view := toView(q)
		state.Current = &view
		if record, ok := s.nav.Answered(q.ID); ok {
			selected := record.SelectedAnswer
			state.Selected = &selected
		}
	}
	if s.test != nil {
		state.TestID = s.test.TestID()
		state.HasTimer = s.test.HasTimer(ctx)
		remaining := s.test.RemainingTime(ctx)
		state.RemainingSeconds = int64(remaining / time.Second)
		state.TimeUp = state.HasTimer && remaining == 0
		if result, ok := s.test.Result(ctx); ok {
			state.Result = &result
		}
	}
	if s.gate != nil {
		state.TestID = s.gate.TestID()
		passed := s.gate.IsPassed(ctx)
		state.Passed = &passed
	}
	return state
}

func toView(q domain.Question) questionView {
	options := make([]optionView, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, optionView{ID: opt.ID, Text: opt.Text})
	}
	return questionView{ID: q.ID, Title: q.Title, Image: q.Image, Options: options}
}
