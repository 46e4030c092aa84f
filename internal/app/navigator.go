package app

import (
	"context"

	"driving-quiz-service/internal/domain"
)

// Navigator tracks the displayed question within an ordered set and the
// answers given in one scope. It is not safe for concurrent use; each
// connection owns its own instance.
type Navigator struct {
	scope     domain.Scope
	questions []domain.Question
	positions map[int]int
	current   int
	answers   map[int]domain.AnswerRecord
	store     *AnswerStore
	evaluator Evaluator
}

// NewNavigator selects the first question and loads previous answers of the scope.
func NewNavigator(ctx context.Context, scope domain.Scope, questions []domain.Question, store *AnswerStore, evaluator Evaluator) *Navigator {
	n := &Navigator{
		scope:     scope,
		questions: questions,
		positions: make(map[int]int, len(questions)),
		current:   -1,
		answers:   make(map[int]domain.AnswerRecord),
		store:     store,
		evaluator: evaluator,
	}
	for i, q := range questions {
		if _, dup := n.positions[q.ID]; !dup {
			n.positions[q.ID] = i
		}
	}
	if len(questions) > 0 {
		n.current = 0
	}
	n.reload(ctx)
	return n
}

func (n *Navigator) reload(ctx context.Context) {
	n.answers = make(map[int]domain.AnswerRecord)
	for _, r := range n.store.AnswersForScope(ctx, n.scope) {
		n.answers[r.QuestionID] = r
	}
}

func (n *Navigator) Scope() domain.Scope { return n.scope }

func (n *Navigator) Questions() []domain.Question { return n.questions }

// CurrentIndex is -1 when the question set is empty.
func (n *Navigator) CurrentIndex() int { return n.current }

// Current returns the displayed question.
func (n *Navigator) Current() (domain.Question, bool) {
	if n.current < 0 {
		return domain.Question{}, false
	}
	return n.questions[n.current], true
}

// SelectQuestion jumps to the question with the given id.
func (n *Navigator) SelectQuestion(questionID int) error {
	pos, ok := n.positions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	n.current = pos
	return nil
}

// Next advances one question; it stays put on the last one.
func (n *Navigator) Next() {
	if n.current >= 0 && n.current < len(n.questions)-1 {
		n.current++
	}
}

// Previous goes back one question; it stays put on the first one.
func (n *Navigator) Previous() {
	if n.current > 0 {
		n.current--
	}
}

// Answer evaluates the selection and persists it under the navigator's scope.
// It does not move to the next question.
func (n *Navigator) Answer(ctx context.Context, questionID, selectedIndex int) (domain.AnswerRecord, error) {
	q, ok := n.question(questionID)
	if !ok {
		return domain.AnswerRecord{}, domain.ErrQuestionNotFound
	}
	if selectedIndex < 0 || selectedIndex >= len(q.Options) {
		return domain.AnswerRecord{}, domain.ErrInvalidSelection
	}
	correct := n.evaluator.Evaluate(q, selectedIndex)
	record := n.store.SaveAnswer(ctx, n.scope, questionID, selectedIndex, correct)
	n.answers[questionID] = record
	return record, nil
}

// Answered returns the in-memory answer for a question.
func (n *Navigator) Answered(questionID int) (domain.AnswerRecord, bool) {
	r, ok := n.answers[questionID]
	return r, ok
}

// StatusOf reports whether a question is unanswered, correct or incorrect.
func (n *Navigator) StatusOf(questionID int) domain.AnswerStatus {
	r, ok := n.answers[questionID]
	switch {
	case !ok:
		return domain.StatusUnanswered
	case r.IsCorrect:
		return domain.StatusCorrect
	default:
		return domain.StatusIncorrect
	}
}

func (n *Navigator) IsCurrent(questionID int) bool {
	pos, ok := n.positions[questionID]
	return ok && pos == n.current
}

// Sidebar lists every question with its status, in display order.
func (n *Navigator) Sidebar() []domain.SidebarEntry {
	entries := make([]domain.SidebarEntry, 0, len(n.questions))
	for i, q := range n.questions {
		entries = append(entries, domain.SidebarEntry{
			QuestionID: q.ID,
			Status:     n.StatusOf(q.ID),
			Current:    i == n.current,
		})
	}
	return entries
}

// Reveal returns the option index to highlight as the correct answer.
func (n *Navigator) Reveal(questionID int) (int, error) {
	q, ok := n.question(questionID)
	if !ok {
		return 0, domain.ErrQuestionNotFound
	}
	idx, ok := n.evaluator.FindCorrectOptionIndex(q)
	if !ok {
		return 0, domain.ErrNoCorrectOption
	}
	return idx, nil
}

// AnsweredCount counts answers for questions in this set.
func (n *Navigator) AnsweredCount() (answered, correct int) {
	for id, r := range n.answers {
		if _, ok := n.positions[id]; !ok {
			continue
		}
		answered++
		if r.IsCorrect {
			correct++
		}
	}
	return answered, correct
}

// Reset clears the scope's answers and returns to the first question.
func (n *Navigator) Reset(ctx context.Context) {
	n.store.ClearScope(ctx, n.scope)
	n.answers = make(map[int]domain.AnswerRecord)
	if len(n.questions) > 0 {
		n.current = 0
	}
}

func (n *Navigator) question(questionID int) (domain.Question, bool) {
	pos, ok := n.positions[questionID]
	if !ok {
		return domain.Question{}, false
	}
	return n.questions[pos], true
}
