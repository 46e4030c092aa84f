package app

import "driving-quiz-service/internal/domain"

// ResolutionStrategy names how Question.CorrectAnswerIndex is interpreted.
type ResolutionStrategy string

// ResolveByOrderThenIndex treats CorrectAnswerIndex as an Option.Order when some
// option carries that order, and as a zero-based position in Options otherwise.
const ResolveByOrderThenIndex ResolutionStrategy = "resolve-by-order-then-index"

// Evaluator decides answer correctness. It holds no state besides its strategy.
type Evaluator struct {
	strategy ResolutionStrategy
}

func NewEvaluator() Evaluator {
	return Evaluator{strategy: ResolveByOrderThenIndex}
}

// Evaluate reports whether selecting Options[selectedIndex] answers the question correctly.
// Malformed input (no options, index out of range, unknown strategy) is incorrect.
func (e Evaluator) Evaluate(q domain.Question, selectedIndex int) bool {
	if selectedIndex < 0 || selectedIndex >= len(q.Options) {
		return false
	}
	switch e.strategy {
	case ResolveByOrderThenIndex:
		if hasOrder(q.Options, q.CorrectAnswerIndex) {
			return q.Options[selectedIndex].Order == q.CorrectAnswerIndex
		}
		return selectedIndex == q.CorrectAnswerIndex
	default:
		return false
	}
}

// FindCorrectOptionIndex returns the position in Options of the correct answer,
// using the same resolution as Evaluate.
func (e Evaluator) FindCorrectOptionIndex(q domain.Question) (int, bool) {
	switch e.strategy {
	case ResolveByOrderThenIndex:
		for i, opt := range q.Options {
			if opt.Order == q.CorrectAnswerIndex {
				return i, true
			}
		}
		if q.CorrectAnswerIndex >= 0 && q.CorrectAnswerIndex < len(q.Options) {
			return q.CorrectAnswerIndex, true
		}
	}
	return 0, false
}

func hasOrder(options []domain.Option, order int) bool {
	for _, opt := range options {
		if opt.Order == order {
			return true
		}
	}
	return false
}
