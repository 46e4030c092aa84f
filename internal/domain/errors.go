package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a question ID is not part of the active set.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCategoryNotFound is returned when a learning category has no questions.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrTestNotFound indicates the requested test number has no questions.
	ErrTestNotFound = errors.New("test not found")
	// ErrTimeUp is returned when an answer arrives after the test deadline.
	ErrTimeUp = errors.New("test time is up")
	// ErrInvalidSelection indicates the selected option index is outside the option list.
	ErrInvalidSelection = errors.New("selected option out of range")
	// ErrNoCorrectOption indicates a question whose correct answer cannot be resolved.
	ErrNoCorrectOption = errors.New("question has no resolvable correct option")
	// ErrScreeningRequired is returned when a timed test is opened before its screening gate is passed.
	ErrScreeningRequired = errors.New("screening not passed")
)
