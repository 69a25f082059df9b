package domain

import "errors"

var (
	// ErrMatchNotFound is returned when no match exists for the given id.
	ErrMatchNotFound = errors.New("match not found")
	// ErrNotAuthorized is returned when the user is neither player of the match.
	ErrNotAuthorized = errors.New("not authorized for this match")
	// ErrNotYourTurn is returned when the user acts outside their turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrAlreadyQueued is returned when a waiting queue entry for the same
	// user and category already exists.
	ErrAlreadyQueued = errors.New("already in matchmaking queue for this category")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuizInCategory indicates a category with no quizzes to pick from.
	ErrNoQuizInCategory = errors.New("no quiz in category")
	// ErrMatchFinished is returned when acting on a completed or cancelled match.
	ErrMatchFinished = errors.New("match already finished")
)
