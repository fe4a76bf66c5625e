package domain

import "errors"

var (
	// ErrEmptyInput indicates a blank question
	ErrEmptyInput = errors.New("please input a question")
	// ErrInputTooLong indicates a question over the configured length
	ErrInputTooLong = errors.New("question is too long")
	// ErrBusy indicates a round is already awaiting its answer
	ErrBusy = errors.New("waiting for response")
	// ErrStaleRound indicates a round that started before the session was reset
	ErrStaleRound = errors.New("round belongs to a previous session")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited indicates rate limit exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// GenericFailureMessage is shown for every transport-level backend failure
const GenericFailureMessage = "An error occurred while fetching the data. Please try again."

// IsValidation reports whether err rejects user input before any state change
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInputTooLong)
}
