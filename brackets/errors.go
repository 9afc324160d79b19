package brackets

import "errors"

// Engine errors. Services re-export them so callers never import this package for error checks.
var (
	ErrInvalidBracketSize    = errors.New("invalid bracket size")
	ErrAlreadyStarted        = errors.New("match has already been started")
	ErrAlreadyFinished       = errors.New("match has already been finished")
	ErrNotStarted            = errors.New("match has not been started")
	ErrIncompleteBracket     = errors.New("match has not got two participants")
	ErrInvalidWinner         = errors.New("winner is not a participant of this match")
	ErrNegativeScore         = errors.New("score cannot be negative")
	ErrNoActiveMatch         = errors.New("participant has no uncompleted match")
	ErrMatchNotFound         = errors.New("match not found in bracket")
	ErrBracketFull           = errors.New("successor match already has two participants")
	ErrMultipleActiveMatches = errors.New("participant belongs to more than one uncompleted match")
	ErrFinalMatchMissing     = errors.New("final match not found")
)

// IsIntegrityViolation reports errors that can only come from a broken bracket or
// unserialised writes, never from bad input.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrBracketFull) ||
		errors.Is(err, ErrMultipleActiveMatches) ||
		errors.Is(err, ErrFinalMatchMissing)
}
