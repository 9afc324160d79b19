package services

import (
	"errors"

	"github.com/Dosada05/tournament-bracket/brackets"
)

var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMatchNotFound       = errors.New("match not found")

	ErrMatchTournamentMismatch           = errors.New("match does not belong to this tournament")
	ErrParticipantTournamentMismatch     = errors.New("participant does not belong to this tournament")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")

	ErrTooFewParticipants = errors.New("tournament needs at least two participants to start")
	ErrFinalNotFinished   = errors.New("final match has not been finished")
	ErrDuplicateName      = errors.New("participant name is already taken in this tournament")
	ErrCapacityExceeded   = errors.New("tournament participant limit would be exceeded")

	ErrInvalidCredentials   = errors.New("invalid organizer password")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Bracket engine errors, re-exported so handlers only depend on this package.
var (
	ErrAlreadyStarted        = brackets.ErrAlreadyStarted
	ErrAlreadyFinished       = brackets.ErrAlreadyFinished
	ErrNotStarted            = brackets.ErrNotStarted
	ErrIncompleteBracket     = brackets.ErrIncompleteBracket
	ErrInvalidWinner         = brackets.ErrInvalidWinner
	ErrNegativeScore         = brackets.ErrNegativeScore
	ErrNoActiveMatch         = brackets.ErrNoActiveMatch
	ErrBracketFull           = brackets.ErrBracketFull
	ErrMultipleActiveMatches = brackets.ErrMultipleActiveMatches
	ErrFinalMatchMissing     = brackets.ErrFinalMatchMissing
)
