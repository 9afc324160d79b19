package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchStarted   MatchStatus = "started"
	MatchCompleted MatchStatus = "completed"
)

// Match is one node of a tournament bracket. Position is the index of the match in generation
// order and NextPosition points at the match the winner advances into; the final has none.
// Label and NextLabel are display copies of the same linkage.
type Match struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TournamentID uuid.UUID `json:"tournament_id" db:"tournament_id"`

	Position     int     `json:"position" db:"position"`
	Label        string  `json:"label" db:"label"`
	NextPosition *int    `json:"next_position,omitempty" db:"next_position"`
	NextLabel    *string `json:"next_label,omitempty" db:"next_label"`

	FirstParticipantID  *uuid.UUID `json:"first_participant_id,omitempty" db:"first_participant_id"`
	SecondParticipantID *uuid.UUID `json:"second_participant_id,omitempty" db:"second_participant_id"`
	FirstScore          int        `json:"first_score" db:"first_score"`
	SecondScore         int        `json:"second_score" db:"second_score"`
	WinnerID            *uuid.UUID `json:"winner_id,omitempty" db:"winner_id"`
	IsBye               bool       `json:"is_bye" db:"is_bye"`

	Status     MatchStatus `json:"status" db:"status"`
	StartTime  *time.Time  `json:"start_time,omitempty" db:"start_time"`
	FinishTime *time.Time  `json:"finish_time,omitempty" db:"finish_time"`

	PreviousLabels []string `json:"previous_labels,omitempty" db:"-"`
}

func (m *Match) IsFinal() bool {
	return m.NextPosition == nil
}

func (m *Match) NumberOfParticipants() int {
	n := 0
	if m.FirstParticipantID != nil {
		n++
	}
	if m.SecondParticipantID != nil {
		n++
	}
	return n
}

func (m *Match) HasParticipant(id uuid.UUID) bool {
	return (m.FirstParticipantID != nil && *m.FirstParticipantID == id) ||
		(m.SecondParticipantID != nil && *m.SecondParticipantID == id)
}

// Opponent returns the participant in the other slot, or nil if that slot is empty.
func (m *Match) Opponent(id uuid.UUID) *uuid.UUID {
	switch {
	case m.FirstParticipantID != nil && *m.FirstParticipantID == id:
		return m.SecondParticipantID
	case m.SecondParticipantID != nil && *m.SecondParticipantID == id:
		return m.FirstParticipantID
	}
	return nil
}
