package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus mirrors the status column of the tournaments table.
type TournamentStatus string

const (
	TournamentPending   TournamentStatus = "pending"
	TournamentStarted   TournamentStatus = "started"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is a single-elimination event. MatchCount is written once, when the bracket is generated.
type Tournament struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	Title           string           `json:"title" db:"title"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	Status          TournamentStatus `json:"status" db:"status"`
	MatchCount      int              `json:"match_count" db:"match_count"`
	ResultKey       *string          `json:"-" db:"result_key"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`

	ResultURL        *string `json:"result_url,omitempty" db:"-"`
	ParticipantCount int     `json:"participant_count" db:"-"`
}

func (t *Tournament) IsStarted() bool {
	return t.Status == TournamentStarted || t.Status == TournamentCompleted
}
