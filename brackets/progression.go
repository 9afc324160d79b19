package brackets

import (
	"fmt"
	"slices"
	"time"

	"github.com/Dosada05/tournament-bracket/models"
	"github.com/google/uuid"
)

// Bracket is the arena of one tournament's matches indexed by position.
// It is not safe for concurrent use; callers hold the tournament lock.
type Bracket struct {
	matches      []*models.Match
	byID         map[uuid.UUID]int
	predecessors map[int][]int
}

type ScoreUpdate struct {
	First    int
	Second   int
	Finished bool
	WinnerID *uuid.UUID
}

func NewBracket(matches []*models.Match) (*Bracket, error) {
	b := &Bracket{
		matches:      make([]*models.Match, len(matches)),
		byID:         make(map[uuid.UUID]int, len(matches)),
		predecessors: make(map[int][]int),
	}
	for _, m := range matches {
		if m.Position < 0 || m.Position >= len(matches) || b.matches[m.Position] != nil {
			return nil, fmt.Errorf("%w: bad position %d", ErrInvalidBracketSize, m.Position)
		}
		b.matches[m.Position] = m
		b.byID[m.ID] = m.Position
	}
	for _, m := range b.matches {
		if m.NextPosition == nil {
			continue
		}
		next := *m.NextPosition
		if next <= m.Position || next >= len(b.matches) {
			return nil, fmt.Errorf("%w: match %s links to position %d", ErrInvalidBracketSize, m.Label, next)
		}
		b.predecessors[next] = append(b.predecessors[next], m.Position)
	}
	return b, nil
}

func (b *Bracket) Matches() []*models.Match {
	return slices.Clone(b.matches)
}

func (b *Bracket) Match(position int) (*models.Match, error) {
	if position < 0 || position >= len(b.matches) {
		return nil, fmt.Errorf("%w: position %d", ErrMatchNotFound, position)
	}
	return b.matches[position], nil
}

func (b *Bracket) MatchByID(id uuid.UUID) (*models.Match, error) {
	pos, ok := b.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s", ErrMatchNotFound, id)
	}
	return b.matches[pos], nil
}

// PreviousLabels returns the labels of the matches feeding the given position.
func (b *Bracket) PreviousLabels(position int) []string {
	var labels []string
	for _, p := range b.predecessors[position] {
		labels = append(labels, b.matches[p].Label)
	}
	return labels
}

// Start moves a Pending match with two participants into Started.
func (b *Bracket) Start(position int, now time.Time) (*models.Match, error) {
	m, err := b.Match(position)
	if err != nil {
		return nil, err
	}
	switch m.Status {
	case models.MatchStarted:
		return nil, ErrAlreadyStarted
	case models.MatchCompleted:
		return nil, ErrAlreadyFinished
	}
	if m.NumberOfParticipants() != 2 {
		return nil, ErrIncompleteBracket
	}

	startedAt := now
	m.StartTime = &startedAt
	m.FirstScore = 0
	m.SecondScore = 0
	m.Status = models.MatchStarted
	return m, nil
}

// RecordScore stores the scores of a Started match. When update.Finished is set the
// match is completed and its winner advances. It returns every match it changed.
func (b *Bracket) RecordScore(position int, update ScoreUpdate, now time.Time) ([]*models.Match, error) {
	m, err := b.Match(position)
	if err != nil {
		return nil, err
	}
	switch m.Status {
	case models.MatchPending:
		return nil, ErrNotStarted
	case models.MatchCompleted:
		return nil, ErrAlreadyFinished
	}
	if update.First < 0 || update.Second < 0 {
		return nil, ErrNegativeScore
	}

	var winner uuid.UUID
	if update.Finished {
		switch {
		case update.WinnerID != nil:
			if !m.HasParticipant(*update.WinnerID) {
				return nil, ErrInvalidWinner
			}
			winner = *update.WinnerID
		case update.First > update.Second:
			winner = *m.FirstParticipantID
		case update.Second > update.First:
			winner = *m.SecondParticipantID
		default:
			return nil, fmt.Errorf("%w: scores are tied at %d", ErrInvalidWinner, update.First)
		}
	}

	m.FirstScore = update.First
	m.SecondScore = update.Second
	touched := map[int]struct{}{position: {}}
	if update.Finished {
		if err := b.complete(position, winner, now, touched); err != nil {
			return nil, err
		}
	}
	return b.collect(touched), nil
}

// Disqualify removes a participant from its uncompleted match. A present opponent
// wins the match. A participant still waiting for an opponent vacates the slot and
// the next arrival takes the match as a walkover.
func (b *Bracket) Disqualify(position int, participantID uuid.UUID, now time.Time) ([]*models.Match, error) {
	m, err := b.Match(position)
	if err != nil {
		return nil, err
	}
	if m.Status == models.MatchCompleted || !m.HasParticipant(participantID) {
		return nil, ErrNoActiveMatch
	}

	touched := map[int]struct{}{position: {}}
	if opponent := m.Opponent(participantID); opponent != nil {
		if err := b.complete(position, *opponent, now, touched); err != nil {
			return nil, err
		}
		return b.collect(touched), nil
	}

	if m.FirstParticipantID != nil && *m.FirstParticipantID == participantID {
		m.FirstParticipantID = nil
	} else {
		m.SecondParticipantID = nil
	}
	if err := b.settle(position, now, touched); err != nil {
		return nil, err
	}
	return b.collect(touched), nil
}

// ResolveByes completes every match that can never receive an opponent.
func (b *Bracket) ResolveByes(now time.Time) ([]*models.Match, error) {
	touched := make(map[int]struct{})
	for pos := range b.matches {
		if err := b.settle(pos, now, touched); err != nil {
			return nil, err
		}
	}
	return b.collect(touched), nil
}

func (b *Bracket) complete(position int, winner uuid.UUID, now time.Time, touched map[int]struct{}) error {
	m := b.matches[position]
	finishedAt := now
	m.WinnerID = &winner
	m.FinishTime = &finishedAt
	m.Status = models.MatchCompleted
	touched[position] = struct{}{}

	if m.NextPosition == nil {
		return nil
	}
	return b.advance(*m.NextPosition, winner, now, touched)
}

func (b *Bracket) advance(position int, participantID uuid.UUID, now time.Time, touched map[int]struct{}) error {
	next := b.matches[position]
	switch {
	case next.FirstParticipantID == nil:
		next.FirstParticipantID = &participantID
	case next.SecondParticipantID == nil:
		next.SecondParticipantID = &participantID
	default:
		return fmt.Errorf("%w: match %s", ErrBracketFull, next.Label)
	}
	touched[position] = struct{}{}
	return b.settle(position, now, touched)
}

// settle completes a Pending match holding a single participant once no
// predecessor can deliver an opponent.
func (b *Bracket) settle(position int, now time.Time, touched map[int]struct{}) error {
	m := b.matches[position]
	if m.Status != models.MatchPending || m.NumberOfParticipants() != 1 {
		return nil
	}
	for _, p := range b.predecessors[position] {
		if b.matches[p].Status != models.MatchCompleted {
			return nil
		}
	}

	lone := m.FirstParticipantID
	if lone == nil {
		lone = m.SecondParticipantID
	}
	m.IsBye = true
	return b.complete(position, *lone, now, touched)
}

func (b *Bracket) collect(touched map[int]struct{}) []*models.Match {
	positions := make([]int, 0, len(touched))
	for pos := range touched {
		positions = append(positions, pos)
	}
	slices.Sort(positions)

	out := make([]*models.Match, 0, len(positions))
	for _, pos := range positions {
		out = append(out, b.matches[pos])
	}
	return out
}

// FindUncompleted returns the participant's single match that is not completed.
func FindUncompleted(matches []*models.Match, participantID uuid.UUID) (*models.Match, error) {
	var found *models.Match
	for _, m := range matches {
		if m.Status == models.MatchCompleted || !m.HasParticipant(participantID) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s and %s", ErrMultipleActiveMatches, found.Label, m.Label)
		}
		found = m
	}
	if found == nil {
		return nil, ErrNoActiveMatch
	}
	return found, nil
}

// FindFinal returns the only match without a successor.
func FindFinal(matches []*models.Match) (*models.Match, error) {
	var final *models.Match
	for _, m := range matches {
		if !m.IsFinal() {
			continue
		}
		if final != nil {
			return nil, fmt.Errorf("%w: both %s and %s have no successor", ErrFinalMatchMissing, final.Label, m.Label)
		}
		final = m
	}
	if final == nil {
		return nil, ErrFinalMatchMissing
	}
	return final, nil
}
