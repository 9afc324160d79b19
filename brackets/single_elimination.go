package brackets

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/Dosada05/tournament-bracket/models"
	"github.com/google/uuid"
)

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

type SingleEliminationGenerator struct {
	shuffle ShuffleFunc
	now     func() time.Time
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{shuffle: rand.Shuffle, now: time.Now}
}

// NewSingleEliminationGeneratorWith is used by tests to make the draw deterministic.
func NewSingleEliminationGeneratorWith(shuffle ShuffleFunc, now func() time.Time) BracketGenerator {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	if now == nil {
		now = time.Now
	}
	return &SingleEliminationGenerator{shuffle: shuffle, now: now}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*models.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.Tournament == nil {
		return nil, fmt.Errorf("%w: tournament is required", ErrInvalidBracketSize)
	}

	ids := make([]uuid.UUID, 0, len(params.Participants))
	for _, p := range params.Participants {
		ids = append(ids, p.ID)
	}

	matches, err := Build(ids, len(ids)-1, g.shuffle)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		m.TournamentID = params.Tournament.ID
	}

	b, err := NewBracket(matches)
	if err != nil {
		return nil, err
	}
	if _, err := b.ResolveByes(g.now()); err != nil {
		return nil, err
	}
	return b.Matches(), nil
}

// Build shuffles the participants and lays out a single-elimination bracket of
// matchCount matches. Participants are paired two at a time in label order; a
// lone trailing participant occupies the first slot of the next match. Every
// match except the last is linked to the earliest later match that still has
// room for an arrival.
func Build(participants []uuid.UUID, matchCount int, shuffle ShuffleFunc) ([]*models.Match, error) {
	n := len(participants)
	if n == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidBracketSize)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: at least 2 participants are required, got %d", ErrInvalidBracketSize, n)
	}
	if matchCount != n-1 {
		return nil, fmt.Errorf("%w: %d participants need %d matches, got %d", ErrInvalidBracketSize, n, n-1, matchCount)
	}
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	seeded := slices.Clone(participants)
	shuffle(len(seeded), func(i, j int) {
		seeded[i], seeded[j] = seeded[j], seeded[i]
	})

	matches := make([]*models.Match, matchCount)
	for i := range matches {
		matches[i] = &models.Match{
			ID:       uuid.New(),
			Position: i,
			Label:    Label(i),
			Status:   models.MatchPending,
		}
	}

	arrivals := make(map[int]int, matchCount)
	for i, id := range seeded {
		m := matches[i/2]
		if i%2 == 0 {
			m.FirstParticipantID = &id
		} else {
			m.SecondParticipantID = &id
		}
		arrivals[m.Position]++
	}

	next := n / 2
	for i := 0; i < matchCount-1; i++ {
		for arrivals[next] >= 2 {
			next++
		}
		if next <= i || next >= matchCount {
			return nil, fmt.Errorf("%w: no successor available for match %s", ErrInvalidBracketSize, Label(i))
		}
		pos := next
		label := Label(pos)
		matches[i].NextPosition = &pos
		matches[i].NextLabel = &label
		arrivals[next]++
	}

	return matches, nil
}
