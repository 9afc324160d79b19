package services

import (
	"context"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAndGetMatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, _, matches := env.startedTournament(t, 4)

	listed, err := env.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Empty(t, listed[0].PreviousLabels)
	assert.Equal(t, []string{"A", "B"}, listed[2].PreviousLabels)

	got, err := env.matches.GetMatch(ctx, tournament.ID, matches[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Label)

	_, err = env.matches.GetMatch(ctx, tournament.ID, uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = env.matches.GetMatch(ctx, uuid.New(), matches[1].ID)
	assert.ErrorIs(t, err, ErrMatchTournamentMismatch)
	_, err = env.matches.ListMatches(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestStartMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Idle", MaxParticipants: 8})
	require.NoError(t, err)
	_, err = env.matches.StartMatch(ctx, pending.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotStarted)

	tournament, _, matches := env.startedTournament(t, 4)

	started, err := env.matches.StartMatch(ctx, tournament.ID, matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStarted, started.Status)
	assert.NotNil(t, started.StartTime)

	_, err = env.matches.StartMatch(ctx, tournament.ID, matches[0].ID)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	_, err = env.matches.StartMatch(ctx, tournament.ID, matches[2].ID)
	assert.ErrorIs(t, err, ErrIncompleteBracket)
	_, err = env.matches.StartMatch(ctx, tournament.ID, uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)

	other, _, otherMatches := env.startedTournament(t, 2)
	_, err = env.matches.StartMatch(ctx, tournament.ID, otherMatches[0].ID)
	assert.ErrorIs(t, err, ErrMatchTournamentMismatch)
	_, err = env.matches.StartMatch(ctx, other.ID, otherMatches[0].ID)
	assert.NoError(t, err)

	assert.Contains(t, env.notifier.types(), brackets.EventMatchUpdated)
}

func TestUpdateMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, participants, matches := env.startedTournament(t, 4)
	a := matches[0].ID

	_, err := env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{FirstScore: 1})
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = env.matches.StartMatch(ctx, tournament.ID, a)
	require.NoError(t, err)

	_, err = env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{FirstScore: -1})
	assert.ErrorIs(t, err, ErrValidationFailed)

	changed, err := env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{FirstScore: 2, SecondScore: 2})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, models.MatchStarted, changed[0].Status)
	assert.Equal(t, 2, changed[0].SecondScore)

	_, err = env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{FirstScore: 2, SecondScore: 2, Finished: true})
	assert.ErrorIs(t, err, ErrInvalidWinner)

	stranger := participants[2].ID
	_, err = env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{
		FirstScore: 2, SecondScore: 2, Finished: true, WinnerID: &stranger,
	})
	assert.ErrorIs(t, err, ErrInvalidWinner)

	winner := participants[1].ID
	changed, err = env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{
		FirstScore: 2, SecondScore: 2, Finished: true, WinnerID: &winner,
	})
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, models.MatchCompleted, changed[0].Status)
	assert.Equal(t, winner, *changed[1].FirstParticipantID)

	_, err = env.matches.UpdateMatch(ctx, tournament.ID, a, UpdateMatchInput{FirstScore: 3, Finished: true})
	assert.ErrorIs(t, err, ErrAlreadyFinished)

	stored, err := env.matches.GetMatch(ctx, tournament.ID, a)
	require.NoError(t, err)
	assert.Equal(t, winner, *stored.WinnerID)
	assert.NotNil(t, stored.FinishTime)
}

func TestDisqualify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, participants, matches := env.startedTournament(t, 4)

	changed, err := env.matches.Disqualify(ctx, tournament.ID, matches[1].ID, participants[2].ID)
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, participants[3].ID, *changed[0].WinnerID)
	assert.True(t, changed[1].HasParticipant(participants[3].ID))

	before, err := env.matchRepo.ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	published := len(env.notifier.types())

	_, err = env.matches.Disqualify(ctx, tournament.ID, matches[1].ID, participants[2].ID)
	assert.ErrorIs(t, err, ErrNoActiveMatch)
	_, err = env.matches.Disqualify(ctx, tournament.ID, matches[0].ID, participants[3].ID)
	assert.ErrorIs(t, err, ErrNoActiveMatch)

	after, err := env.matchRepo.ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "refused disqualifications must not touch stored matches")
	assert.Len(t, env.notifier.types(), published, "no event for a refused disqualification")
}

func TestFindUncompletedMatchAndFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Idle", MaxParticipants: 8})
	require.NoError(t, err)
	_, err = env.matches.FindFinal(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrNotStarted)

	tournament, participants, matches := env.startedTournament(t, 4)

	m, err := env.matches.FindUncompletedMatch(ctx, tournament.ID, participants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, matches[0].ID, m.ID)

	env.play(t, tournament.ID, matches[0].ID, 0, 1)
	_, err = env.matches.FindUncompletedMatch(ctx, tournament.ID, participants[0].ID)
	assert.ErrorIs(t, err, ErrNoActiveMatch)

	m, err = env.matches.FindUncompletedMatch(ctx, tournament.ID, participants[1].ID)
	require.NoError(t, err)
	assert.Equal(t, matches[2].ID, m.ID)

	_, err = env.matches.FindUncompletedMatch(ctx, pending.ID, participants[1].ID)
	assert.ErrorIs(t, err, ErrParticipantTournamentMismatch)

	final, err := env.matches.FindFinal(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", final.Label)
	assert.True(t, final.IsFinal())

	_, err = env.matches.FindFinal(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestConcurrentSiblingResults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A and B both feed E.
	tournament, _, matches := env.startedTournament(t, 8)
	for _, m := range matches[:4] {
		_, err := env.matches.StartMatch(ctx, tournament.ID, m.ID)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i, m := range matches[:4] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.matches.UpdateMatch(ctx, tournament.ID, m.ID, UpdateMatchInput{
				FirstScore: 1, Finished: true,
			})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	listed, err := env.matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	for _, m := range listed[4:6] {
		assert.Equal(t, 2, m.NumberOfParticipants(), "match %s", m.Label)
	}
}
