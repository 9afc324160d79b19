package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testCases := []struct {
		name   string
		input  CreateTournamentInput
		fields []string
	}{
		{name: "blank title", input: CreateTournamentInput{Title: "   ", MaxParticipants: 8}, fields: []string{"title"}},
		{name: "too few places", input: CreateTournamentInput{Title: "Cup", MaxParticipants: 7}, fields: []string{"max_participants"}},
		{name: "both invalid", input: CreateTournamentInput{MaxParticipants: 2000}, fields: []string{"title", "max_participants"}},
		{name: "not a multiple of eight", input: CreateTournamentInput{Title: "Cup", MaxParticipants: 9}, fields: []string{"max_participants"}},
		{name: "odd size under the cap", input: CreateTournamentInput{Title: "Cup", MaxParticipants: 100}, fields: []string{"max_participants"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.tournaments.CreateTournament(ctx, tc.input)
			require.ErrorIs(t, err, ErrValidationFailed)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			for _, f := range tc.fields {
				assert.Contains(t, vErr.Fields, f)
			}
		})
	}

	created, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "  Weekly  ", MaxParticipants: 8})
	require.NoError(t, err)
	_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Open", MaxParticipants: 1024})
	require.NoError(t, err)
	assert.Equal(t, "Weekly", created.Title)
	assert.Equal(t, models.TournamentPending, created.Status)
}

func TestGetAndListTournaments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Pending", MaxParticipants: 8})
	require.NoError(t, err)
	_, err = env.tournaments.AddParticipants(ctx, pending.ID, []string{"a", "b", "c"})
	require.NoError(t, err)
	started, _, _ := env.startedTournament(t, 4)

	got, err := env.tournaments.GetTournament(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ParticipantCount)

	_, err = env.tournaments.GetTournament(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	all, err := env.tournaments.ListTournaments(ctx, ListTournamentsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := models.TournamentStarted
	filtered, err := env.tournaments.ListTournaments(ctx, ListTournamentsInput{Status: &status})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, started.ID, filtered[0].ID)
	assert.Equal(t, 4, filtered[0].ParticipantCount)

	bogus := models.TournamentStatus("cancelled")
	_, err = env.tournaments.ListTournaments(ctx, ListTournamentsInput{Status: &bogus})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = env.tournaments.ListTournaments(ctx, ListTournamentsInput{Limit: MaxListLimit + 1})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestAddParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Cup", MaxParticipants: 8})
	require.NoError(t, err)

	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, nil)
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, []string{"ann", " ann "})
	assert.ErrorIs(t, err, ErrValidationFailed)

	added, err := env.tournaments.AddParticipants(ctx, tournament.ID, []string{"ann", "ben", "cat"})
	require.NoError(t, err)
	assert.Len(t, added, 3)

	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, []string{"dan", "ben"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	listed, err := env.tournaments.ListParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3, "a rejected batch must not be partially applied")

	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, []string{"d", "e", "f", "g", "h", "i"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = env.tournaments.AddParticipants(ctx, uuid.New(), []string{"x"})
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = env.tournaments.ListParticipants(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestStartTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Cup", MaxParticipants: 8})
	require.NoError(t, err)
	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, []string{"solo"})
	require.NoError(t, err)

	_, _, err = env.tournaments.StartTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTooFewParticipants)

	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, []string{"b", "c", "d", "e", "f", "g", "h"})
	require.NoError(t, err)

	started, matches, err := env.tournaments.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStarted, started.Status)
	assert.Equal(t, 7, started.MatchCount)
	require.Len(t, matches, 7)

	stored, err := env.matchRepo.ListByTournament(ctx, nil, tournament.ID)
	require.NoError(t, err)
	require.Len(t, stored, 7)
	final, err := brackets.FindFinal(stored)
	require.NoError(t, err)
	assert.Equal(t, "G", final.Label)

	_, _, err = env.tournaments.StartTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	_, err = env.tournaments.AddParticipants(ctx, tournament.ID, []string{"late"})
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	assert.Contains(t, env.notifier.types(), brackets.EventBracketUpdated)

	_, _, err = env.tournaments.StartTournament(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestSummarize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Idle", MaxParticipants: 8})
	require.NoError(t, err)
	_, err = env.tournaments.Summarize(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrNotStarted)

	tournament, participants, matches := env.startedTournament(t, 4)

	_, err = env.tournaments.Summarize(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrFinalNotFinished)

	env.play(t, tournament.ID, matches[0].ID, 3, 1) // pa
	env.play(t, tournament.ID, matches[1].ID, 0, 2) // pd
	_, err = env.tournaments.Summarize(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrFinalNotFinished)
	env.play(t, tournament.ID, matches[2].ID, 1, 4) // pd wins the final

	summary, err := env.tournaments.Summarize(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, summary.Tournament.Status)
	assert.Equal(t, participants[3].ID, summary.Winner.ID)
	assert.Len(t, summary.Matches, 3)

	key := "results/" + tournament.ID.String() + ".json"
	require.NotNil(t, summary.Tournament.ResultKey)
	assert.Equal(t, key, *summary.Tournament.ResultKey)
	require.NotNil(t, summary.Tournament.ResultURL)
	assert.Equal(t, "https://results.example.com/"+key, *summary.Tournament.ResultURL)
	assert.True(t, env.uploader.has(key))

	var archived TournamentSummary
	require.NoError(t, json.Unmarshal(env.uploader.objects[key], &archived))
	assert.Equal(t, participants[3].Name, archived.Winner.Name)

	again, err := env.tournaments.Summarize(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Winner.ID, again.Winner.ID)
	assert.Equal(t, models.TournamentCompleted, again.Tournament.Status)
	assert.Equal(t, 1, env.uploader.uploads, "result is archived once")
	assert.Contains(t, env.notifier.types(), brackets.EventTournamentUpdated)

	err = env.tournaments.RemoveParticipant(ctx, tournament.ID, participants[0].ID)
	assert.ErrorIs(t, err, ErrAlreadyFinished)

	require.NoError(t, env.tournaments.DeleteTournament(ctx, tournament.ID))
	assert.False(t, env.uploader.has(key))
	_, err = env.tournaments.GetTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.ErrorIs(t, env.tournaments.DeleteTournament(ctx, tournament.ID), ErrTournamentNotFound)
}

func TestSummarizeRetriesFailedArchive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.uploader.fail = true

	tournament, _, matches := env.startedTournament(t, 2)
	env.play(t, tournament.ID, matches[0].ID, 1, 0)

	summary, err := env.tournaments.Summarize(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.Tournament.ResultKey)
	assert.Nil(t, summary.Tournament.ResultURL)

	env.uploader.mu.Lock()
	env.uploader.fail = false
	env.uploader.mu.Unlock()

	summary, err = env.tournaments.Summarize(ctx, tournament.ID)
	require.NoError(t, err)
	require.NotNil(t, summary.Tournament.ResultKey)
	assert.Equal(t, 1, env.uploader.uploads)
}

func TestRemoveParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Cup", MaxParticipants: 8})
	require.NoError(t, err)
	added, err := env.tournaments.AddParticipants(ctx, tournament.ID, []string{"a", "b", "c"})
	require.NoError(t, err)

	require.NoError(t, env.tournaments.RemoveParticipant(ctx, tournament.ID, added[0].ID))
	assert.ErrorIs(t, env.tournaments.RemoveParticipant(ctx, tournament.ID, added[0].ID), ErrParticipantNotFound)

	other, err := env.tournaments.CreateTournament(ctx, CreateTournamentInput{Title: "Other", MaxParticipants: 8})
	require.NoError(t, err)
	assert.ErrorIs(t, env.tournaments.RemoveParticipant(ctx, other.ID, added[1].ID), ErrParticipantTournamentMismatch)

	listed, err := env.tournaments.ListParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestRemoveParticipantMidTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A(pa, pb) -> E, B(pc, pd) -> E
	tournament, participants, matches := env.startedTournament(t, 4)
	_, err := env.matches.StartMatch(ctx, tournament.ID, matches[0].ID)
	require.NoError(t, err)

	require.NoError(t, env.tournaments.RemoveParticipant(ctx, tournament.ID, participants[0].ID))

	a, err := env.matches.GetMatch(ctx, tournament.ID, matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, a.Status)
	assert.Equal(t, participants[1].ID, *a.WinnerID)

	final, err := env.matches.GetMatch(ctx, tournament.ID, matches[2].ID)
	require.NoError(t, err)
	assert.Equal(t, participants[1].ID, *final.FirstParticipantID)

	_, err = env.matches.FindUncompletedMatch(ctx, tournament.ID, participants[0].ID)
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	// pd lost to pc and has no open match, so removal is a plain delete.
	env.play(t, tournament.ID, matches[1].ID, 2, 0)
	require.NoError(t, env.tournaments.RemoveParticipant(ctx, tournament.ID, participants[3].ID))
	assert.Contains(t, env.notifier.types(), brackets.EventMatchUpdated)
}

func TestRemoveWaitingParticipantGivesWalkover(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A(pa, pb) -> B(pc, _)
	tournament, participants, matches := env.startedTournament(t, 3)

	require.NoError(t, env.tournaments.RemoveParticipant(ctx, tournament.ID, participants[2].ID))
	final, err := env.matches.GetMatch(ctx, tournament.ID, matches[1].ID)
	require.NoError(t, err)
	assert.Zero(t, final.NumberOfParticipants())

	changed := env.play(t, tournament.ID, matches[0].ID, 0, 5)
	require.Len(t, changed, 2)
	assert.True(t, changed[1].IsBye)

	summary, err := env.tournaments.Summarize(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, participants[1].ID, summary.Winner.ID)
}

func TestRemoveParticipantAfterFinalIsDecided(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tournament, participants, matches := env.startedTournament(t, 2)
	env.play(t, tournament.ID, matches[0].ID, 3, 1)

	for _, p := range participants {
		err := env.tournaments.RemoveParticipant(ctx, tournament.ID, p.ID)
		assert.ErrorIs(t, err, ErrAlreadyFinished)
	}

	listed, err := env.tournaments.ListParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	summary, err := env.tournaments.Summarize(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, participants[0].ID, summary.Winner.ID)
	assert.Equal(t, models.TournamentCompleted, summary.Tournament.Status)
}
