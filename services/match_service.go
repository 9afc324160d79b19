package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/models"
	"github.com/Dosada05/tournament-bracket/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UpdateMatchInput struct {
	FirstScore  int        `json:"first_score"`
	SecondScore int        `json:"second_score"`
	Finished    bool       `json:"finished"`
	WinnerID    *uuid.UUID `json:"winner_id,omitempty"`
}

type MatchService interface {
	ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]*models.Match, error)
	GetMatch(ctx context.Context, tournamentID, matchID uuid.UUID) (*models.Match, error)
	StartMatch(ctx context.Context, tournamentID, matchID uuid.UUID) (*models.Match, error)
	// UpdateMatch records scores and, when input.Finished is set, completes the match.
	// It returns every match that changed, the successor included.
	UpdateMatch(ctx context.Context, tournamentID, matchID uuid.UUID, input UpdateMatchInput) ([]*models.Match, error)
	Disqualify(ctx context.Context, tournamentID, matchID, participantID uuid.UUID) ([]*models.Match, error)
	FindUncompletedMatch(ctx context.Context, tournamentID, participantID uuid.UUID) (*models.Match, error)
	FindFinal(ctx context.Context, tournamentID uuid.UUID) (*models.Match, error)
}

type matchService struct {
	engine bracketEngine
	now    func() time.Time
}

func NewMatchService(
	db *sqlx.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	locks *TournamentLocks,
	notifier Notifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		engine: newBracketEngine(db, tournamentRepo, participantRepo, matchRepo, locks, notifier, logger),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *matchService) ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]*models.Match, error) {
	if err := s.ensureTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	b, err := s.engine.loadBracket(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	matches := b.Matches()
	for _, m := range matches {
		m.PreviousLabels = b.PreviousLabels(m.Position)
	}
	return matches, nil
}

func (s *matchService) GetMatch(ctx context.Context, tournamentID, matchID uuid.UUID) (*models.Match, error) {
	m, err := s.engine.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if m.TournamentID != tournamentID {
		return nil, ErrMatchTournamentMismatch
	}
	return m, nil
}

func (s *matchService) StartMatch(ctx context.Context, tournamentID, matchID uuid.UUID) (*models.Match, error) {
	changed, err := s.engine.mutate(ctx, tournamentID, func(tx *sqlx.Tx, _ *models.Tournament, b *brackets.Bracket) ([]*models.Match, error) {
		m, err := s.engine.locate(ctx, tx, b, tournamentID, matchID)
		if err != nil {
			return nil, err
		}
		started, err := b.Start(m.Position, s.now())
		if err != nil {
			return nil, fmt.Errorf("cannot start match %s: %w", m.Label, err)
		}
		return []*models.Match{started}, nil
	})
	if err != nil {
		return nil, err
	}
	return changed[0], nil
}

func (s *matchService) UpdateMatch(ctx context.Context, tournamentID, matchID uuid.UUID, input UpdateMatchInput) ([]*models.Match, error) {
	if err := validateUpdateMatch(input); err != nil {
		return nil, err
	}

	return s.engine.mutate(ctx, tournamentID, func(tx *sqlx.Tx, _ *models.Tournament, b *brackets.Bracket) ([]*models.Match, error) {
		m, err := s.engine.locate(ctx, tx, b, tournamentID, matchID)
		if err != nil {
			return nil, err
		}
		changed, err := b.RecordScore(m.Position, brackets.ScoreUpdate{
			First:    input.FirstScore,
			Second:   input.SecondScore,
			Finished: input.Finished,
			WinnerID: input.WinnerID,
		}, s.now())
		if err != nil {
			return nil, fmt.Errorf("cannot update match %s: %w", m.Label, err)
		}
		return changed, nil
	})
}

func (s *matchService) Disqualify(ctx context.Context, tournamentID, matchID, participantID uuid.UUID) ([]*models.Match, error) {
	return s.engine.mutate(ctx, tournamentID, func(tx *sqlx.Tx, _ *models.Tournament, b *brackets.Bracket) ([]*models.Match, error) {
		m, err := s.engine.locate(ctx, tx, b, tournamentID, matchID)
		if err != nil {
			return nil, err
		}
		changed, err := b.Disqualify(m.Position, participantID, s.now())
		if err != nil {
			return nil, fmt.Errorf("cannot disqualify participant %s in match %s: %w", participantID, m.Label, err)
		}
		s.engine.logger.Info("participant disqualified",
			"tournament_id", tournamentID, "match", m.Label, "participant_id", participantID)
		return changed, nil
	})
}

func (s *matchService) FindUncompletedMatch(ctx context.Context, tournamentID, participantID uuid.UUID) (*models.Match, error) {
	p, err := s.engine.participantRepo.GetByID(ctx, nil, participantID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if p.TournamentID != tournamentID {
		return nil, ErrParticipantTournamentMismatch
	}

	matches, err := s.engine.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %s: %w", tournamentID, err)
	}
	m, err := brackets.FindUncompleted(matches, participantID)
	if err != nil {
		s.engine.reportIntegrity(tournamentID, err)
		return nil, err
	}
	return m, nil
}

func (s *matchService) FindFinal(ctx context.Context, tournamentID uuid.UUID) (*models.Match, error) {
	t, err := s.engine.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if t.Status == models.TournamentPending {
		return nil, ErrNotStarted
	}

	matches, err := s.engine.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %s: %w", tournamentID, err)
	}
	final, err := brackets.FindFinal(matches)
	if err != nil {
		s.engine.reportIntegrity(tournamentID, err)
		return nil, err
	}
	return final, nil
}

func (s *matchService) ensureTournament(ctx context.Context, tournamentID uuid.UUID) error {
	exists, err := s.engine.tournamentRepo.ExistsByID(ctx, nil, tournamentID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTournamentNotFound
	}
	return nil
}

func validateUpdateMatch(input UpdateMatchInput) error {
	v := newValidator()
	v.check(input.FirstScore >= 0, "first_score", "score can't be negative")
	v.check(input.SecondScore >= 0, "second_score", "score can't be negative")
	v.check(input.WinnerID == nil || input.Finished, "winner_id", "winner can only be set when the match is finished")
	return v.err()
}
