package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/models"
	"github.com/Dosada05/tournament-bracket/repositories"
	"github.com/Dosada05/tournament-bracket/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

const (
	MinMaxParticipants = 8
	MaxMaxParticipants = 1024
	participantsStep   = 8
	maxTitleLength     = 255
	maxNameLength      = 100

	DefaultListLimit = 20
	MaxListLimit     = 100
)

type CreateTournamentInput struct {
	Title           string `json:"title"`
	MaxParticipants int    `json:"max_participants"`
}

type ListTournamentsInput struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

// TournamentSummary is the result view of a finished tournament.
type TournamentSummary struct {
	Tournament *models.Tournament  `json:"tournament"`
	Matches    []*models.Match     `json:"matches"`
	Winner     *models.Participant `json:"winner"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	ListTournaments(ctx context.Context, input ListTournamentsInput) ([]*models.Tournament, error)
	DeleteTournament(ctx context.Context, id uuid.UUID) error

	AddParticipants(ctx context.Context, tournamentID uuid.UUID, names []string) ([]*models.Participant, error)
	ListParticipants(ctx context.Context, tournamentID uuid.UUID) ([]*models.Participant, error)
	// RemoveParticipant disqualifies the participant from its active match first
	// when the tournament is running, then deletes the record. Removal is refused
	// with ErrAlreadyFinished once the final has a winner.
	RemoveParticipant(ctx context.Context, tournamentID, participantID uuid.UUID) error

	StartTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, []*models.Match, error)
	Summarize(ctx context.Context, id uuid.UUID) (*TournamentSummary, error)
}

type tournamentService struct {
	engine    bracketEngine
	generator brackets.BracketGenerator
	uploader  storage.FileUploader
	now       func() time.Time
}

// NewTournamentService wires the lifecycle controller. uploader may be nil, in
// which case finished tournaments are not archived.
func NewTournamentService(
	db *sqlx.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	generator brackets.BracketGenerator,
	uploader storage.FileUploader,
	locks *TournamentLocks,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	if generator == nil {
		generator = brackets.NewSingleEliminationGenerator()
	}
	return &tournamentService{
		engine:    newBracketEngine(db, tournamentRepo, participantRepo, matchRepo, locks, notifier, logger),
		generator: generator,
		uploader:  uploader,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validateCreateTournament(input); err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.Tournament{
		ID:              uuid.New(),
		Title:           input.Title,
		MaxParticipants: input.MaxParticipants,
		Status:          models.TournamentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.engine.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.engine.logger.Info("tournament created", "tournament_id", t.ID, "title", t.Title)
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	var (
		t     *models.Tournament
		count int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.engine.tournamentRepo.GetByID(gCtx, nil, id)
		return handleRepositoryError(err)
	})
	g.Go(func() error {
		var err error
		count, err = s.engine.participantRepo.CountByTournament(gCtx, nil, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.ParticipantCount = count
	s.populateResultURL(t)
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, input ListTournamentsInput) ([]*models.Tournament, error) {
	if input.Limit == 0 {
		input.Limit = DefaultListLimit
	}
	if err := validateListTournaments(input); err != nil {
		return nil, err
	}

	tournaments, err := s.engine.tournamentRepo.List(ctx, nil, repositories.ListTournamentsFilter{
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range tournaments {
		g.Go(func() error {
			count, err := s.engine.participantRepo.CountByTournament(gCtx, nil, t.ID)
			if err != nil {
				return err
			}
			t.ParticipantCount = count
			s.populateResultURL(t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id uuid.UUID) error {
	unlock := s.engine.locks.Lock(id)
	defer unlock()

	var resultKey *string
	err := withTx(ctx, s.engine.db, s.engine.logger, func(tx *sqlx.Tx) error {
		t, err := s.engine.tournamentRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		resultKey = t.ResultKey

		if err := s.engine.matchRepo.DeleteAllByTournament(ctx, tx, id); err != nil {
			return err
		}
		return handleRepositoryError(s.engine.tournamentRepo.Delete(ctx, tx, id))
	})
	if err != nil {
		return err
	}

	if resultKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *resultKey); err != nil {
			s.engine.logger.Warn("failed to delete archived result", "tournament_id", id, "key", *resultKey, "error", err)
		}
	}
	s.engine.logger.Info("tournament deleted", "tournament_id", id)
	return nil
}

func (s *tournamentService) AddParticipants(ctx context.Context, tournamentID uuid.UUID, names []string) ([]*models.Participant, error) {
	names, err := normalizeParticipantNames(names)
	if err != nil {
		return nil, err
	}

	unlock := s.engine.locks.Lock(tournamentID)
	defer unlock()

	created := make([]*models.Participant, 0, len(names))
	err = withTx(ctx, s.engine.db, s.engine.logger, func(tx *sqlx.Tx) error {
		t, err := s.engine.tournamentRepo.GetForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.TournamentPending {
			return fmt.Errorf("cannot add participants to tournament %q: %w", t.Title, ErrAlreadyStarted)
		}

		count, err := s.engine.participantRepo.CountByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if count+len(names) > t.MaxParticipants {
			return fmt.Errorf("tournament %q has %d of %d places left: %w",
				t.Title, t.MaxParticipants-count, t.MaxParticipants, ErrCapacityExceeded)
		}

		now := s.now()
		for _, name := range names {
			exists, err := s.engine.participantRepo.ExistsByName(ctx, tx, tournamentID, name)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrDuplicateName, name)
			}

			p := &models.Participant{
				ID:           uuid.New(),
				TournamentID: tournamentID,
				Name:         name,
				CreatedAt:    now,
			}
			if err := s.engine.participantRepo.Create(ctx, tx, p); err != nil {
				return fmt.Errorf("failed to add participant %s: %w", name, handleRepositoryError(err))
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *tournamentService) ListParticipants(ctx context.Context, tournamentID uuid.UUID) ([]*models.Participant, error) {
	exists, err := s.engine.tournamentRepo.ExistsByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTournamentNotFound
	}
	return s.engine.participantRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *tournamentService) RemoveParticipant(ctx context.Context, tournamentID, participantID uuid.UUID) error {
	unlock := s.engine.locks.Lock(tournamentID)
	defer unlock()

	var changed []*models.Match
	err := withTx(ctx, s.engine.db, s.engine.logger, func(tx *sqlx.Tx) error {
		t, err := s.engine.tournamentRepo.GetForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		p, err := s.engine.participantRepo.GetByID(ctx, tx, participantID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if p.TournamentID != tournamentID {
			return ErrParticipantTournamentMismatch
		}

		switch t.Status {
		case models.TournamentCompleted:
			return fmt.Errorf("cannot remove participant from tournament %q: %w", t.Title, ErrAlreadyFinished)
		case models.TournamentStarted:
			b, err := s.engine.loadBracket(ctx, tx, tournamentID)
			if err != nil {
				return err
			}
			// A decided final fixes the result even before Summarize records it.
			final, err := brackets.FindFinal(b.Matches())
			if err != nil {
				return err
			}
			if final.Status == models.MatchCompleted {
				return fmt.Errorf("cannot remove participant from tournament %q, final %s is decided: %w",
					t.Title, final.Label, ErrAlreadyFinished)
			}
			m, err := brackets.FindUncompleted(b.Matches(), participantID)
			switch {
			case errors.Is(err, brackets.ErrNoActiveMatch):
			case err != nil:
				return err
			default:
				changed, err = b.Disqualify(m.Position, participantID, s.now())
				if err != nil {
					return err
				}
				if err := s.engine.matchRepo.SaveMany(ctx, tx, changed); err != nil {
					return fmt.Errorf("failed to persist bracket changes: %w", err)
				}
			}
		}

		return handleRepositoryError(s.engine.participantRepo.DeleteByTournamentAndID(ctx, tx, tournamentID, participantID))
	})
	if err != nil {
		s.engine.reportIntegrity(tournamentID, err)
		return err
	}

	if len(changed) > 0 {
		s.engine.publish(tournamentID, brackets.EventMatchUpdated, jsonMatches(changed))
	}
	s.engine.logger.Info("participant removed", "tournament_id", tournamentID, "participant_id", participantID,
		"disqualified", len(changed) > 0)
	return nil
}

func (s *tournamentService) StartTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, []*models.Match, error) {
	unlock := s.engine.locks.Lock(id)
	defer unlock()

	var (
		tournament *models.Tournament
		matches    []*models.Match
	)
	err := withTx(ctx, s.engine.db, s.engine.logger, func(tx *sqlx.Tx) error {
		t, err := s.engine.tournamentRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status != models.TournamentPending {
			return fmt.Errorf("tournament %q: %w", t.Title, ErrAlreadyStarted)
		}

		participants, err := s.engine.participantRepo.ListByTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			return fmt.Errorf("tournament %q has %d participants: %w", t.Title, len(participants), ErrTooFewParticipants)
		}

		matches, err = s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
			Tournament:   t,
			Participants: participants,
		})
		if err != nil {
			return fmt.Errorf("failed to generate bracket for tournament %s: %w", id, err)
		}
		if err := s.engine.matchRepo.SaveMany(ctx, tx, matches); err != nil {
			return fmt.Errorf("failed to save bracket for tournament %s: %w", id, err)
		}

		if !isValidStatusTransition(t.Status, models.TournamentStarted) {
			return ErrTournamentInvalidStatusTransition
		}
		t.Status = models.TournamentStarted
		t.MatchCount = len(matches)
		t.UpdatedAt = s.now()
		if err := s.engine.tournamentRepo.Save(ctx, tx, t); err != nil {
			return err
		}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.engine.logger.Info("tournament started",
		"tournament_id", id, "generator", s.generator.GetName(), "matches", len(matches))
	s.engine.publish(id, brackets.EventBracketUpdated, map[string]interface{}{
		"tournament": tournament,
		"matches":    matches,
	})
	return tournament, matches, nil
}

func (s *tournamentService) Summarize(ctx context.Context, id uuid.UUID) (*TournamentSummary, error) {
	summary, completedNow, err := s.summarize(ctx, id)
	if err != nil {
		s.engine.reportIntegrity(id, err)
		return nil, err
	}

	if completedNow {
		s.engine.logger.Info("tournament completed", "tournament_id", id, "winner_id", summary.Winner.ID)
		s.engine.publish(id, brackets.EventTournamentUpdated, summary)
	}
	if summary.Tournament.ResultKey == nil && s.uploader != nil {
		s.archive(ctx, summary)
	}
	s.populateResultURL(summary.Tournament)
	return summary, nil
}

func (s *tournamentService) summarize(ctx context.Context, id uuid.UUID) (*TournamentSummary, bool, error) {
	unlock := s.engine.locks.Lock(id)
	defer unlock()

	var (
		summary      *TournamentSummary
		completedNow bool
	)
	err := withTx(ctx, s.engine.db, s.engine.logger, func(tx *sqlx.Tx) error {
		t, err := s.engine.tournamentRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status == models.TournamentPending {
			return fmt.Errorf("tournament %q: %w", t.Title, ErrNotStarted)
		}

		matches, err := s.engine.matchRepo.ListByTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		final, err := brackets.FindFinal(matches)
		if err != nil {
			return err
		}
		if final.Status != models.MatchCompleted || final.WinnerID == nil {
			return fmt.Errorf("final match %s: %w", final.Label, ErrFinalNotFinished)
		}

		winner, err := s.engine.participantRepo.GetByID(ctx, tx, *final.WinnerID)
		if err != nil {
			return fmt.Errorf("failed to load winner of tournament %s: %w", id, handleRepositoryError(err))
		}

		if t.Status != models.TournamentCompleted {
			if !isValidStatusTransition(t.Status, models.TournamentCompleted) {
				return ErrTournamentInvalidStatusTransition
			}
			t.Status = models.TournamentCompleted
			t.UpdatedAt = s.now()
			if err := s.engine.tournamentRepo.Save(ctx, tx, t); err != nil {
				return err
			}
			completedNow = true
		}

		summary = &TournamentSummary{Tournament: t, Matches: matches, Winner: winner}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return summary, completedNow, nil
}

// archive uploads the result document and records its key. Failures are logged
// and retried on the next Summarize call.
func (s *tournamentService) archive(ctx context.Context, summary *TournamentSummary) {
	id := summary.Tournament.ID
	key := fmt.Sprintf("results/%s.json", id)

	body, err := json.Marshal(summary)
	if err != nil {
		s.engine.logger.Error("failed to encode tournament result", "tournament_id", id, "error", err)
		return
	}
	if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		s.engine.logger.Warn("failed to archive tournament result", "tournament_id", id, "error", err)
		return
	}

	unlock := s.engine.locks.Lock(id)
	defer unlock()
	err = withTx(ctx, s.engine.db, s.engine.logger, func(tx *sqlx.Tx) error {
		t, err := s.engine.tournamentRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		t.ResultKey = &key
		t.UpdatedAt = s.now()
		if err := s.engine.tournamentRepo.Save(ctx, tx, t); err != nil {
			return err
		}
		summary.Tournament.ResultKey = t.ResultKey
		summary.Tournament.UpdatedAt = t.UpdatedAt
		return nil
	})
	if err != nil {
		s.engine.logger.Warn("failed to record archived result key", "tournament_id", id, "key", key, "error", err)
		return
	}
	s.engine.logger.Info("tournament result archived", "tournament_id", id, "key", key)
}

func (s *tournamentService) populateResultURL(t *models.Tournament) {
	if t.ResultKey == nil || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*t.ResultKey); url != "" {
		t.ResultURL = &url
	}
}

func validateCreateTournament(input CreateTournamentInput) error {
	v := newValidator()
	v.check(input.Title != "", "title", "title cannot be empty")
	v.check(utf8.RuneCountInString(input.Title) <= maxTitleLength, "title",
		fmt.Sprintf("title must not be longer than %d characters", maxTitleLength))
	v.check(input.MaxParticipants >= MinMaxParticipants, "max_participants",
		fmt.Sprintf("max number of participants must be >= %d", MinMaxParticipants))
	v.check(input.MaxParticipants <= MaxMaxParticipants, "max_participants",
		fmt.Sprintf("max number of participants must be <= %d", MaxMaxParticipants))
	v.check(input.MaxParticipants%participantsStep == 0, "max_participants",
		fmt.Sprintf("max number of participants must be a multiple of %d", participantsStep))
	return v.err()
}

func validateListTournaments(input ListTournamentsInput) error {
	v := newValidator()
	v.check(input.Limit > 0 && input.Limit <= MaxListLimit, "limit",
		fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
	v.check(input.Offset >= 0, "offset", "offset can't be negative")
	if input.Status != nil {
		switch *input.Status {
		case models.TournamentPending, models.TournamentStarted, models.TournamentCompleted:
		default:
			v.check(false, "status", "unknown tournament status")
		}
	}
	return v.err()
}

func normalizeParticipantNames(names []string) ([]string, error) {
	v := newValidator()
	v.check(len(names) > 0, "names", "min size of participants to add is 1")

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		field := fmt.Sprintf("names[%d]", i)
		v.check(name != "", field, "name cannot be empty")
		v.check(utf8.RuneCountInString(name) <= maxNameLength, field,
			fmt.Sprintf("name must not be longer than %d characters", maxNameLength))
		v.check(!seen[name], field, "name is repeated in this request")
		seen[name] = true
		out = append(out, name)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}
