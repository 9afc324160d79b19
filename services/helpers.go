package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-bracket/brackets"
	"github.com/Dosada05/tournament-bracket/models"
	"github.com/Dosada05/tournament-bracket/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Notifier receives bracket events after they are committed. *brackets.Hub implements it.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type noopNotifier struct{}

func (noopNotifier) BroadcastToRoom(string, interface{}) {}

func withTx(ctx context.Context, db *sqlx.DB, logger *slog.Logger, fn func(tx *sqlx.Tx) error) (txErr error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", "error", rbErr, "cause", txErr)
				txErr = fmt.Errorf("%w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentPending:   {models.TournamentStarted},
		models.TournamentStarted:   {models.TournamentCompleted},
		models.TournamentCompleted: {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrParticipantNameConflict):
		return ErrDuplicateName
	case errors.Is(err, repositories.ErrParticipantTournamentInvalid):
		return ErrTournamentNotFound
	}
	return err
}

// bracketEngine runs state machine operations on one tournament at a time:
// tournament lock, then transaction, then the persisted bracket.
type bracketEngine struct {
	db              *sqlx.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	locks           *TournamentLocks
	notifier        Notifier
	logger          *slog.Logger
}

type bracketMutation func(tx *sqlx.Tx, t *models.Tournament, b *brackets.Bracket) ([]*models.Match, error)

func newBracketEngine(
	db *sqlx.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	locks *TournamentLocks,
	notifier Notifier,
	logger *slog.Logger,
) bracketEngine {
	if locks == nil {
		locks = NewTournamentLocks()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return bracketEngine{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		locks:           locks,
		notifier:        notifier,
		logger:          logger,
	}
}

// mutate applies fn to the started tournament's bracket and persists exactly the
// matches fn reports as changed. Subscribers are notified only after commit.
func (e *bracketEngine) mutate(ctx context.Context, tournamentID uuid.UUID, fn bracketMutation) ([]*models.Match, error) {
	unlock := e.locks.Lock(tournamentID)
	defer unlock()

	var changed []*models.Match
	err := withTx(ctx, e.db, e.logger, func(tx *sqlx.Tx) error {
		t, err := e.tournamentRepo.GetForUpdate(ctx, tx, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if t.Status == models.TournamentPending {
			return ErrNotStarted
		}

		b, err := e.loadBracket(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		changed, err = fn(tx, t, b)
		if err != nil {
			return err
		}
		if err := e.matchRepo.SaveMany(ctx, tx, changed); err != nil {
			return fmt.Errorf("failed to persist bracket changes: %w", err)
		}
		return nil
	})
	if err != nil {
		e.reportIntegrity(tournamentID, err)
		return nil, err
	}

	e.publish(tournamentID, brackets.EventMatchUpdated, jsonMatches(changed))
	return changed, nil
}

func (e *bracketEngine) loadBracket(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID) (*brackets.Bracket, error) {
	matches, err := e.matchRepo.ListByTournament(ctx, exec, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bracket of tournament %s: %w", tournamentID, err)
	}
	b, err := brackets.NewBracket(matches)
	if err != nil {
		return nil, fmt.Errorf("stored bracket of tournament %s is malformed: %w", tournamentID, err)
	}
	return b, nil
}

// locate finds matchID in the tournament's bracket, telling a foreign match apart from a missing one.
func (e *bracketEngine) locate(ctx context.Context, exec repositories.SQLExecutor, b *brackets.Bracket, tournamentID, matchID uuid.UUID) (*models.Match, error) {
	if m, err := b.MatchByID(matchID); err == nil {
		return m, nil
	}
	m, err := e.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if m.TournamentID != tournamentID {
		return nil, ErrMatchTournamentMismatch
	}
	return nil, ErrMatchNotFound
}

func (e *bracketEngine) reportIntegrity(tournamentID uuid.UUID, err error) {
	if brackets.IsIntegrityViolation(err) {
		e.logger.Error("bracket integrity violation",
			"alert", true,
			"tournament_id", tournamentID,
			"error", err)
	}
}

func (e *bracketEngine) publish(tournamentID uuid.UUID, eventType string, payload interface{}) {
	room := brackets.RoomForTournament(tournamentID)
	e.notifier.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    eventType,
		Payload: payload,
		RoomID:  room,
	})
}

func jsonMatches(matches []*models.Match) map[string]interface{} {
	if matches == nil {
		matches = []*models.Match{}
	}
	return map[string]interface{}{"matches": matches}
}
