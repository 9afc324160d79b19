package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-bracket/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantNameConflict      = errors.New("participant with this name already registered for this tournament")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
)

type ParticipantRepository interface {
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error)
	ExistsByName(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, name string) (bool, error)
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Participant, error)
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	DeleteByTournamentAndID(ctx context.Context, exec SQLExecutor, tournamentID, id uuid.UUID) error
}

type sqlParticipantRepository struct {
	baseRepository
}

func NewParticipantRepository(db *sqlx.DB) ParticipantRepository {
	return &sqlParticipantRepository{baseRepository{db: db}}
}

func (r *sqlParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Participant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, name, created_at
		FROM participants
		WHERE tournament_id = ?
		ORDER BY created_at ASC, name ASC`

	participants := make([]*models.Participant, 0)
	if err := executor.SelectContext(ctx, &participants, executor.Rebind(query), tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %s: %w", tournamentID, err)
	}
	return participants, nil
}

func (r *sqlParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.GetContext(ctx, &count,
		executor.Rebind(`SELECT COUNT(*) FROM participants WHERE tournament_id = ?`), tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants of tournament %s: %w", tournamentID, err)
	}
	return count, nil
}

func (r *sqlParticipantRepository) ExistsByName(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, name string) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.GetContext(ctx, &exists,
		executor.Rebind(`SELECT EXISTS (SELECT 1 FROM participants WHERE tournament_id = ? AND name = ?)`),
		tournamentID, name)
	if err != nil {
		return false, fmt.Errorf("failed to check participant name: %w", err)
	}
	return exists, nil
}

func (r *sqlParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Participant, error) {
	executor := r.getExecutor(exec)
	p := &models.Participant{}
	err := executor.GetContext(ctx, p,
		executor.Rebind(`SELECT id, tournament_id, name, created_at FROM participants WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant %s: %w", id, err)
	}
	return p, nil
}

func (r *sqlParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (id, tournament_id, name, created_at)
		VALUES (:id, :tournament_id, :name, :created_at)`

	if _, err := r.getExecutor(exec).NamedExecContext(ctx, query, p); err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrParticipantNameConflict
		case isForeignKeyViolation(err):
			return ErrParticipantTournamentInvalid
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *sqlParticipantRepository) DeleteByTournamentAndID(ctx context.Context, exec SQLExecutor, tournamentID, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		executor.Rebind(`DELETE FROM participants WHERE tournament_id = ? AND id = ?`), tournamentID, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
