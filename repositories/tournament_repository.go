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
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentConflict = errors.New("tournament with this id already exists")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	// GetForUpdate reads the tournament and, on postgres, locks its row until exec's transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error)
	Save(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	ExistsByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (bool, error)
}

type sqlTournamentRepository struct {
	baseRepository
}

func NewTournamentRepository(db *sqlx.DB) TournamentRepository {
	return &sqlTournamentRepository{baseRepository{db: db}}
}

const tournamentColumns = `id, title, max_participants, status, match_count, result_key, created_at, updated_at`

func (r *sqlTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES (:id, :title, :max_participants, :status, :match_count, :result_key, :created_at, :updated_at)`

	if _, err := r.getExecutor(exec).NamedExecContext(ctx, query, t); err != nil {
		if isUniqueViolation(err) {
			return ErrTournamentConflict
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *sqlTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	return r.get(ctx, r.getExecutor(exec), id, false)
}

func (r *sqlTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	return r.get(ctx, r.getExecutor(exec), id, true)
}

func (r *sqlTournamentRepository) get(ctx context.Context, executor SQLExecutor, id uuid.UUID, lock bool) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ?`
	// sqlite has no row locks; its single writer already serialises transactions.
	if lock && executor.DriverName() == "postgres" {
		query += " FOR UPDATE"
	}

	t := &models.Tournament{}
	if err := executor.GetContext(ctx, t, executor.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *sqlTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, *filter.Status)
	}

	query += " ORDER BY created_at DESC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	tournaments := make([]*models.Tournament, 0)
	if err := executor.SelectContext(ctx, &tournaments, executor.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) Save(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			title = :title,
			max_participants = :max_participants,
			status = :status,
			match_count = :match_count,
			result_key = :result_key,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.getExecutor(exec).NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("failed to save tournament %s: %w", t.ID, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, executor.Rebind(`DELETE FROM tournaments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) ExistsByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (bool, error) {
	executor := r.getExecutor(exec)
	var exists bool
	err := executor.GetContext(ctx, &exists,
		executor.Rebind(`SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = ?)`), id)
	if err != nil {
		return false, fmt.Errorf("failed to check tournament %s: %w", id, err)
	}
	return exists, nil
}
