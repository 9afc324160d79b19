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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchPositionConflict  = errors.New("match position already taken in this tournament")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error)
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	// Save inserts the match or overwrites the stored row with the same id.
	Save(ctx context.Context, exec SQLExecutor, match *models.Match) error
	SaveMany(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	DeleteAllByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) error
}

type sqlMatchRepository struct {
	baseRepository
}

func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqlMatchRepository{baseRepository{db: db}}
}

const matchColumns = `id, tournament_id, position, label, next_position, next_label,
	first_participant_id, second_participant_id, first_score, second_score, winner_id,
	is_bye, status, start_time, finish_time`

func (r *sqlMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ? ORDER BY position ASC`

	matches := make([]*models.Match, 0)
	if err := executor.SelectContext(ctx, &matches, executor.Rebind(query), tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %s: %w", tournamentID, err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	executor := r.getExecutor(exec)
	m := &models.Match{}
	err := executor.GetContext(ctx, m, executor.Rebind(`SELECT `+matchColumns+` FROM matches WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

func (r *sqlMatchRepository) Save(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES (:id, :tournament_id, :position, :label, :next_position, :next_label,
			:first_participant_id, :second_participant_id, :first_score, :second_score, :winner_id,
			:is_bye, :status, :start_time, :finish_time)
		ON CONFLICT (id) DO UPDATE SET
			first_participant_id = excluded.first_participant_id,
			second_participant_id = excluded.second_participant_id,
			first_score = excluded.first_score,
			second_score = excluded.second_score,
			winner_id = excluded.winner_id,
			is_bye = excluded.is_bye,
			status = excluded.status,
			start_time = excluded.start_time,
			finish_time = excluded.finish_time`

	if _, err := r.getExecutor(exec).NamedExecContext(ctx, query, m); err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrMatchPositionConflict
		case isForeignKeyViolation(err):
			return ErrMatchTournamentInvalid
		}
		return fmt.Errorf("failed to save match %s: %w", m.Label, err)
	}
	return nil
}

func (r *sqlMatchRepository) SaveMany(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	executor := r.getExecutor(exec)
	for _, m := range matches {
		if err := r.Save(ctx, executor, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlMatchRepository) DeleteAllByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx,
		executor.Rebind(`DELETE FROM matches WHERE tournament_id = ?`), tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches of tournament %s: %w", tournamentID, err)
	}
	return nil
}
