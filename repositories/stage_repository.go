package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrStageNotFound = errors.New("stage not found")
	ErrRoundNotFound = errors.New("round not found")
)

type StageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error
	GetByTournament(ctx context.Context, tournamentID int) (*models.Stage, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	ListByStage(ctx context.Context, stageID int) ([]*models.Group, error)
}

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, id int) (*models.Round, error)
	ListByGroup(ctx context.Context, groupID int) ([]*models.Round, error)
}

type postgresStageRepository struct {
	db *sql.DB
}

func NewPostgresStageRepository(db *sql.DB) StageRepository {
	return &postgresStageRepository{db: db}
}

func (r *postgresStageRepository) Create(ctx context.Context, exec SQLExecutor, stage *models.Stage) error {
	if exec == nil {
		exec = r.db
	}
	err := exec.QueryRowContext(ctx,
		`INSERT INTO stages (tournament_id, type) VALUES ($1, $2) RETURNING id`,
		stage.TournamentID, stage.Type,
	).Scan(&stage.ID)
	if err != nil {
		return fmt.Errorf("failed to insert stage: %w", err)
	}
	return nil
}

func (r *postgresStageRepository) GetByTournament(ctx context.Context, tournamentID int) (*models.Stage, error) {
	stage := &models.Stage{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tournament_id, type FROM stages WHERE tournament_id = $1`, tournamentID,
	).Scan(&stage.ID, &stage.TournamentID, &stage.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("failed to scan stage for tournament %d: %w", tournamentID, err)
	}
	return stage, nil
}

func (r *postgresStageRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	if exec == nil {
		exec = r.db
	}
	_, err := exec.ExecContext(ctx, `DELETE FROM stages WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete stage for tournament %d: %w", tournamentID, err)
	}
	return nil
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	if exec == nil {
		exec = r.db
	}
	err := exec.QueryRowContext(ctx,
		`INSERT INTO groups (stage_id, number, kind) VALUES ($1, $2, $3) RETURNING id`,
		group.StageID, group.Number, group.Kind,
	).Scan(&group.ID)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

func (r *postgresGroupRepository) ListByStage(ctx context.Context, stageID int) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stage_id, number, kind FROM groups WHERE stage_id = $1 ORDER BY number ASC`, stageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for stage %d: %w", stageID, err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		g := &models.Group{}
		if scanErr := rows.Scan(&g.ID, &g.StageID, &g.Number, &g.Kind); scanErr != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", scanErr)
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during group rows iteration: %w", err)
	}
	return groups, nil
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	if exec == nil {
		exec = r.db
	}
	err := exec.QueryRowContext(ctx,
		`INSERT INTO rounds (group_id, number, best_of) VALUES ($1, $2, $3) RETURNING id`,
		round.GroupID, round.Number, round.BestOf,
	).Scan(&round.ID)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	return nil
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, id int) (*models.Round, error) {
	round := &models.Round{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, number, best_of FROM rounds WHERE id = $1`, id,
	).Scan(&round.ID, &round.GroupID, &round.Number, &round.BestOf)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round %d: %w", id, err)
	}
	return round, nil
}

func (r *postgresRoundRepository) ListByGroup(ctx context.Context, groupID int) ([]*models.Round, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, number, best_of FROM rounds WHERE group_id = $1 ORDER BY number ASC`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for group %d: %w", groupID, err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		round := &models.Round{}
		if scanErr := rows.Scan(&round.ID, &round.GroupID, &round.Number, &round.BestOf); scanErr != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", scanErr)
		}
		rounds = append(rounds, round)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during round rows iteration: %w", err)
	}
	return rounds, nil
}
