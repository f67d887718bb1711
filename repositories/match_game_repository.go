package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrMatchGameNotFound = errors.New("match game not found")

type MatchGameRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, games []*models.MatchGame) error
	GetByID(ctx context.Context, id int) (*models.MatchGame, error)
	GetByExternalID(ctx context.Context, externalMatchID string) (*models.MatchGame, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.MatchGame, error)
	// ListDue returns unfinished, undispatched games whose scheduled date has
	// come. Used by the dispatch sweep.
	ListDue(ctx context.Context, now time.Time) ([]*models.MatchGame, error)
	Update(ctx context.Context, exec SQLExecutor, game *models.MatchGame) error
	UpdateScheduledDate(ctx context.Context, exec SQLExecutor, gameID int, when time.Time) error
	DetachExternal(ctx context.Context, externalMatchID string) error
}

type postgresMatchGameRepository struct {
	db *sql.DB
}

func NewPostgresMatchGameRepository(db *sql.DB) MatchGameRepository {
	return &postgresMatchGameRepository{db: db}
}

const matchGameColumns = `
	id, match_id, tournament_id, number, team_offset, scheduled_date,
	external_match_id, finished, winner_participant_id, loser_participant_id`

func scanMatchGame(row interface{ Scan(...interface{}) error }) (*models.MatchGame, error) {
	g := &models.MatchGame{}
	err := row.Scan(
		&g.ID, &g.MatchID, &g.TournamentID, &g.Number, &g.TeamOffset, &g.ScheduledDate,
		&g.ExternalMatchID, &g.Finished, &g.WinnerParticipantID, &g.LoserParticipantID,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *postgresMatchGameRepository) CreateBatch(ctx context.Context, exec SQLExecutor, games []*models.MatchGame) error {
	if exec == nil {
		exec = r.db
	}
	for _, g := range games {
		err := exec.QueryRowContext(ctx, `
			INSERT INTO match_games (match_id, tournament_id, number, team_offset, scheduled_date)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			g.MatchID, g.TournamentID, g.Number, g.TeamOffset, g.ScheduledDate,
		).Scan(&g.ID)
		if err != nil {
			return fmt.Errorf("failed to insert game %d of match %d: %w", g.Number, g.MatchID, err)
		}
	}
	return nil
}

func (r *postgresMatchGameRepository) GetByID(ctx context.Context, id int) (*models.MatchGame, error) {
	query := `SELECT` + matchGameColumns + ` FROM match_games WHERE id = $1`
	g, err := scanMatchGame(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchGameNotFound
		}
		return nil, fmt.Errorf("failed to scan match game %d: %w", id, err)
	}
	return g, nil
}

func (r *postgresMatchGameRepository) GetByExternalID(ctx context.Context, externalMatchID string) (*models.MatchGame, error) {
	query := `SELECT` + matchGameColumns + ` FROM match_games WHERE external_match_id = $1`
	g, err := scanMatchGame(r.db.QueryRowContext(ctx, query, externalMatchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchGameNotFound
		}
		return nil, fmt.Errorf("failed to scan match game by external id %s: %w", externalMatchID, err)
	}
	return g, nil
}

func (r *postgresMatchGameRepository) list(ctx context.Context, where string, args ...interface{}) ([]*models.MatchGame, error) {
	query := `SELECT` + matchGameColumns + ` FROM match_games ` + where + ` ORDER BY match_id ASC, number ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match games: %w", err)
	}
	defer rows.Close()

	games := make([]*models.MatchGame, 0)
	for rows.Next() {
		g, scanErr := scanMatchGame(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match game row: %w", scanErr)
		}
		games = append(games, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match game rows iteration: %w", err)
	}
	return games, nil
}

func (r *postgresMatchGameRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchGame, error) {
	return r.list(ctx, `WHERE match_id = $1`, matchID)
}

func (r *postgresMatchGameRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.MatchGame, error) {
	return r.list(ctx, `WHERE tournament_id = $1`, tournamentID)
}

func (r *postgresMatchGameRepository) ListDue(ctx context.Context, now time.Time) ([]*models.MatchGame, error) {
	return r.list(ctx, `
		WHERE finished = FALSE
		  AND external_match_id IS NULL
		  AND scheduled_date IS NOT NULL
		  AND scheduled_date <= $1`, now)
}

func (r *postgresMatchGameRepository) Update(ctx context.Context, exec SQLExecutor, game *models.MatchGame) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `
		UPDATE match_games SET
			scheduled_date = $1, external_match_id = $2, finished = $3,
			winner_participant_id = $4, loser_participant_id = $5
		WHERE id = $6`,
		game.ScheduledDate, game.ExternalMatchID, game.Finished,
		game.WinnerParticipantID, game.LoserParticipantID,
		game.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match game %d: %w", game.ID, err)
	}
	return checkAffectedRows(result, ErrMatchGameNotFound)
}

func (r *postgresMatchGameRepository) UpdateScheduledDate(ctx context.Context, exec SQLExecutor, gameID int, when time.Time) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE match_games SET scheduled_date = $1 WHERE id = $2`, when, gameID)
	if err != nil {
		return fmt.Errorf("failed to update scheduled date for game %d: %w", gameID, err)
	}
	return checkAffectedRows(result, ErrMatchGameNotFound)
}

func (r *postgresMatchGameRepository) DetachExternal(ctx context.Context, externalMatchID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE match_games SET external_match_id = NULL WHERE external_match_id = $1`, externalMatchID)
	if err != nil {
		return fmt.Errorf("failed to detach external match id %s: %w", externalMatchID, err)
	}
	return checkAffectedRows(result, ErrMatchGameNotFound)
}
