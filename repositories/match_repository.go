package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListByRound(ctx context.Context, roundID int) ([]*models.Match, error)
	// Update persists the mutable match fields: opponent slots (including
	// the source link, which a BYE propagation clears), status,
	// needs_attention and scheduled_date.
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, winnerNextID, winnerSlot, loserNextID, loserSlot *int) error
	UpdateScheduledDate(ctx context.Context, exec SQLExecutor, matchID int, when time.Time) error
	CountWithScore(ctx context.Context, tournamentID int) (int, error)
	CountUnfinished(ctx context.Context, tournamentID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, stage_id, group_id, round_id, number, best_of, status,
	opponent1_participant_id, opponent1_source_match_id, opponent1_score, opponent1_result, opponent1_forfeit,
	opponent2_participant_id, opponent2_source_match_id, opponent2_score, opponent2_result, opponent2_forfeit,
	winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot,
	needs_attention, scheduled_date, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.StageID, &m.GroupID, &m.RoundID, &m.Number, &m.BestOf, &m.Status,
		&m.Opponent1.ParticipantID, &m.Opponent1.SourceMatchID, &m.Opponent1.Score, &m.Opponent1.Result, &m.Opponent1.Forfeit,
		&m.Opponent2.ParticipantID, &m.Opponent2.SourceMatchID, &m.Opponent2.Score, &m.Opponent2.Result, &m.Opponent2.Forfeit,
		&m.WinnerNextMatchID, &m.WinnerNextSlot, &m.LoserNextMatchID, &m.LoserNextSlot,
		&m.NeedsAttention, &m.ScheduledDate, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO matches
			(tournament_id, stage_id, group_id, round_id, number, best_of, status,
			 opponent1_participant_id, opponent1_source_match_id, opponent1_score, opponent1_result, opponent1_forfeit,
			 opponent2_participant_id, opponent2_source_match_id, opponent2_score, opponent2_result, opponent2_forfeit,
			 scheduled_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID, match.StageID, match.GroupID, match.RoundID, match.Number, match.BestOf, match.Status,
		match.Opponent1.ParticipantID, match.Opponent1.SourceMatchID, match.Opponent1.Score, match.Opponent1.Result, match.Opponent1.Forfeit,
		match.Opponent2.ParticipantID, match.Opponent2.SourceMatchID, match.Opponent2.Score, match.Opponent2.Result, match.Opponent2.Forfeit,
		match.ScheduledDate,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) list(ctx context.Context, where string, arg interface{}) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches ` + where + ` ORDER BY round_id ASC, number ASC`
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return r.list(ctx, `WHERE tournament_id = $1`, tournamentID)
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	return r.list(ctx, `WHERE round_id = $1`, roundID)
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE matches SET
			status = $1,
			opponent1_participant_id = $2, opponent1_source_match_id = $3, opponent1_score = $4, opponent1_result = $5, opponent1_forfeit = $6,
			opponent2_participant_id = $7, opponent2_source_match_id = $8, opponent2_score = $9, opponent2_result = $10, opponent2_forfeit = $11,
			needs_attention = $12, scheduled_date = $13
		WHERE id = $14`

	result, err := exec.ExecContext(ctx, query,
		match.Status,
		match.Opponent1.ParticipantID, match.Opponent1.SourceMatchID, match.Opponent1.Score, match.Opponent1.Result, match.Opponent1.Forfeit,
		match.Opponent2.ParticipantID, match.Opponent2.SourceMatchID, match.Opponent2.Score, match.Opponent2.Result, match.Opponent2.Forfeit,
		match.NeedsAttention, match.ScheduledDate,
		match.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", match.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, matchID int, winnerNextID, winnerSlot, loserNextID, loserSlot *int) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `
		UPDATE matches SET winner_next_match_id = $1, winner_next_slot = $2, loser_next_match_id = $3, loser_next_slot = $4
		WHERE id = $5`,
		winnerNextID, winnerSlot, loserNextID, loserSlot, matchID,
	)
	if err != nil {
		return fmt.Errorf("failed to update next-match info for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateScheduledDate(ctx context.Context, exec SQLExecutor, matchID int, when time.Time) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE matches SET scheduled_date = $1 WHERE id = $2`, when, matchID)
	if err != nil {
		return fmt.Errorf("failed to update scheduled date for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountWithScore(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1 AND (opponent1_score IS NOT NULL OR opponent2_score IS NOT NULL)`,
		tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scored matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) CountUnfinished(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1 AND status NOT IN ('completed', 'archived')`,
		tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}
