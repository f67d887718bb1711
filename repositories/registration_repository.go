package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound       = errors.New("registration not found")
	ErrRegistrationPlayerNotFound = errors.New("registration player not found")
	ErrRegistrationPlayerConflict = errors.New("player already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, registration *models.Registration) error
	GetByID(ctx context.Context, id int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error)
	Delete(ctx context.Context, id int) error
	UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.RegistrationState) error
	FindPlayerBySteamID(ctx context.Context, tournamentID int, steamID string) (*models.RegistrationPlayer, error)
	UpdatePlayerState(ctx context.Context, exec SQLExecutor, playerID int, state models.PlayerState) error
	// BulkAdvancePlayers moves every player of the tournament whose state is
	// in from to to, as a single multi-row UPDATE.
	BulkAdvancePlayers(ctx context.Context, exec SQLExecutor, tournamentID int, from []models.PlayerState, to models.PlayerState) (int64, error)
	// RecomputeAggregateStates sets each registration of the tournament to
	// confirmed iff all of its players are confirmed, declined otherwise.
	RecomputeAggregateStates(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, registration *models.Registration) error {
	if exec == nil {
		exec = r.db
	}
	err := exec.QueryRowContext(ctx,
		`INSERT INTO registrations (tournament_id, state) VALUES ($1, $2) RETURNING id, created_at`,
		registration.TournamentID, registration.State,
	).Scan(&registration.ID, &registration.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}

	for i := range registration.Players {
		p := &registration.Players[i]
		p.RegistrationID = registration.ID
		err := exec.QueryRowContext(ctx,
			`INSERT INTO registration_players (registration_id, tournament_id, steam_id, state) VALUES ($1, $2, $3, $4) RETURNING id`,
			p.RegistrationID, registration.TournamentID, p.SteamID, p.State,
		).Scan(&p.ID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrRegistrationPlayerConflict
			}
			return fmt.Errorf("failed to insert registration player %s: %w", p.SteamID, err)
		}
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	reg := &models.Registration{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tournament_id, state, created_at FROM registrations WHERE id = $1`, id,
	).Scan(&reg.ID, &reg.TournamentID, &reg.State, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration %d: %w", id, err)
	}

	players, err := r.listPlayers(ctx, `WHERE p.registration_id = $1`, id)
	if err != nil {
		return nil, err
	}
	reg.Players = players
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tournament_id, state, created_at FROM registrations WHERE tournament_id = $1 ORDER BY id ASC`,
		tournamentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	byID := make(map[int]*models.Registration)
	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		reg := &models.Registration{}
		if scanErr := rows.Scan(&reg.ID, &reg.TournamentID, &reg.State, &reg.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", scanErr)
		}
		byID[reg.ID] = reg
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration rows iteration: %w", err)
	}

	players, err := r.listPlayers(ctx,
		`JOIN registrations reg ON reg.id = p.registration_id WHERE reg.tournament_id = $1`, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if reg, ok := byID[p.RegistrationID]; ok {
			reg.Players = append(reg.Players, p)
		}
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) listPlayers(ctx context.Context, where string, arg interface{}) ([]models.RegistrationPlayer, error) {
	query := `SELECT p.id, p.registration_id, p.steam_id, p.state FROM registration_players p ` + where + ` ORDER BY p.id ASC`
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query registration players: %w", err)
	}
	defer rows.Close()

	players := make([]models.RegistrationPlayer, 0)
	for rows.Next() {
		var p models.RegistrationPlayer
		if scanErr := rows.Scan(&p.ID, &p.RegistrationID, &p.SteamID, &p.State); scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration player row: %w", scanErr)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdateState(ctx context.Context, exec SQLExecutor, id int, state models.RegistrationState) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE registrations SET state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return fmt.Errorf("failed to update registration %d state: %w", id, err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) FindPlayerBySteamID(ctx context.Context, tournamentID int, steamID string) (*models.RegistrationPlayer, error) {
	p := &models.RegistrationPlayer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.registration_id, p.steam_id, p.state
		FROM registration_players p
		JOIN registrations reg ON reg.id = p.registration_id
		WHERE reg.tournament_id = $1 AND p.steam_id = $2`,
		tournamentID, steamID,
	).Scan(&p.ID, &p.RegistrationID, &p.SteamID, &p.State)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan registration player: %w", err)
	}
	return p, nil
}

func (r *postgresRegistrationRepository) UpdatePlayerState(ctx context.Context, exec SQLExecutor, playerID int, state models.PlayerState) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE registration_players SET state = $1 WHERE id = $2`, state, playerID)
	if err != nil {
		return fmt.Errorf("failed to update registration player %d state: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrRegistrationPlayerNotFound)
}

func (r *postgresRegistrationRepository) BulkAdvancePlayers(ctx context.Context, exec SQLExecutor, tournamentID int, from []models.PlayerState, to models.PlayerState) (int64, error) {
	if exec == nil {
		exec = r.db
	}
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	result, err := exec.ExecContext(ctx, `
		UPDATE registration_players SET state = $1
		WHERE state = ANY($2)
		  AND registration_id IN (SELECT id FROM registrations WHERE tournament_id = $3)`,
		to, pq.Array(states), tournamentID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk-advance registration players: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected, nil
}

func (r *postgresRegistrationRepository) RecomputeAggregateStates(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	if exec == nil {
		exec = r.db
	}
	_, err := exec.ExecContext(ctx, `
		UPDATE registrations SET state = CASE
			WHEN NOT EXISTS (
				SELECT 1 FROM registration_players p
				WHERE p.registration_id = registrations.id AND p.state <> 'confirmed')
			THEN 'confirmed'::registration_state
			ELSE 'declined'::registration_state
		END
		WHERE tournament_id = $1`,
		tournamentID,
	)
	if err != nil {
		return fmt.Errorf("failed to recompute registration states: %w", err)
	}
	return nil
}
