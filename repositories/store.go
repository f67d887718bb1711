package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx, so repository write
// methods can run inside a caller-owned transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner runs a function within one transaction. The fake store supplies
// a mutex-backed implementation for tests.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

// SweepLocker guards the game-dispatch sweep so at most one process
// instance dispatches a given game.
type SweepLocker interface {
	// TryLockSweep attempts the sweep lock without blocking. On success the
	// returned release function must be called when the sweep finishes.
	TryLockSweep(ctx context.Context, key int64) (release func(), ok bool, err error)
}

// Store bundles the per-kind repositories behind one handle. Services and
// the topology engine are agnostic to whether it is Postgres or the
// in-memory fake.
type Store struct {
	Tx            TxRunner
	Locker        SweepLocker
	Tournaments   TournamentRepository
	Registrations RegistrationRepository
	Participants  ParticipantRepository
	Stages        StageRepository
	Groups        GroupRepository
	Rounds        RoundRepository
	Matches       MatchRepository
	Games         MatchGameRepository
}

// NewPostgresStore wires every repository against the given database handle.
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Tx:            &sqlTxRunner{db: db},
		Locker:        &advisoryLocker{db: db},
		Tournaments:   NewPostgresTournamentRepository(db),
		Registrations: NewPostgresRegistrationRepository(db),
		Participants:  NewPostgresParticipantRepository(db),
		Stages:        NewPostgresStageRepository(db),
		Groups:        NewPostgresGroupRepository(db),
		Rounds:        NewPostgresRoundRepository(db),
		Matches:       NewPostgresMatchRepository(db),
		Games:         NewPostgresMatchGameRepository(db),
	}
}

type sqlTxRunner struct {
	db *sql.DB
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// advisoryLocker holds a session-scoped Postgres advisory lock on a
// dedicated connection for the duration of a sweep.
type advisoryLocker struct {
	db *sql.DB
}

func (l *advisoryLocker) TryLockSweep(ctx context.Context, key int64) (func(), bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("pg_try_advisory_lock failed: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		// Unlock on the same session; closing the connection would release
		// the lock anyway, this just keeps it tidy.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		_ = conn.Close()
	}
	return release, true, nil
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}
