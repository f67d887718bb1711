package models

import "time"

// RegistrationState is the aggregate state of a registered party.
type RegistrationState string

const (
	RegistrationCreated             RegistrationState = "created"
	RegistrationPendingConfirmation RegistrationState = "pending_confirmation"
	RegistrationConfirmed           RegistrationState = "confirmed"
	RegistrationDeclined            RegistrationState = "declined"
	RegistrationTimedOut            RegistrationState = "timed_out"
)

// PlayerState is the per-player confirmation state, independent of the
// aggregate until the ready-check closes.
type PlayerState string

const (
	PlayerCreated             PlayerState = "created"
	PlayerPendingConfirmation PlayerState = "pending_confirmation"
	PlayerConfirmed           PlayerState = "confirmed"
	PlayerDeclined            PlayerState = "declined"
	PlayerTimedOut            PlayerState = "timed_out"
)

type Registration struct {
	ID           int               `json:"id" db:"id"`
	TournamentID int               `json:"tournament_id" db:"tournament_id"`
	State        RegistrationState `json:"state" db:"state"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`

	Players []RegistrationPlayer `json:"players,omitempty" db:"-"`
}

type RegistrationPlayer struct {
	ID             int         `json:"id" db:"id"`
	RegistrationID int         `json:"registration_id" db:"registration_id"`
	SteamID        string      `json:"steam_id" db:"steam_id"`
	State          PlayerState `json:"state" db:"state"`
}

// AllPlayersConfirmed reports whether every player of the party confirmed.
func (r *Registration) AllPlayersConfirmed() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if p.State != PlayerConfirmed {
			return false
		}
	}
	return true
}
