package models

import "time"

// Participant is a party entered into a tournament bracket. It is created
// from a confirmed registration when the bracket is generated and stays
// stable across the whole bracket.
type Participant struct {
	ID             int       `json:"id" db:"id"`
	TournamentID   int       `json:"tournament_id" db:"tournament_id"`
	RegistrationID *int      `json:"registration_id,omitempty" db:"registration_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
