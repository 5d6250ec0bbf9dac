package tournament

import "time"

// Participant links a user to a tournament. UserLeft is set when a player
// abandons an ongoing tournament; their future opponents then win by walkover.
type Participant struct {
	ID           int64     `db:"id"`
	TournamentID int64     `db:"tournament_id"`
	UserID       int64     `db:"user_id"`
	JoinedAt     time.Time `db:"joined_at"`
	UserLeft     bool      `db:"user_left"`
}
