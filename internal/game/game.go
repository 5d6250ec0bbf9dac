package game

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusOngoing   Status = "ongoing"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

type Game struct {
	ID        int64   `db:"id"`
	LobbyCode *string `db:"lobby_code"`

	Player1ID *int64 `db:"player1_id"`
	Player2ID *int64 `db:"player2_id"`

	ScorePlayer1 *int   `db:"score_player1"`
	ScorePlayer2 *int   `db:"score_player2"`
	WinnerID     *int64 `db:"winner_id"`

	// Set only for bracket games
	TournamentID *int64 `db:"tournament_id"`
	Round        *int   `db:"round"`

	Status     Status     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// Seats reports whether playerID occupies one of the two player slots.
func (g *Game) Seats(playerID int64) bool {
	if g.Player1ID != nil && *g.Player1ID == playerID {
		return true
	}
	return g.Player2ID != nil && *g.Player2ID == playerID
}

// Active games still hold their seats; finished and cancelled ones do not.
func (g *Game) Active() bool {
	switch g.Status {
	case StatusPending, StatusReady, StatusOngoing:
		return true
	}
	return false
}
