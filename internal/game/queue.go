package game

import "time"

// QueueEntry is a waiting player's spot in the matchmaking queue. Private
// entries carry the lobby code they were hosted under.
type QueueEntry struct {
	PlayerID  int64     `db:"player_id"`
	JoinedAt  time.Time `db:"joined_at"`
	Private   bool      `db:"private"`
	LobbyCode *string   `db:"lobby_code"`
}
