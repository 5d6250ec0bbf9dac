package game

type PlayerStatus string

const (
	PlayerIdle      PlayerStatus = "idle"
	PlayerSearching PlayerStatus = "searching"
	PlayerPlaying   PlayerStatus = "playing"
)

// Player mirrors only what the matchmaking core needs to know about a user:
// identity comes from upstream, the core just tracks queue/game occupancy.
type Player struct {
	ID     int64        `db:"id"`
	Status PlayerStatus `db:"status"`
}
