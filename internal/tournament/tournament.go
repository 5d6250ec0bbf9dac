package tournament

import "time"

type Status string

const (
	StatusOpen     Status = "open"
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
	StatusCanceled Status = "canceled"
)

type Tournament struct {
	ID              int64      `db:"id"`
	Name            string     `db:"name"`
	Description     string     `db:"description"`
	MaxParticipants int        `db:"max_participants"`
	Status          Status     `db:"status"`
	WinnerID        *int64     `db:"winner_id"`
	CreatedAt       time.Time  `db:"created_at"`
	EndDate         *time.Time `db:"end_date"`
}
