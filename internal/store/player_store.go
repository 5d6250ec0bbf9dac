package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/game"
)

type PlayerStore struct {
	db *sqlx.DB
}

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

// EnsurePlayerTx registers a trusted upstream id on first contact. Existing
// rows keep their current status.
func (s *PlayerStore) EnsurePlayerTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO players (id) VALUES (?)", id)
	return err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, id int64) (*game.Player, error) {
	var p game.Player
	err := s.db.GetContext(ctx, &p, "SELECT * FROM players WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlayerStore) GetPlayerTx(ctx context.Context, tx *sqlx.Tx, id int64) (*game.Player, error) {
	var p game.Player
	err := tx.GetContext(ctx, &p, "SELECT * FROM players WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlayerStore) SetStatusTx(ctx context.Context, tx *sqlx.Tx, status game.PlayerStatus, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("UPDATE players SET status = ? WHERE id IN (?)", status, ids)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
