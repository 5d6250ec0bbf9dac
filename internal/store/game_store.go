package store

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/game"
)

type GameStore struct {
	db *sqlx.DB
}

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

const insertGameQuery = `INSERT INTO games (lobby_code, player1_id, player2_id, tournament_id, round, status, created_at)
	VALUES (:lobby_code, :player1_id, :player2_id, :tournament_id, :round, :status, :created_at)`

func (s *GameStore) InsertGameTx(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	res, err := tx.NamedExecContext(ctx, insertGameQuery, g)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	return err
}

func (s *GameStore) GetGame(ctx context.Context, id int64) (*game.Game, error) {
	var g game.Game
	err := s.db.GetContext(ctx, &g, "SELECT * FROM games WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) GetGameTx(ctx context.Context, tx *sqlx.Tx, id int64) (*game.Game, error) {
	var g game.Game
	err := tx.GetContext(ctx, &g, "SELECT * FROM games WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) ListGames(ctx context.Context) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games, "SELECT * FROM games ORDER BY created_at DESC, id DESC")
	return games, err
}

func (s *GameStore) DeleteGame(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *GameStore) GetPrivateGame(ctx context.Context, code string) (*game.Game, error) {
	var g game.Game
	err := s.db.GetContext(ctx, &g, "SELECT * FROM games WHERE lobby_code = ?", code)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) GetPrivateGameTx(ctx context.Context, tx *sqlx.Tx, code string) (*game.Game, error) {
	var g game.Game
	err := tx.GetContext(ctx, &g, "SELECT * FROM games WHERE lobby_code = ?", code)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// LatestGameForPlayer returns the most recently created game seating the
// player, regardless of status.
func (s *GameStore) LatestGameForPlayerTx(ctx context.Context, tx *sqlx.Tx, playerID int64) (*game.Game, error) {
	var g game.Game
	err := tx.GetContext(ctx, &g, `SELECT * FROM games WHERE player1_id = ? OR player2_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, playerID, playerID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGameForPlayer finds the game currently holding one of the player's
// seats, if any.
func (s *GameStore) ActiveGameForPlayer(ctx context.Context, playerID int64) (*game.Game, error) {
	var g game.Game
	err := s.db.GetContext(ctx, &g, `SELECT * FROM games
		WHERE (player1_id = ? OR player2_id = ?) AND status IN ('pending', 'ready', 'ongoing')
		ORDER BY created_at DESC, id DESC LIMIT 1`, playerID, playerID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) ActiveGameForPlayerTx(ctx context.Context, tx *sqlx.Tx, playerID int64) (*game.Game, error) {
	var g game.Game
	err := tx.GetContext(ctx, &g, `SELECT * FROM games
		WHERE (player1_id = ? OR player2_id = ?) AND status IN ('pending', 'ready', 'ongoing')
		ORDER BY created_at DESC, id DESC LIMIT 1`, playerID, playerID)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) SetStatus(ctx context.Context, id int64, status game.Status) error {
	_, err := s.db.ExecContext(ctx, "UPDATE games SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *GameStore) UpdateScore(ctx context.Context, id int64, score1, score2 int) error {
	_, err := s.db.ExecContext(ctx, "UPDATE games SET score_player1 = ?, score_player2 = ? WHERE id = ?", score1, score2, id)
	return err
}

const updateGameQuery = `UPDATE games SET
	player1_id = :player1_id,
	player2_id = :player2_id,
	score_player1 = :score_player1,
	score_player2 = :score_player2,
	winner_id = :winner_id,
	status = :status,
	finished_at = :finished_at
	WHERE id = :id`

func (s *GameStore) UpdateGameTx(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	_, err := tx.NamedExecContext(ctx, updateGameQuery, g)
	return err
}

// Bracket helpers.

func (s *GameStore) CreateGamesTx(ctx context.Context, tx *sqlx.Tx, games []game.Game) error {
	if len(games) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, insertGameQuery, games)
	return err
}

func (s *GameStore) GetTournamentGames(ctx context.Context, tournamentID int64) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games, `SELECT * FROM games WHERE tournament_id = ?
		ORDER BY round ASC, id ASC`, tournamentID)
	return games, err
}

func (s *GameStore) CountRoundGamesTx(ctx context.Context, tx *sqlx.Tx, tournamentID int64, round int) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM games WHERE tournament_id = ? AND round = ?", tournamentID, round)
	return count, err
}

// NextOpenGameTx finds the earliest-created game of the given round that still
// has an empty seat.
func (s *GameStore) NextOpenGameTx(ctx context.Context, tx *sqlx.Tx, tournamentID int64, round int) (*game.Game, error) {
	var g game.Game
	err := tx.GetContext(ctx, &g, `SELECT * FROM games
		WHERE tournament_id = ? AND round = ? AND (player1_id IS NULL OR player2_id IS NULL)
		ORDER BY created_at ASC, id ASC LIMIT 1`, tournamentID, round)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Queue operations.

func (s *GameStore) EnqueueTx(ctx context.Context, tx *sqlx.Tx, entry *game.QueueEntry) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO game_queue (player_id, joined_at, private, lobby_code)
		VALUES (:player_id, :joined_at, :private, :lobby_code)`, entry)
	return err
}

func (s *GameStore) GetQueueEntryTx(ctx context.Context, tx *sqlx.Tx, playerID int64) (*game.QueueEntry, error) {
	var entry game.QueueEntry
	err := tx.GetContext(ctx, &entry, "SELECT * FROM game_queue WHERE player_id = ?", playerID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindWaitingPlayerTx returns the earliest-joined public entry belonging to
// someone other than the caller.
func (s *GameStore) FindWaitingPlayerTx(ctx context.Context, tx *sqlx.Tx, excluding int64) (*game.QueueEntry, error) {
	var entry game.QueueEntry
	err := tx.GetContext(ctx, &entry, `SELECT * FROM game_queue
		WHERE player_id != ? AND private = 0
		ORDER BY joined_at ASC, player_id ASC LIMIT 1`, excluding)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GameStore) GetLobby(ctx context.Context, code string) (*game.QueueEntry, error) {
	var entry game.QueueEntry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM game_queue WHERE lobby_code = ?", code)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GameStore) GetLobbyTx(ctx context.Context, tx *sqlx.Tx, code string) (*game.QueueEntry, error) {
	var entry game.QueueEntry
	err := tx.GetContext(ctx, &entry, "SELECT * FROM game_queue WHERE lobby_code = ?", code)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *GameStore) DeleteQueueEntriesTx(ctx context.Context, tx *sqlx.Tx, playerIDs ...int64) error {
	if len(playerIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM game_queue WHERE player_id IN (?)", playerIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (s *GameStore) ListQueue(ctx context.Context) ([]game.QueueEntry, error) {
	var entries []game.QueueEntry
	err := s.db.SelectContext(ctx, &entries, "SELECT * FROM game_queue ORDER BY joined_at ASC, player_id ASC")
	return entries, err
}
