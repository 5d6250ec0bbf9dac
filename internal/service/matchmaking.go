package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/apperr"
	"github.com/pongline/matchcore/internal/game"
	"github.com/pongline/matchcore/internal/store"
)

// A player who never polls their status stays searching past this deadline;
// the timeout is evaluated lazily on the next Status call, there is no sweep.
const matchmakingTimeout = 30 * time.Second

const lobbyCodeLength = 10

type MatchmakingService struct {
	db      *sqlx.DB
	games   *store.GameStore
	players *store.PlayerStore
}

func NewMatchmakingService(db *sqlx.DB, games *store.GameStore, players *store.PlayerStore) *MatchmakingService {
	return &MatchmakingService{db: db, games: games, players: players}
}

// MatchResult is either a freshly paired game or confirmation that the caller
// is now waiting in the queue.
type MatchResult struct {
	Game   *game.Game
	Queued bool
}

// QueueStatus is the lazy view of a player's matchmaking state. Game is set
// only while the player is seated in their most recent match.
type QueueStatus struct {
	Status game.PlayerStatus
	Game   *game.Game
}

// LobbyJoin reports the outcome of joining a private lobby. Waiting is set
// when the host polls their own code before an opponent has arrived.
type LobbyJoin struct {
	Game    *game.Game
	Waiting bool
}

// FindMatchOrEnqueue pairs the caller with the earliest waiting public player,
// or parks them in the queue when nobody is waiting. The find-and-pair step
// runs inside one transaction so two concurrent calls cannot both claim the
// same waiting player.
func (s *MatchmakingService) FindMatchOrEnqueue(ctx context.Context, playerID int64) (*MatchResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.players.EnsurePlayerTx(ctx, tx, playerID); err != nil {
		return nil, err
	}
	p, err := s.players.GetPlayerTx(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}
	if p.Status == game.PlayerPlaying || p.Status == game.PlayerSearching {
		return nil, apperr.Conflict("player %d already playing or searching", playerID)
	}

	waiting, err := s.games.FindWaitingPlayerTx(ctx, tx, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.enqueueTx(ctx, tx, playerID); err != nil {
			return nil, err
		}
		return &MatchResult{Queued: true}, tx.Commit()
	}
	if err != nil {
		return nil, err
	}

	g, err := s.createGameTx(ctx, tx, waiting.PlayerID, playerID, nil)
	if err != nil {
		return nil, err
	}
	return &MatchResult{Game: g}, tx.Commit()
}

// Enqueue inserts the caller into the public queue. Calling it while already
// searching is a caller error and fails on the queue's primary key.
func (s *MatchmakingService) Enqueue(ctx context.Context, playerID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.players.EnsurePlayerTx(ctx, tx, playerID); err != nil {
		return err
	}
	if err := s.enqueueTx(ctx, tx, playerID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *MatchmakingService) enqueueTx(ctx context.Context, tx *sqlx.Tx, playerID int64) error {
	entry := &game.QueueEntry{PlayerID: playerID, JoinedAt: time.Now().UTC()}
	if err := s.games.EnqueueTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to enqueue player %d: %w", playerID, err)
	}
	return s.players.SetStatusTx(ctx, tx, game.PlayerSearching, playerID)
}

// Status reports the player's matchmaking state. A searching player whose
// queue entry is older than the matchmaking timeout is moved back to idle
// right here; no background job does this.
func (s *MatchmakingService) Status(ctx context.Context, playerID int64) (*QueueStatus, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := s.players.GetPlayerTx(ctx, tx, playerID)
	if err != nil {
		return nil, notFoundOr(err, "player %d not found", playerID)
	}

	switch p.Status {
	case game.PlayerPlaying:
		g, err := s.games.LatestGameForPlayerTx(ctx, tx, playerID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return &QueueStatus{Status: p.Status, Game: g}, tx.Commit()

	case game.PlayerSearching:
		entry, err := s.games.GetQueueEntryTx(ctx, tx, playerID)
		if errors.Is(err, sql.ErrNoRows) {
			return &QueueStatus{Status: p.Status}, tx.Commit()
		}
		if err != nil {
			return nil, err
		}
		if time.Since(entry.JoinedAt) > matchmakingTimeout {
			if err := s.players.SetStatusTx(ctx, tx, game.PlayerIdle, playerID); err != nil {
				return nil, err
			}
			if err := s.games.DeleteQueueEntriesTx(ctx, tx, playerID); err != nil {
				return nil, err
			}
			return &QueueStatus{Status: game.PlayerIdle}, tx.Commit()
		}
	}

	return &QueueStatus{Status: p.Status}, tx.Commit()
}

// Cancel idempotently takes the player out of the queue and back to idle.
func (s *MatchmakingService) Cancel(ctx context.Context, playerID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.players.EnsurePlayerTx(ctx, tx, playerID); err != nil {
		return err
	}
	if err := s.players.SetStatusTx(ctx, tx, game.PlayerIdle, playerID); err != nil {
		return err
	}
	if err := s.games.DeleteQueueEntriesTx(ctx, tx, playerID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateGame seats two distinct players into a ready game.
func (s *MatchmakingService) CreateGame(ctx context.Context, player1, player2 int64, lobbyCode *string) (*game.Game, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.players.EnsurePlayerTx(ctx, tx, player1); err != nil {
		return nil, err
	}
	if err := s.players.EnsurePlayerTx(ctx, tx, player2); err != nil {
		return nil, err
	}
	g, err := s.createGameTx(ctx, tx, player1, player2, lobbyCode)
	if err != nil {
		return nil, err
	}
	return g, tx.Commit()
}

func (s *MatchmakingService) createGameTx(ctx context.Context, tx *sqlx.Tx, player1, player2 int64, lobbyCode *string) (*game.Game, error) {
	if player1 == player2 {
		return nil, apperr.Validation("duplicate player")
	}

	g := &game.Game{
		LobbyCode: lobbyCode,
		Player1ID: &player1,
		Player2ID: &player2,
		Status:    game.StatusReady,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.games.InsertGameTx(ctx, tx, g); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	if err := s.players.SetStatusTx(ctx, tx, game.PlayerPlaying, player1, player2); err != nil {
		return nil, err
	}
	// Both sides leave the queue, not just the initiator.
	if err := s.games.DeleteQueueEntriesTx(ctx, tx, player1, player2); err != nil {
		return nil, err
	}
	return g, nil
}

// HostLobby creates a private, code-addressed queue entry and returns it.
func (s *MatchmakingService) HostLobby(ctx context.Context, playerID int64) (*game.QueueEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.players.EnsurePlayerTx(ctx, tx, playerID); err != nil {
		return nil, err
	}
	p, err := s.players.GetPlayerTx(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}
	if p.Status == game.PlayerPlaying || p.Status == game.PlayerSearching {
		return nil, apperr.Conflict("player %d already playing or searching", playerID)
	}

	code, err := s.freeLobbyCodeTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	entry := &game.QueueEntry{
		PlayerID:  playerID,
		JoinedAt:  time.Now().UTC(),
		Private:   true,
		LobbyCode: &code,
	}
	if err := s.games.EnqueueTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("failed to host lobby: %w", err)
	}
	if err := s.players.SetStatusTx(ctx, tx, game.PlayerSearching, playerID); err != nil {
		return nil, err
	}
	return entry, tx.Commit()
}

// FetchLobby returns the pending private queue entry for a code, if any.
func (s *MatchmakingService) FetchLobby(ctx context.Context, code string) (*game.QueueEntry, error) {
	entry, err := s.games.GetLobby(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "lobby %q not found", code)
	}
	return entry, nil
}

// FetchPrivateGame returns the game already created for a code, if any. Hosts
// re-poll this to pick up the game once an opponent joined.
func (s *MatchmakingService) FetchPrivateGame(ctx context.Context, code string) (*game.Game, error) {
	g, err := s.games.GetPrivateGame(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "no game for lobby %q", code)
	}
	return g, nil
}

// JoinLobby resolves a lobby code for the caller. Re-joining a code whose
// game already exists returns that game unchanged.
func (s *MatchmakingService) JoinLobby(ctx context.Context, playerID int64, code string) (*LobbyJoin, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.players.EnsurePlayerTx(ctx, tx, playerID); err != nil {
		return nil, err
	}

	g, err := s.games.GetPrivateGameTx(ctx, tx, code)
	if err == nil {
		return &LobbyJoin{Game: g}, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	entry, err := s.games.GetLobbyTx(ctx, tx, code)
	if err != nil {
		return nil, notFoundOr(err, "lobby %q not found", code)
	}
	if entry.PlayerID == playerID {
		return &LobbyJoin{Waiting: true}, tx.Commit()
	}

	p, err := s.players.GetPlayerTx(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}
	if p.Status == game.PlayerPlaying {
		return nil, apperr.Conflict("you are already playing a game")
	}
	if p.Status == game.PlayerSearching {
		return nil, apperr.Conflict("you are already searching for a game")
	}

	created, err := s.createGameTx(ctx, tx, entry.PlayerID, playerID, &code)
	if err != nil {
		return nil, err
	}
	return &LobbyJoin{Game: created}, tx.Commit()
}

func (s *MatchmakingService) freeLobbyCodeTx(ctx context.Context, tx *sqlx.Tx) (string, error) {
	for {
		code := generateLobbyCode()
		_, err := s.games.GetLobbyTx(ctx, tx, code)
		if errors.Is(err, sql.ErrNoRows) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func generateLobbyCode() string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, lobbyCodeLength)
	for i := range b {
		b[i] = hexDigits[rand.Intn(len(hexDigits))]
	}
	return string(b)
}
