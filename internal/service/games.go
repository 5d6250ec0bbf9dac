package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/apperr"
	"github.com/pongline/matchcore/internal/game"
	"github.com/pongline/matchcore/internal/store"
)

// GameService owns the game lifecycle after pairing: the finish operation and
// plain reads. Finish is the only mutation the live play engine calls back
// into.
type GameService struct {
	db       *sqlx.DB
	games    *store.GameStore
	players  *store.PlayerStore
	ready    *ReadyService
	resolver *AdvanceService
}

func NewGameService(db *sqlx.DB, games *store.GameStore, players *store.PlayerStore, ready *ReadyService, resolver *AdvanceService) *GameService {
	return &GameService{db: db, games: games, players: players, ready: ready, resolver: resolver}
}

// Finish persists the reported result, releases both seats, and, for
// tournament games, threads the winner into the next round within the same
// transaction. Finished games are immutable.
func (s *GameService) Finish(ctx context.Context, gameID int64, score1, score2 int, winnerID int64, finishedAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	g, err := s.games.GetGameTx(ctx, tx, gameID)
	if err != nil {
		return notFoundOr(err, "game %d not found", gameID)
	}
	if g.Status == game.StatusFinished || g.Status == game.StatusCancelled {
		return apperr.Conflict("game %d is already %s", gameID, g.Status)
	}

	g.ScorePlayer1 = &score1
	g.ScorePlayer2 = &score2
	g.WinnerID = &winnerID
	g.Status = game.StatusFinished
	g.FinishedAt = &finishedAt
	if err := s.games.UpdateGameTx(ctx, tx, g); err != nil {
		return fmt.Errorf("failed to finish game %d: %w", gameID, err)
	}

	if err := s.players.SetStatusTx(ctx, tx, game.PlayerIdle, seatedIDs(g)...); err != nil {
		return err
	}

	if g.TournamentID != nil {
		if err := s.resolver.AdvanceTx(ctx, tx, g); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.ready.Forget(gameID)
	return nil
}

func (s *GameService) Get(ctx context.Context, gameID int64) (*game.Game, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, notFoundOr(err, "game %d not found", gameID)
	}
	return g, nil
}

func (s *GameService) List(ctx context.Context) ([]game.Game, error) {
	return s.games.ListGames(ctx)
}

func (s *GameService) Queue(ctx context.Context) ([]game.QueueEntry, error) {
	return s.games.ListQueue(ctx)
}

func (s *GameService) UpdateScore(ctx context.Context, gameID int64, score1, score2 int) error {
	if _, err := s.Get(ctx, gameID); err != nil {
		return err
	}
	return s.games.UpdateScore(ctx, gameID, score1, score2)
}

func (s *GameService) Delete(ctx context.Context, gameID int64) error {
	n, err := s.games.DeleteGame(ctx, gameID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("game %d not found", gameID)
	}
	s.ready.Forget(gameID)
	return nil
}
