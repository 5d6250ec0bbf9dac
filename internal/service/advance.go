package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/apperr"
	"github.com/pongline/matchcore/internal/game"
	"github.com/pongline/matchcore/internal/store"
	"github.com/pongline/matchcore/internal/tournament"
	"github.com/pongline/matchcore/internal/utils"
)

// Score awarded against a forfeited opponent.
const walkoverScore = 5

// GameCanceler voids an in-flight game when one of its players withdraws.
// The live play engine can be wrapped behind this to also tear down the
// running match.
type GameCanceler interface {
	CancelGame(ctx context.Context, g *game.Game) error
}

// AdvanceService threads winners of finished tournament games into the
// correct next-round slot, handling forfeits by walkover.
type AdvanceService struct {
	db          *sqlx.DB
	games       *store.GameStore
	players     *store.PlayerStore
	tournaments *store.TournamentStore
	canceler    GameCanceler
}

func NewAdvanceService(db *sqlx.DB, games *store.GameStore, players *store.PlayerStore, tournaments *store.TournamentStore, canceler GameCanceler) *AdvanceService {
	return &AdvanceService{db: db, games: games, players: players, tournaments: tournaments, canceler: canceler}
}

// Advance loads a finished game and resolves its winner's next slot in one
// transaction.
func (s *AdvanceService) Advance(ctx context.Context, gameID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	g, err := s.games.GetGameTx(ctx, tx, gameID)
	if err != nil {
		return notFoundOr(err, "game %d not found", gameID)
	}
	if err := s.AdvanceTx(ctx, tx, g); err != nil {
		return err
	}
	return tx.Commit()
}

// AdvanceTx is the transactional core, shared with GameService.Finish so the
// finish and the seat assignment commit together.
func (s *AdvanceService) AdvanceTx(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	if g.TournamentID == nil || g.WinnerID == nil {
		return nil
	}
	tournamentID := *g.TournamentID
	winnerID := *g.WinnerID
	nextRound := utils.OrZero(g.Round) + 1

	count, err := s.games.CountRoundGamesTx(ctx, tx, tournamentID, nextRound)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.finishTournamentTx(ctx, tx, tournamentID, winnerID)
	}

	next, err := s.games.NextOpenGameTx(ctx, tx, tournamentID, nextRound)
	if errors.Is(err, sql.ErrNoRows) {
		// Every next-round slot already seated; nothing left to thread.
		return nil
	}
	if err != nil {
		return err
	}

	if next.Player1ID == nil {
		// First arrival: seat the winner and wait for the paired feeder.
		next.Player1ID = &winnerID
		return s.games.UpdateGameTx(ctx, tx, next)
	}

	// Second arrival. Check both feeders for forfeits before seating.
	seatedID := *next.Player1ID
	seatedLeft, err := s.tournaments.UserLeftTx(ctx, tx, tournamentID, seatedID)
	if err != nil {
		return err
	}
	winnerLeft, err := s.tournaments.UserLeftTx(ctx, tx, tournamentID, winnerID)
	if err != nil {
		return err
	}

	switch {
	case seatedLeft && winnerLeft:
		slog.Error("both bracket feeders forfeited",
			"tournament_id", tournamentID, "game_id", next.ID)
		return apperr.Internal("both feeders of game %d in tournament %d forfeited", next.ID, tournamentID)

	case seatedLeft || winnerLeft:
		next.Player2ID = &winnerID
		survivor := winnerID
		if winnerLeft {
			survivor = seatedID
		}
		score1, score2 := walkoverScore, 0
		if *next.Player1ID != survivor {
			score1, score2 = 0, walkoverScore
		}
		now := time.Now().UTC()
		next.ScorePlayer1 = &score1
		next.ScorePlayer2 = &score2
		next.WinnerID = &survivor
		next.Status = game.StatusFinished
		next.FinishedAt = &now
		if err := s.games.UpdateGameTx(ctx, tx, next); err != nil {
			return err
		}
		// A walkover finish feeds the following round like any other finish,
		// so consecutive byes cascade until a real opponent appears.
		return s.AdvanceTx(ctx, tx, next)

	default:
		next.Player2ID = &winnerID
		next.Status = game.StatusReady
		return s.games.UpdateGameTx(ctx, tx, next)
	}
}

// finishTournamentTx closes out the bracket after the final. Re-invoking for
// an already finished tournament is a no-op.
func (s *AdvanceService) finishTournamentTx(ctx context.Context, tx *sqlx.Tx, tournamentID, winnerID int64) error {
	t, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return notFoundOr(err, "tournament %d not found", tournamentID)
	}
	if t.Status == tournament.StatusFinished {
		return nil
	}
	return s.tournaments.FinishTournamentTx(ctx, tx, tournamentID, winnerID, time.Now().UTC())
}

// RemoveFromActiveGame voids whatever unfinished game still seats the user,
// so a withdrawal never leaves a match dangling.
func (s *AdvanceService) RemoveFromActiveGame(ctx context.Context, userID int64) error {
	g, err := s.games.ActiveGameForPlayer(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.canceler.CancelGame(ctx, g)
}

// StoreCanceler is the default GameCanceler: it marks the game cancelled and
// releases both seats.
type StoreCanceler struct {
	db      *sqlx.DB
	games   *store.GameStore
	players *store.PlayerStore
}

func NewStoreCanceler(db *sqlx.DB, games *store.GameStore, players *store.PlayerStore) *StoreCanceler {
	return &StoreCanceler{db: db, games: games, players: players}
}

func (c *StoreCanceler) CancelGame(ctx context.Context, g *game.Game) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	g.Status = game.StatusCancelled
	if err := c.games.UpdateGameTx(ctx, tx, g); err != nil {
		return err
	}
	if err := c.players.SetStatusTx(ctx, tx, game.PlayerIdle, seatedIDs(g)...); err != nil {
		return err
	}
	return tx.Commit()
}

func seatedIDs(g *game.Game) []int64 {
	var ids []int64
	if g.Player1ID != nil {
		ids = append(ids, *g.Player1ID)
	}
	if g.Player2ID != nil {
		ids = append(ids, *g.Player2ID)
	}
	return ids
}
