package service

import (
	"context"
	"sync"

	"github.com/pongline/matchcore/internal/apperr"
	"github.com/pongline/matchcore/internal/game"
	"github.com/pongline/matchcore/internal/store"
)

// ReadyStatus projects a game's ready-room tally for both seats.
type ReadyStatus struct {
	Player1Ready bool `json:"player1_ready"`
	Player2Ready bool `json:"player2_ready"`
	AllReady     bool `json:"all_ready"`
}

// ReadyService keeps the per-game readiness tally. The tally is process-local
// by design: it only matters between game creation and the first serve, and
// it is purged when the game finishes. Scaling out requires moving it into
// the shared store.
type ReadyService struct {
	games *store.GameStore

	mu    sync.Mutex
	ready map[int64]map[int64]struct{}
}

func NewReadyService(games *store.GameStore) *ReadyService {
	return &ReadyService{
		games: games,
		ready: make(map[int64]map[int64]struct{}),
	}
}

// SetReady records that a seated player is ready and returns the new tally.
// Once both seats are ready the game moves from ready to ongoing.
func (s *ReadyService) SetReady(ctx context.Context, gameID, playerID int64) (*ReadyStatus, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, notFoundOr(err, "game %d not found", gameID)
	}
	if !g.Seats(playerID) {
		return nil, apperr.Forbidden("player %d is not seated in game %d", playerID, gameID)
	}

	s.mu.Lock()
	set := s.ready[gameID]
	if set == nil {
		set = make(map[int64]struct{})
		s.ready[gameID] = set
	}
	set[playerID] = struct{}{}
	status := project(g, set)
	s.mu.Unlock()

	if status.AllReady && g.Status == game.StatusReady {
		if err := s.games.SetStatus(ctx, gameID, game.StatusOngoing); err != nil {
			return nil, err
		}
	}
	return status, nil
}

// Status is the read-only projection; a game nobody touched yet reports an
// empty tally.
func (s *ReadyService) Status(ctx context.Context, gameID int64) (*ReadyStatus, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, notFoundOr(err, "game %d not found", gameID)
	}

	s.mu.Lock()
	status := project(g, s.ready[gameID])
	s.mu.Unlock()
	return status, nil
}

// Forget drops the tally for a finished game.
func (s *ReadyService) Forget(gameID int64) {
	s.mu.Lock()
	delete(s.ready, gameID)
	s.mu.Unlock()
}

func project(g *game.Game, set map[int64]struct{}) *ReadyStatus {
	var status ReadyStatus
	if g.Player1ID != nil {
		_, status.Player1Ready = set[*g.Player1ID]
	}
	if g.Player2ID != nil {
		_, status.Player2Ready = set[*g.Player2ID]
	}
	status.AllReady = status.Player1Ready && status.Player2Ready
	return &status
}
