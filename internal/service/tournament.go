package service

import (
	"context"
	"fmt"
	"math/bits"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/apperr"
	"github.com/pongline/matchcore/internal/game"
	"github.com/pongline/matchcore/internal/notify"
	"github.com/pongline/matchcore/internal/store"
	"github.com/pongline/matchcore/internal/tournament"
	"github.com/pongline/matchcore/internal/utils"
)

type TournamentService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	games       *store.GameStore
	notifier    notify.Notifier
	resolver    *AdvanceService
}

func NewTournamentService(db *sqlx.DB, tournaments *store.TournamentStore, games *store.GameStore, notifier notify.Notifier, resolver *AdvanceService) *TournamentService {
	return &TournamentService{db: db, tournaments: tournaments, games: games, notifier: notifier, resolver: resolver}
}

// Create stores an open tournament. The power-of-two constraint on the roster
// is checked at start, not here.
func (s *TournamentService) Create(ctx context.Context, name, description string, maxParticipants int) (*tournament.Tournament, error) {
	if maxParticipants <= 0 {
		return nil, apperr.Validation("max_participants must be positive")
	}
	t := &tournament.Tournament{
		Name:            name,
		Description:     description,
		MaxParticipants: maxParticipants,
		Status:          tournament.StatusOpen,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.tournaments.CreateTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *TournamentService) Get(ctx context.Context, id int64) (*tournament.Tournament, error) {
	t, err := s.tournaments.GetTournament(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "tournament %d not found", id)
	}
	return t, nil
}

func (s *TournamentService) List(ctx context.Context) ([]tournament.Tournament, error) {
	return s.tournaments.ListTournaments(ctx)
}

func (s *TournamentService) Delete(ctx context.Context, id int64) error {
	n, err := s.tournaments.DeleteTournament(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("tournament %d not found", id)
	}
	return nil
}

// Join is idempotent: re-joining is a silent no-op.
func (s *TournamentService) Join(ctx context.Context, id, userID int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.tournaments.AddParticipant(ctx, id, userID, time.Now().UTC())
}

// Start validates the roster, announces the tournament, and lays out the
// whole bracket: one ready game per shuffled pair in round one, empty pending
// placeholders for every later round.
func (s *TournamentService) Start(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := s.tournaments.GetTournamentTx(ctx, tx, id)
	if err != nil {
		return notFoundOr(err, "tournament %d not found", id)
	}
	if t.Status != tournament.StatusOpen {
		return apperr.Conflict("tournament %d is %s, not open", id, t.Status)
	}

	participants, err := s.tournaments.ListParticipantsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	n := len(participants)
	if n != t.MaxParticipants {
		return apperr.Validation("tournament not full: need %d participants, have %d", t.MaxParticipants, n)
	}
	if n < 2 || n&(n-1) != 0 {
		return apperr.Validation("participant count %d is not a power of two", n)
	}

	s.notifier.Broadcast(notify.Event{
		Type: "tournament_starting",
		Data: map[string]any{"tournament_id": id, "name": t.Name},
	})

	// Uniform seeding: Fisher-Yates, not sort-by-random.
	order := make([]tournament.Participant, n)
	copy(order, participants)
	rand.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	rounds := bits.Len(uint(n)) - 1
	now := time.Now().UTC()
	bracket := make([]game.Game, 0, n-1)
	for i := 0; i < n; i += 2 {
		bracket = append(bracket, game.Game{
			Player1ID:    utils.Ptr(order[i].UserID),
			Player2ID:    utils.Ptr(order[i+1].UserID),
			TournamentID: utils.Ptr(id),
			Round:        utils.Ptr(1),
			Status:       game.StatusReady,
			CreatedAt:    now,
		})
	}
	for round := 2; round <= rounds; round++ {
		for i := 0; i < 1<<(rounds-round); i++ {
			bracket = append(bracket, game.Game{
				TournamentID: utils.Ptr(id),
				Round:        utils.Ptr(round),
				Status:       game.StatusPending,
				CreatedAt:    now,
			})
		}
	}
	if err := s.games.CreateGamesTx(ctx, tx, bracket); err != nil {
		return fmt.Errorf("failed to create bracket for tournament %d: %w", id, err)
	}

	if err := s.tournaments.SetStatusTx(ctx, tx, id, tournament.StatusOngoing); err != nil {
		return err
	}
	return tx.Commit()
}

// Leave removes a participant. Leaving an ongoing tournament flags the
// forfeit (future opponents win by walkover) and voids any in-flight game;
// leaving an open one just deletes the row; any other status is a no-op.
func (s *TournamentService) Leave(ctx context.Context, id, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := s.tournaments.GetTournamentTx(ctx, tx, id)
	if err != nil {
		return notFoundOr(err, "tournament %d not found", id)
	}
	if _, err := s.tournaments.GetParticipantTx(ctx, tx, id, userID); err != nil {
		return notFoundOr(err, "player %d is not in tournament %d", userID, id)
	}

	switch t.Status {
	case tournament.StatusOngoing:
		if err := s.tournaments.SetUserLeftTx(ctx, tx, id, userID); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		return s.resolver.RemoveFromActiveGame(ctx, userID)

	case tournament.StatusOpen:
		if err := s.tournaments.DeleteParticipantTx(ctx, tx, id, userID); err != nil {
			return err
		}
		return tx.Commit()

	default:
		return tx.Commit()
	}
}

func (s *TournamentService) Participants(ctx context.Context, id int64) ([]tournament.Participant, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.tournaments.ListParticipants(ctx, id)
}

func (s *TournamentService) Games(ctx context.Context, id int64) ([]game.Game, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.games.GetTournamentGames(ctx, id)
}
