package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/tournament"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, t *tournament.Tournament) error {
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO tournaments (name, description, max_participants, status, created_at)
		VALUES (:name, :description, :max_participants, :status, :created_at)`, t)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id int64) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := s.db.GetContext(ctx, &t, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id int64) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := tx.GetContext(ctx, &t, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]tournament.Tournament, error) {
	var tournaments []tournament.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC, id DESC")
	return tournaments, err
}

func (s *TournamentStore) DeleteTournament(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TournamentStore) SetStatusTx(ctx context.Context, tx *sqlx.Tx, id int64, status tournament.Status) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ?", status, id)
	return err
}

func (s *TournamentStore) FinishTournamentTx(ctx context.Context, tx *sqlx.Tx, id, winnerID int64, endDate time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET status = ?, winner_id = ?, end_date = ? WHERE id = ?",
		tournament.StatusFinished, winnerID, endDate, id)
	return err
}

// Participants.

// AddParticipant is idempotent: re-joining an already joined tournament is a
// silent no-op.
func (s *TournamentStore) AddParticipant(ctx context.Context, tournamentID, userID int64, joinedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO tournament_participants (tournament_id, user_id, joined_at)
		VALUES (?, ?, ?)`, tournamentID, userID, joinedAt)
	return err
}

func (s *TournamentStore) GetParticipantTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID int64) (*tournament.Participant, error) {
	var p tournament.Participant
	err := tx.GetContext(ctx, &p, "SELECT * FROM tournament_participants WHERE tournament_id = ? AND user_id = ?",
		tournamentID, userID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *TournamentStore) ListParticipants(ctx context.Context, tournamentID int64) ([]tournament.Participant, error) {
	var participants []tournament.Participant
	err := s.db.SelectContext(ctx, &participants, `SELECT * FROM tournament_participants
		WHERE tournament_id = ? ORDER BY joined_at ASC, id ASC`, tournamentID)
	return participants, err
}

func (s *TournamentStore) ListParticipantsTx(ctx context.Context, tx *sqlx.Tx, tournamentID int64) ([]tournament.Participant, error) {
	var participants []tournament.Participant
	err := tx.SelectContext(ctx, &participants, `SELECT * FROM tournament_participants
		WHERE tournament_id = ? ORDER BY joined_at ASC, id ASC`, tournamentID)
	return participants, err
}

func (s *TournamentStore) DeleteParticipantTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM tournament_participants WHERE tournament_id = ? AND user_id = ?",
		tournamentID, userID)
	return err
}

func (s *TournamentStore) SetUserLeftTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournament_participants SET user_left = 1 WHERE tournament_id = ? AND user_id = ?",
		tournamentID, userID)
	return err
}

// UserLeftTx reports whether the participant forfeited the tournament.
func (s *TournamentStore) UserLeftTx(ctx context.Context, tx *sqlx.Tx, tournamentID, userID int64) (bool, error) {
	var left bool
	err := tx.GetContext(ctx, &left, "SELECT user_left FROM tournament_participants WHERE tournament_id = ? AND user_id = ?",
		tournamentID, userID)
	return left, err
}
