package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/game"
	"github.com/pongline/matchcore/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTx(t *testing.T, db *sqlx.DB, fn func(tx *sqlx.Tx)) {
	t.Helper()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestInsertAndGetGame(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	ctx := context.Background()

	g := &game.Game{
		Player1ID: utils.Ptr(int64(1)),
		Player2ID: utils.Ptr(int64(2)),
		Status:    game.StatusReady,
		CreatedAt: time.Now().UTC(),
	}
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.InsertGameTx(ctx, tx, g))
	})
	require.NotZero(t, g.ID)

	fetched, err := store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, fetched.ID)
	assert.Equal(t, int64(1), *fetched.Player1ID)
	assert.Equal(t, int64(2), *fetched.Player2ID)
	assert.Equal(t, game.StatusReady, fetched.Status)
	assert.Nil(t, fetched.WinnerID)
	assert.Nil(t, fetched.TournamentID)
	assert.WithinDuration(t, g.CreatedAt, fetched.CreatedAt, time.Second)
}

func TestQueueOrdering(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	players := NewPlayerStore(db)
	ctx := context.Background()
	base := time.Now().UTC()

	inTx(t, db, func(tx *sqlx.Tx) {
		for i, entry := range []game.QueueEntry{
			{PlayerID: 10, JoinedAt: base.Add(2 * time.Second)},
			{PlayerID: 11, JoinedAt: base},
			{PlayerID: 12, JoinedAt: base.Add(time.Second), Private: true, LobbyCode: utils.Ptr("aabbccddee")},
		} {
			require.NoError(t, players.EnsurePlayerTx(ctx, tx, entry.PlayerID))
			e := entry
			require.NoError(t, store.EnqueueTx(ctx, tx, &e), "entry %d", i)
		}
	})

	// Earliest-joined public entry wins; private lobbies are never matched.
	inTx(t, db, func(tx *sqlx.Tx) {
		waiting, err := store.FindWaitingPlayerTx(ctx, tx, 99)
		require.NoError(t, err)
		assert.Equal(t, int64(11), waiting.PlayerID)

		// The caller's own entry is excluded.
		waiting, err = store.FindWaitingPlayerTx(ctx, tx, 11)
		require.NoError(t, err)
		assert.Equal(t, int64(10), waiting.PlayerID)
	})

	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.DeleteQueueEntriesTx(ctx, tx, 10, 11))
	})
	inTx(t, db, func(tx *sqlx.Tx) {
		_, err := store.FindWaitingPlayerTx(ctx, tx, 99)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	queue, err := store.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.True(t, queue[0].Private)
	assert.Equal(t, "aabbccddee", *queue[0].LobbyCode)
}

func TestGetLobbyAndPrivateGame(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	players := NewPlayerStore(db)
	ctx := context.Background()
	code := "0123456789"

	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, players.EnsurePlayerTx(ctx, tx, 5))
		entry := &game.QueueEntry{PlayerID: 5, JoinedAt: time.Now().UTC(), Private: true, LobbyCode: &code}
		require.NoError(t, store.EnqueueTx(ctx, tx, entry))
	})

	entry, err := store.GetLobby(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int64(5), entry.PlayerID)

	_, err = store.GetPrivateGame(ctx, code)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	g := &game.Game{
		LobbyCode: &code,
		Player1ID: utils.Ptr(int64(5)),
		Player2ID: utils.Ptr(int64(6)),
		Status:    game.StatusReady,
		CreatedAt: time.Now().UTC(),
	}
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.InsertGameTx(ctx, tx, g))
	})

	found, err := store.GetPrivateGame(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)
}

func TestNextOpenGameOrdering(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	tournaments := NewTournamentStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	tn := newTestTournament(t, tournaments, 4)

	games := []game.Game{
		{TournamentID: &tn.ID, Round: utils.Ptr(2), Status: game.StatusPending, CreatedAt: now},
		{TournamentID: &tn.ID, Round: utils.Ptr(2), Status: game.StatusPending, CreatedAt: now},
	}
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.CreateGamesTx(ctx, tx, games))
	})

	all, err := store.GetTournamentGames(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Seat player1 of the earliest placeholder; the next open seat must still
	// be that same game's player2 slot.
	first := all[0]
	first.Player1ID = utils.Ptr(int64(42))
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.UpdateGameTx(ctx, tx, &first))
	})

	inTx(t, db, func(tx *sqlx.Tx) {
		open, err := store.NextOpenGameTx(ctx, tx, tn.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, first.ID, open.ID)

		count, err := store.CountRoundGamesTx(ctx, tx, tn.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = store.CountRoundGamesTx(ctx, tx, tn.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestActiveGameForPlayer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewGameStore(db)
	ctx := context.Background()

	_, err := store.ActiveGameForPlayer(ctx, 7)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	g := &game.Game{
		Player1ID: utils.Ptr(int64(7)),
		Player2ID: utils.Ptr(int64(8)),
		Status:    game.StatusReady,
		CreatedAt: time.Now().UTC(),
	}
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.InsertGameTx(ctx, tx, g))
	})

	active, err := store.ActiveGameForPlayer(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, g.ID, active.ID)

	g.Status = game.StatusFinished
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.UpdateGameTx(ctx, tx, g))
	})

	_, err = store.ActiveGameForPlayer(ctx, 7)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
