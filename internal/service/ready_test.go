package service

import (
	"context"
	"testing"
	"time"

	"github.com/pongline/matchcore/internal/apperr"
	"github.com/pongline/matchcore/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetReadyMovesGameOngoing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.matchmaking.CreateGame(ctx, 1, 2, nil)
	require.NoError(t, err)

	st, err := e.ready.SetReady(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.True(t, st.Player1Ready)
	assert.False(t, st.Player2Ready)
	assert.False(t, st.AllReady)

	// Still ready until the second player confirms.
	fresh, err := e.games.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusReady, fresh.Status)

	st, err = e.ready.SetReady(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.True(t, st.AllReady)

	fresh, err = e.games.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusOngoing, fresh.Status)
}

func TestSetReadyReverseOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.matchmaking.CreateGame(ctx, 1, 2, nil)
	require.NoError(t, err)

	st, err := e.ready.SetReady(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.True(t, st.Player2Ready)
	assert.False(t, st.AllReady)

	st, err = e.ready.SetReady(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.True(t, st.AllReady)
}

func TestSetReadyOutsider(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.matchmaking.CreateGame(ctx, 1, 2, nil)
	require.NoError(t, err)

	_, err = e.ready.SetReady(ctx, g.ID, 99)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestSetReadyUnknownGame(t *testing.T) {
	e := newEnv(t)

	_, err := e.ready.SetReady(context.Background(), 12345, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestReadyStatusEmptyThenIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.matchmaking.CreateGame(ctx, 1, 2, nil)
	require.NoError(t, err)

	st, err := e.ready.Status(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, st.Player1Ready)
	assert.False(t, st.Player2Ready)

	_, err = e.ready.SetReady(ctx, g.ID, 1)
	require.NoError(t, err)
	st, err = e.ready.SetReady(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.True(t, st.Player1Ready)
	assert.False(t, st.AllReady)
}

func TestFinishPurgesReadyTally(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.matchmaking.CreateGame(ctx, 1, 2, nil)
	require.NoError(t, err)

	_, err = e.ready.SetReady(ctx, g.ID, 1)
	require.NoError(t, err)
	_, err = e.ready.SetReady(ctx, g.ID, 2)
	require.NoError(t, err)

	require.NoError(t, e.gameSvc.Finish(ctx, g.ID, 5, 3, 1, time.Now().UTC()))

	st, err := e.ready.Status(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, st.Player1Ready)
	assert.False(t, st.Player2Ready)
}
