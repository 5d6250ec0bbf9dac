package service

import (
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/pongline/matchcore/internal/notify"
	"github.com/pongline/matchcore/internal/store"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type env struct {
	db          *sqlx.DB
	games       *store.GameStore
	players     *store.PlayerStore
	tournaments *store.TournamentStore
	hub         *notify.SSEHub

	matchmaking *MatchmakingService
	ready       *ReadyService
	gameSvc     *GameService
	tournament  *TournamentService
	resolver    *AdvanceService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	games := store.NewGameStore(db)
	players := store.NewPlayerStore(db)
	tournaments := store.NewTournamentStore(db)
	hub := notify.NewSSEHub()

	resolver := NewAdvanceService(db, games, players, tournaments, NewStoreCanceler(db, games, players))
	ready := NewReadyService(games)

	return &env{
		db:          db,
		games:       games,
		players:     players,
		tournaments: tournaments,
		hub:         hub,
		matchmaking: NewMatchmakingService(db, games, players),
		ready:       ready,
		gameSvc:     NewGameService(db, games, players, ready, resolver),
		tournament:  NewTournamentService(db, tournaments, games, hub, resolver),
		resolver:    resolver,
	}
}
