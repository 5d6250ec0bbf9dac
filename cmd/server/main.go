package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/pongline/matchcore/internal/db"
	"github.com/pongline/matchcore/internal/notify"
	"github.com/pongline/matchcore/internal/service"
	"github.com/pongline/matchcore/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbPath := os.Getenv("MATCHCORE_DB")
	if dbPath == "" {
		dbPath = "matchcore.db"
	}

	database := db.InitDB(dbPath)
	defer database.Close()

	if err := db.RunMigrations(database.DB, "file://migrations"); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	hub := notify.NewSSEHub()
	gameStore := store.NewGameStore(database)
	playerStore := store.NewPlayerStore(database)
	tournamentStore := store.NewTournamentStore(database)

	resolver := service.NewAdvanceService(database, gameStore, playerStore, tournamentStore,
		service.NewStoreCanceler(database, gameStore, playerStore))
	ready := service.NewReadyService(gameStore)

	d := &deps{
		matchmaking: service.NewMatchmakingService(database, gameStore, playerStore),
		ready:       ready,
		games:       service.NewGameService(database, gameStore, playerStore, ready, resolver),
		tournaments: service.NewTournamentService(database, tournamentStore, gameStore, hub, resolver),
		hub:         hub,
	}

	addr := os.Getenv("MATCHCORE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("Server starting on", addr)
	if err := http.ListenAndServe(addr, newRouter(d)); err != nil {
		log.Fatal(err)
	}
}
