package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pongline/matchcore/internal/httputil"
	"github.com/pongline/matchcore/internal/middleware"
	"github.com/pongline/matchcore/internal/notify"
	"github.com/pongline/matchcore/internal/service"
)

type deps struct {
	matchmaking *service.MatchmakingService
	ready       *service.ReadyService
	games       *service.GameService
	tournaments *service.TournamentService
	hub         *notify.SSEHub
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func newRouter(d *deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/games", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			games, err := d.games.List(r.Context())
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: games})
		})

		r.Get("/queue", func(w http.ResponseWriter, r *http.Request) {
			queue, err := d.games.Queue(r.Context())
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: queue})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.TrustedUser)

			r.Post("/matchmaking", func(w http.ResponseWriter, r *http.Request) {
				playerID, _ := middleware.UserIDFromContext(r.Context())
				res, err := d.matchmaking.FindMatchOrEnqueue(r.Context(), playerID)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				if res.Queued {
					httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Player added to queue, waiting for other player to join"})
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Data: res.Game, Message: "Game created, connect to gameserver"})
			})

			r.Get("/matchmaking", func(w http.ResponseWriter, r *http.Request) {
				playerID, _ := middleware.UserIDFromContext(r.Context())
				status, err := d.matchmaking.Status(r.Context(), playerID)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Data: status})
			})

			r.Put("/matchmaking/cancel", func(w http.ResponseWriter, r *http.Request) {
				playerID, _ := middleware.UserIDFromContext(r.Context())
				if err := d.matchmaking.Cancel(r.Context(), playerID); err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Message: "player removed from game queue"})
			})

			r.Post("/host", func(w http.ResponseWriter, r *http.Request) {
				playerID, _ := middleware.UserIDFromContext(r.Context())
				entry, err := d.matchmaking.HostLobby(r.Context(), playerID)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Data: entry, Message: "Player created private game"})
			})

			r.Post("/joinlobby", func(w http.ResponseWriter, r *http.Request) {
				playerID, _ := middleware.UserIDFromContext(r.Context())
				var body struct {
					LobbyCode string `json:"lobby_code"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.LobbyCode == "" {
					httputil.BadRequest(w, "lobby_code is required", err)
					return
				}
				res, err := d.matchmaking.JoinLobby(r.Context(), playerID, body.LobbyCode)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				if res.Waiting {
					httputil.JSON(w, http.StatusOK, response{Success: false, Message: "Waiting for your opponent to join..."})
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Data: res.Game, Message: "Game created, connect to gameserver"})
			})

			r.Post("/ready", func(w http.ResponseWriter, r *http.Request) {
				playerID, _ := middleware.UserIDFromContext(r.Context())
				var body struct {
					GameID int64 `json:"game_id"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GameID == 0 {
					httputil.BadRequest(w, "game_id is required", err)
					return
				}
				status, err := d.ready.SetReady(r.Context(), body.GameID, playerID)
				if err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Data: status})
			})
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			g, err := d.games.Get(r.Context(), id)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: g})
		})

		r.Get("/{id}/ready", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			status, err := d.ready.Status(r.Context(), id)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: status})
		})

		r.Put("/{id}/score", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			var body struct {
				ScorePlayer1 int `json:"score_player1"`
				ScorePlayer2 int `json:"score_player2"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "invalid score payload", err)
				return
			}
			if err := d.games.UpdateScore(r.Context(), id, body.ScorePlayer1, body.ScorePlayer2); err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Game updated"})
		})

		// Called by the play engine once a match concludes.
		r.Put("/{id}/finish", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			var body struct {
				WinnerID     int64     `json:"winner_id"`
				ScorePlayer1 int       `json:"score_player1"`
				ScorePlayer2 int       `json:"score_player2"`
				FinishedAt   time.Time `json:"finished_at"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "invalid finish payload", err)
				return
			}
			if body.FinishedAt.IsZero() {
				body.FinishedAt = time.Now().UTC()
			}
			err := d.games.Finish(r.Context(), id, body.ScorePlayer1, body.ScorePlayer2, body.WinnerID, body.FinishedAt)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Game finished"})
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			if err := d.games.Delete(r.Context(), id); err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Game deleted"})
		})
	})

	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			tournaments, err := d.tournaments.List(r.Context())
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: tournaments})
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name            string `json:"name"`
				Description     string `json:"description"`
				MaxParticipants int    `json:"max_participants"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
				httputil.BadRequest(w, "name and max_participants are required", err)
				return
			}
			t, err := d.tournaments.Create(r.Context(), body.Name, body.Description, body.MaxParticipants)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, response{Success: true, Data: t, Message: "Tournament created"})
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			t, err := d.tournaments.Get(r.Context(), id)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: t})
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			if err := d.tournaments.Delete(r.Context(), id); err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Tournament deleted"})
		})

		r.Post("/{id}/start", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			if err := d.tournaments.Start(r.Context(), id); err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Tournament started"})
		})

		r.Get("/{id}/games", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			games, err := d.tournaments.Games(r.Context(), id)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: games})
		})

		r.Get("/{id}/participants", func(w http.ResponseWriter, r *http.Request) {
			id, ok := pathID(w, r)
			if !ok {
				return
			}
			participants, err := d.tournaments.Participants(r.Context(), id)
			if err != nil {
				httputil.Error(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, response{Success: true, Data: participants})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.TrustedUser)

			r.Post("/{id}/join", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r)
				if !ok {
					return
				}
				userID, _ := middleware.UserIDFromContext(r.Context())
				if err := d.tournaments.Join(r.Context(), id, userID); err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Player joined tournament"})
			})

			r.Post("/{id}/leave", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r)
				if !ok {
					return
				}
				userID, _ := middleware.UserIDFromContext(r.Context())
				if err := d.tournaments.Leave(r.Context(), id, userID); err != nil {
					httputil.Error(w, err)
					return
				}
				httputil.JSON(w, http.StatusOK, response{Success: true, Message: "Player left tournament"})
			})
		})
	})

	r.With(middleware.TrustedUser).Get("/events", func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserIDFromContext(r.Context())
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		connID, events := d.hub.Register(userID)
		defer d.hub.Unregister(connID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	})

	return r
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "invalid id", err)
		return 0, false
	}
	return id, true
}
