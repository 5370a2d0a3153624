// Package net wires the wire protocol: JSON routes for the ranking service
// and the websocket intake for the pose-controlled game sessions.
package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"shoulderbird/server/internal/hub"
	"shoulderbird/server/internal/rank"
	"shoulderbird/server/internal/telemetry"
)

type HandlerConfig struct {
	ClientDir string
	Logger    telemetry.Logger
}

type scoreRequest struct {
	Name  string `json:"name"`
	Score *int   `json:"score"`
}

type scoreResponse struct {
	MadeLeaderboard bool         `json:"madeLeaderboard"`
	Percentile      int          `json:"percentile"`
	Rank            *int         `json:"rank"`
	Leaderboard     []rank.Entry `json:"leaderboard"`
}

type leaderboardResponse struct {
	Leaderboard []rank.Entry `json:"leaderboard"`
}

type statsResponse struct {
	TotalGames int64 `json:"totalGames"`
	TopScore   int   `json:"topScore"`
}

func NewHTTPHandler(gameHub *hub.Hub, ranking *rank.Service, cfg HandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/api/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/leaderboard", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		board, err := ranking.List(r.Context())
		if err != nil {
			logger.Printf("leaderboard list failed: %v", err)
			httpError(w, "leaderboard unavailable", nethttp.StatusInternalServerError)
			return
		}
		if board == nil {
			board = []rank.Entry{}
		}
		writeJSON(w, leaderboardResponse{Leaderboard: board})
	})

	mux.HandleFunc("/api/score", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req scoreRequest
		if r.Body == nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		if req.Score == nil {
			httpError(w, "score is required", nethttp.StatusBadRequest)
			return
		}

		result, err := ranking.Submit(r.Context(), req.Name, *req.Score)
		if err != nil {
			switch {
			case errors.Is(err, rank.ErrValidation):
				httpError(w, err.Error(), nethttp.StatusBadRequest)
			default:
				logger.Printf("score submit failed: %v", err)
				httpError(w, "ranking unavailable", nethttp.StatusInternalServerError)
			}
			return
		}

		resp := scoreResponse{
			MadeLeaderboard: result.MadeLeaderboard,
			Percentile:      result.Percentile,
			Leaderboard:     result.Leaderboard,
		}
		if result.MadeLeaderboard {
			rankCopy := result.Rank
			resp.Rank = &rankCopy
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/api/stats", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		stats, err := ranking.Stats(r.Context())
		if err != nil {
			logger.Printf("stats failed: %v", err)
			httpError(w, "stats unavailable", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, statsResponse{TotalGames: stats.TotalGames, TopScore: stats.TopScore})
	})

	mux.HandleFunc("/api/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		httpError(w, "not found", nethttp.StatusNotFound)
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, struct {
			Status     string                `json:"status"`
			ServerTime int64                 `json:"serverTime"`
			Sessions   int                   `json:"sessions"`
			TickRate   int                   `json:"tickRate"`
			Telemetry  hub.TelemetrySnapshot `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Sessions:   gameHub.SessionCount(),
			TickRate:   gameHub.TickRate(),
			Telemetry:  gameHub.TelemetrySnapshot(),
		})
	})

	mux.HandleFunc("/ws", serveWS(gameHub, logger))

	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	} else {
		// No static client to serve; keep unknown routes on the JSON error
		// shape instead of the stdlib plain-text 404.
		mux.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			httpError(w, "not found", nethttp.StatusNotFound)
		})
	}

	return withCORS(mux)
}

// withCORS adds the permissive cross-origin headers every response carries
// and short-circuits preflight requests.
func withCORS(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == nethttp.MethodOptions {
			w.WriteHeader(nethttp.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]string{"error": strings.TrimSpace(message)}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	w.Write(data)
}
