// Package app assembles the server from environment configuration: logging
// router, ranking storage, session hub, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"shoulderbird/server/internal/hub"
	servernet "shoulderbird/server/internal/net"
	"shoulderbird/server/internal/rank"
	"shoulderbird/server/internal/rankclient"
	"shoulderbird/server/internal/sim"
	"shoulderbird/server/internal/telemetry"
	"shoulderbird/server/logging"
	loggingSinks "shoulderbird/server/logging/sinks"
)

type Config struct {
	Logger telemetry.Logger
}

// Run starts the server and blocks until the listener fails or ctx is
// cancelled. Configuration comes from the environment; a .env file in the
// working directory is loaded first when present.
func Run(ctx context.Context, cfg Config) error {
	_ = godotenv.Load()

	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	router, err := buildRouter()
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	store, cleanup, err := buildStore(ctx, telemetryLogger)
	if err != nil {
		return err
	}
	defer cleanup()

	ranking := rank.NewService(store, router)

	hubCfg := hub.DefaultConfig()
	hubCfg.Logger = telemetryLogger
	if raw := os.Getenv("TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			hubCfg.TickRate = value
		} else {
			telemetryLogger.Printf("invalid TICK_RATE=%q: %v", raw, err)
		}
	}
	if path := os.Getenv("TUNING_FILE"); path != "" {
		tuning, err := sim.LoadTuning(path)
		if err != nil {
			return fmt.Errorf("failed to load tuning from %s: %w", path, err)
		}
		hubCfg.Tuning = tuning
	}
	hubCfg.BestDir = os.Getenv("BEST_DIR")

	boards := buildBoardCache(ranking)

	gameHub := hub.New(hubCfg, router, boards)
	stop := make(chan struct{})
	go gameHub.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(gameHub, ranking, servernet.HandlerConfig{
		ClientDir: os.Getenv("CLIENT_DIR"),
		Logger:    telemetryLogger,
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: handler}
	telemetryLogger.Printf("server listening on %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

// buildRouter assembles the async event router from LOG_SINKS. Unknown sink
// names fail loudly rather than silently dropping events.
func buildRouter() (*logging.Router, error) {
	logCfg := logging.DefaultConfig()
	if raw := os.Getenv("LOG_SINKS"); raw != "" {
		logCfg.EnabledSinks = splitAndTrim(raw)
	}
	if path := os.Getenv("LOG_JSON_PATH"); path != "" {
		logCfg.JSON.FilePath = path
	}

	var named []logging.NamedSink
	for _, name := range logCfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsole(os.Stdout, logCfg.Console)})
		case "json":
			w := os.Stdout
			if logCfg.JSON.FilePath != "" {
				f, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return nil, fmt.Errorf("failed to open log file %s: %w", logCfg.JSON.FilePath, err)
				}
				w = f
			}
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(w, logCfg.JSON.FlushInterval)})
		case "memory":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemory()})
		default:
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}

	return logging.NewRouter(logging.SystemClock{}, logCfg, named)
}

// buildStore picks Postgres when DATABASE_URL is set, otherwise the
// in-memory store. The returned cleanup closes the pool if one was opened.
func buildStore(ctx context.Context, logger telemetry.Logger) (rank.Store, func(), error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Printf("DATABASE_URL unset, ranking state is in-memory only")
		return rank.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	store := rank.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ensure ranking schema: %w", err)
	}
	return store, pool.Close, nil
}

// buildBoardCache wires the leaderboard cache for game-over frames. By
// default it reads the local service; RANKING_URL points it at a remote
// ranking deployment instead.
func buildBoardCache(local *rank.Service) *rankclient.Cache {
	ttl := rankclient.DefaultTTL
	if raw := os.Getenv("RANKING_CACHE_TTL_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			ttl = time.Duration(value) * time.Millisecond
		}
	}
	if baseURL := os.Getenv("RANKING_URL"); baseURL != "" {
		return rankclient.NewCache(rankclient.New(baseURL, 0), ttl)
	}
	return rankclient.NewCache(local, ttl)
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}
