package logging_test

import (
	"context"
	"testing"
	"time"

	"shoulderbird/server/logging"
	"shoulderbird/server/logging/sinks"
)

func newMemoryRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.Memory) {
	t.Helper()
	mem := sinks.NewMemory()
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	return router, mem
}

func TestRouterDeliversToSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	router, mem := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "gameplay.run_started",
		Tick:     7,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
	})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected one delivered event, got %d", len(events))
	}
	if events[0].Type != "gameplay.run_started" || events[0].Tick != 7 {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("router must stamp a time on undated events")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, mem := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "gameplay.run_started", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "ranking.storage_failure", Severity: logging.SeverityError})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the error event, got %d", len(events))
	}
	if events[0].Type != "ranking.storage_failure" {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "shoulderbird"}
	router, mem := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "system.session_closed",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"reason": "eof"},
	})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Extra["service"] != "shoulderbird" || events[0].Extra["reason"] != "eof" {
		t.Fatalf("expected merged fields, got %+v", events[0].Extra)
	}
}

func TestRouterIgnoresUntypedAndPostCloseEvents(t *testing.T) {
	cfg := logging.DefaultConfig()
	router, mem := newMemoryRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "gameplay.run_started", Severity: logging.SeverityInfo})

	if got := len(mem.Events()); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
}

func TestRouterCountsDropsWhenSaturated(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.BufferSize = 1
	cfg.DropWarnInterval = time.Hour

	// A sink that blocks until released forces the queue to back up.
	release := make(chan struct{})
	blocker := blockingSink{release: release}
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "slow", Sink: blocker}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	for i := 0; i < 5000; i++ {
		router.Publish(context.Background(), logging.Event{Type: "gameplay.run_started", Severity: logging.SeverityInfo})
	}
	close(release)
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	stats := router.Stats()
	if stats.DroppedTotal == 0 {
		t.Fatalf("expected saturation to drop events, stats %+v", stats)
	}
	if stats.EventsTotal == 0 {
		t.Fatalf("expected some events to get through, stats %+v", stats)
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Write(logging.Event) error {
	<-s.release
	return nil
}

func (s blockingSink) Close(context.Context) error { return nil }
