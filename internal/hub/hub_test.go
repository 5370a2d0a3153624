package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"shoulderbird/server/internal/rank"
	"shoulderbird/server/internal/rankclient"
	"shoulderbird/server/internal/sim"
	"shoulderbird/server/logging"
)

func newTestHub(boards *rankclient.Cache) *Hub {
	cfg := DefaultConfig()
	cfg.IntentCooldown = 3
	return New(cfg, logging.NopPublisher(), boards)
}

func (h *Hub) sessionByID(t *testing.T, id string) *session {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[id]
	if !ok {
		t.Fatalf("session %s not registered", id)
	}
	return sess
}

// startRun seeds the detector with a first pose and then moves, the way a
// player appears in frame and raises a shoulder.
func (h *Hub) startRun(t *testing.T, id string) {
	t.Helper()
	h.UpdatePose(id, 0.2, true)
	h.advance(16, time.Now())
	h.UpdatePose(id, 0.5, true)
	h.advance(16, time.Now())
}

func TestJoinAndDisconnect(t *testing.T) {
	h := newTestHub(nil)

	joined := h.Join(nil, "ada")
	if joined.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if h.SessionCount() != 1 {
		t.Fatalf("expected one live session, got %d", h.SessionCount())
	}

	h.Disconnect(joined.SessionID)
	if h.SessionCount() != 0 {
		t.Fatalf("expected session removed, got %d", h.SessionCount())
	}

	// Disconnecting twice is harmless.
	h.Disconnect(joined.SessionID)
}

func TestPoseMovementStartsRun(t *testing.T) {
	h := newTestHub(nil)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	if !h.UpdatePose(joined.SessionID, 0.2, true) {
		t.Fatalf("expected pose accepted for live session")
	}
	h.startRun(t, joined.SessionID)

	if got := sess.engine.Snapshot().State; got != sim.StatePlaying {
		t.Fatalf("expected qualifying movement to start the run, state %q", got)
	}
}

func TestFirstPoseAloneDoesNotStartRun(t *testing.T) {
	h := newTestHub(nil)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	// Stepping in front of the camera is not a start gesture, no matter
	// where the shoulder lands.
	h.UpdatePose(joined.SessionID, 0.9, true)
	for i := 0; i < 10; i++ {
		h.advance(16, time.Now())
	}

	if got := sess.engine.Snapshot().State; got != sim.StateWaiting {
		t.Fatalf("expected a held first pose to stay waiting, state %q", got)
	}
}

func TestMissingPoseNeverStartsRun(t *testing.T) {
	h := newTestHub(nil)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	h.UpdatePose(joined.SessionID, 0.9, false)
	for i := 0; i < 10; i++ {
		h.advance(16, time.Now())
	}

	if got := sess.engine.Snapshot().State; got != sim.StateWaiting {
		t.Fatalf("expected session to stay waiting without pose, state %q", got)
	}
}

func TestSteadyPoseDoesNotRestartAfterCooldown(t *testing.T) {
	h := newTestHub(nil)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	h.startRun(t, joined.SessionID)
	for i := 0; i < 20; i++ {
		h.advance(16, time.Now())
	}

	snap := sess.engine.Snapshot()
	if snap.State != sim.StatePlaying {
		t.Fatalf("expected one run in flight, state %q", snap.State)
	}
	// A held position observes zero delta once the first intent fired, so
	// the detector must not fire again after its cooldown expires.
	if snap.Score != 0 {
		t.Fatalf("expected fresh run, got score %d", snap.Score)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	h := newTestHub(nil)
	if h.UpdatePose("missing", 0.5, true) {
		t.Fatalf("expected pose rejected for unknown session")
	}
	if h.Resize("missing", 100, 100) {
		t.Fatalf("expected resize rejected for unknown session")
	}
}

func TestResizeAppliedOnNextTick(t *testing.T) {
	h := newTestHub(nil)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	if !h.Resize(joined.SessionID, 1200, 900) {
		t.Fatalf("expected resize accepted for live session")
	}
	if got := sess.engine.Snapshot().Field.Width; got != 800 {
		t.Fatalf("expected resize deferred to the tick, width already %v", got)
	}

	h.advance(16, time.Now())
	snap := sess.engine.Snapshot()
	if snap.Field.Width != 1200 || snap.Field.Height != 900 {
		t.Fatalf("expected resize applied on the tick, field %+v", snap.Field)
	}
	if snap.Avatar.X != 240 {
		t.Fatalf("expected avatar anchor recomputed, got %v", snap.Avatar.X)
	}
}

func TestResizeDuringTicksStaysConsistent(t *testing.T) {
	h := newTestHub(nil)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Resize(joined.SessionID, 1200, 900)
		}
	}()
	for i := 0; i < 500; i++ {
		h.advance(16, time.Now())
	}
	wg.Wait()

	h.Resize(joined.SessionID, 1200, 900)
	h.advance(16, time.Now())

	snap := sess.engine.Snapshot()
	if snap.Field.Width != 1200 || snap.Field.Height != 900 {
		t.Fatalf("expected the final resize applied, field %+v", snap.Field)
	}
}

type fixedLister struct {
	board []rank.Entry
}

func (l fixedLister) List(ctx context.Context) ([]rank.Entry, error) {
	return l.board, nil
}

func TestGameOverFrameCarriesLeaderboard(t *testing.T) {
	cache := rankclient.NewCache(fixedLister{board: []rank.Entry{{Name: "ada", Score: 9}}}, time.Minute)
	cache.Refresh(context.Background())

	h := newTestHub(cache)
	joined := h.Join(nil, "ada")
	sess := h.sessionByID(t, joined.SessionID)

	h.startRun(t, joined.SessionID)
	if sess.engine.Snapshot().State != sim.StatePlaying {
		t.Fatalf("expected run started")
	}

	// Drive the avatar into the ceiling to end the run.
	h.UpdatePose(joined.SessionID, 0, true)
	ended := false
	for i := 0; i < 600 && !ended; i++ {
		h.advance(16, time.Now())
		ended = sess.engine.Snapshot().State == sim.StateGameOver
	}
	if !ended {
		t.Fatalf("expected the run to end on the ceiling")
	}
	if deco := h.leaderboardDecoration(); len(deco) != 1 || deco[0].Name != "ada" {
		t.Fatalf("expected cached leaderboard decoration, got %+v", deco)
	}
}

type blockingLister struct {
	started chan struct{}
	release chan struct{}
}

func (l blockingLister) List(ctx context.Context) ([]rank.Entry, error) {
	select {
	case l.started <- struct{}{}:
	default:
	}
	select {
	case <-l.release:
	case <-ctx.Done():
	}
	return []rank.Entry{{Name: "slow", Score: 1}}, nil
}

func TestDecorationNeverWaitsOnAFetch(t *testing.T) {
	lister := blockingLister{started: make(chan struct{}, 1), release: make(chan struct{})}
	cache := rankclient.NewCache(lister, time.Minute)
	h := newTestHub(cache)

	done := make(chan []rank.Entry, 1)
	go func() { done <- h.leaderboardDecoration() }()

	select {
	case board := <-done:
		if len(board) != 0 {
			t.Fatalf("expected an empty board before any fetch completed, got %+v", board)
		}
	case <-time.After(time.Second):
		t.Fatalf("decoration must not wait for the ranking service")
	}

	// The stale cache still triggers a refresh, just off the tick path.
	select {
	case <-lister.started:
	case <-time.After(time.Second):
		t.Fatalf("expected a background refresh to start")
	}
	close(lister.release)
}
