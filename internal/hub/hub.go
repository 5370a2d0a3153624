// Package hub owns the live game sessions. Every websocket connection gets
// its own simulation engine and intent detector; one ticker advances them all
// and broadcasts snapshot frames.
package hub

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shoulderbird/server/internal/intent"
	"shoulderbird/server/internal/rank"
	"shoulderbird/server/internal/rankclient"
	"shoulderbird/server/internal/sim"
	"shoulderbird/server/internal/telemetry"
	"shoulderbird/server/logging"
)

const writeWait = 10 * time.Second

type Config struct {
	TickRate       int
	Field          sim.Field
	Tuning         sim.Tuning
	IntentDelta    float64
	IntentCooldown int
	// BestDir holds one personal-best file per player key; empty disables
	// persistence and bests live only in memory.
	BestDir string
	Logger  telemetry.Logger
}

func DefaultConfig() Config {
	return Config{
		TickRate:       60,
		Field:          sim.Field{Width: 800, Height: 600},
		Tuning:         sim.DefaultTuning(),
		IntentDelta:    intent.DefaultThreshold,
		IntentCooldown: intent.DefaultCooldownTicks,
	}
}

type poseSample struct {
	level   float64
	hasPose bool
}

type resizeRequest struct {
	width  float64
	height float64
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// session latches inputs from the read goroutine under inputMu; the tick
// goroutine consumes them in step. The engine itself is only ever touched
// from the tick goroutine.
type session struct {
	id       string
	engine   *sim.Engine
	detector *intent.Detector
	sub      *subscriber

	inputMu sync.Mutex
	pose    poseSample
	resize  *resizeRequest

	wasPlaying bool
}

func (s *session) setPose(level float64, hasPose bool) {
	s.inputMu.Lock()
	s.pose = poseSample{level: level, hasPose: hasPose}
	s.inputMu.Unlock()
}

func (s *session) setResize(width, height float64) {
	s.inputMu.Lock()
	s.resize = &resizeRequest{width: width, height: height}
	s.inputMu.Unlock()
}

// takeInput returns the freshest pose and the pending resize, clearing the
// latter. Pose samples persist between ticks; a resize applies exactly once.
func (s *session) takeInput() (poseSample, *resizeRequest) {
	s.inputMu.Lock()
	defer s.inputMu.Unlock()
	pending := s.resize
	s.resize = nil
	return s.pose, pending
}

type Hub struct {
	mu       sync.Mutex
	sessions map[string]*session

	cfg        Config
	pub        logging.Publisher
	logger     telemetry.Logger
	boards     *rankclient.Cache
	refreshing atomic.Bool
	counters   telemetryCounters
}

// New builds a hub. The ranking cache is optional; without it game-over
// frames simply carry no leaderboard.
func New(cfg Config, pub logging.Publisher, boards *rankclient.Cache) *Hub {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	return &Hub{
		sessions: make(map[string]*session),
		cfg:      cfg,
		pub:      pub,
		logger:   cfg.Logger,
		boards:   boards,
	}
}

var playerKeyRE = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Join registers a session for a connection. playerKey scopes the persisted
// personal best; anything unsafe for a filename is stripped.
func (h *Hub) Join(conn *websocket.Conn, playerKey string) *JoinedMessage {
	id := uuid.NewString()

	var store sim.BestStore
	if h.cfg.BestDir != "" {
		key := playerKeyRE.ReplaceAllString(playerKey, "")
		if key == "" {
			key = "anonymous"
		}
		store = sim.NewFileBestStore(filepath.Join(h.cfg.BestDir, key+".json"))
	}

	sess := &session{
		id:       id,
		engine:   sim.New(id, h.cfg.Field, h.cfg.Tuning, store, h.pub, nil),
		detector: intent.NewDetector(h.cfg.IntentDelta, h.cfg.IntentCooldown),
	}
	if conn != nil {
		sess.sub = &subscriber{conn: conn}
	}

	h.mu.Lock()
	h.sessions[id] = sess
	h.mu.Unlock()
	h.counters.sessionsJoined.Add(1)

	return &JoinedMessage{
		Type:      "joined",
		SessionID: id,
		TickRate:  h.cfg.TickRate,
		Width:     h.cfg.Field.Width,
		Height:    h.cfg.Field.Height,
	}
}

// Disconnect removes a session and closes its connection.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	h.counters.sessionsDropped.Add(1)
	if sess.sub != nil {
		sess.sub.conn.Close()
	}
	h.pub.Publish(context.Background(), logging.Event{
		Type:     "system.session_closed",
		Actor:    logging.EntityRef{ID: id, Kind: logging.EntityKindSession},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
	})
}

// UpdatePose records the latest control sample for a session. Samples arrive
// at the pose source's own cadence; the tick loop consumes the newest one.
func (h *Hub) UpdatePose(id string, level float64, hasPose bool) bool {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return false
	}
	sess.setPose(level, hasPose)
	return true
}

// Resize records a viewport change for a session. Like pose samples it is
// latched and applied on the next tick, never directly from the caller's
// goroutine.
func (h *Hub) Resize(id string, width, height float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	h.mu.Lock()
	sess, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		return false
	}
	sess.setResize(width, height)
	return true
}

// SessionCount reports the live session total for diagnostics.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// TelemetrySnapshot exposes the counters for /diagnostics.
func (h *Hub) TelemetrySnapshot() TelemetrySnapshot {
	return h.counters.Snapshot()
}

// TickRate reports the configured simulation rate.
func (h *Hub) TickRate() int {
	return h.cfg.TickRate
}

type frame struct {
	sub  *subscriber
	data []byte
	id   string
}

// RunSimulation drives every session until the stop channel closes. The stop
// flag is checked once per scheduled tick; a tick in progress always runs to
// completion.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(h.cfg.TickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			deltaMs := float64(now.Sub(last).Milliseconds())
			if deltaMs <= 0 {
				deltaMs = 1000 / float64(h.cfg.TickRate)
			}
			last = now

			started := time.Now()
			frames := h.advance(deltaMs, now)
			h.counters.RecordTick(time.Since(started))

			for _, f := range frames {
				h.deliver(f)
			}
		}
	}
}

// advance steps every session once and assembles their snapshot frames.
func (h *Hub) advance(deltaMs float64, now time.Time) []frame {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		sessions = append(sessions, sess)
	}
	h.mu.Unlock()

	frames := make([]frame, 0, len(sessions))
	for _, sess := range sessions {
		snap := h.step(sess, deltaMs)

		msg := StateMessage{Type: "state", ServerTime: now.UnixMilli(), Snapshot: snap}
		if snap.State == sim.StateGameOver && sess.wasPlaying {
			msg.Leaderboard = h.leaderboardDecoration()
		}
		sess.wasPlaying = snap.State == sim.StatePlaying

		if sess.sub == nil {
			continue
		}
		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Printf("failed to marshal state for %s: %v", sess.id, err)
			continue
		}
		frames = append(frames, frame{sub: sess.sub, data: data, id: sess.id})
	}
	return frames
}

// step feeds the latched inputs through the intent detector and the engine.
// The detector observes once per tick, so its cooldown stays tick-counted
// regardless of how often pose samples arrive.
func (h *Hub) step(sess *session, deltaMs float64) sim.Snapshot {
	pose, pending := sess.takeInput()
	if pending != nil {
		sess.engine.Resize(pending.width, pending.height)
	}
	if pose.hasPose {
		if sess.detector.Observe(pose.level) {
			// Restart policy: a deliberate movement starts a run from
			// WAITING and from GAME_OVER alike.
			sess.engine.StartRun()
		}
		sess.engine.ApplySignal(pose.level, true)
	}
	sess.engine.Update(deltaMs)
	return sess.engine.Snapshot()
}

// leaderboardDecoration serves whatever board is already cached. The tick
// goroutine never waits on the ranking service; a stale cache kicks off one
// background refresh and the next game-over picks up the result.
func (h *Hub) leaderboardDecoration() []rank.Entry {
	if h.boards == nil {
		return nil
	}
	board, fresh := h.boards.Snapshot()
	if !fresh && h.refreshing.CompareAndSwap(false, true) {
		go func() {
			defer h.refreshing.Store(false)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			h.boards.Refresh(ctx)
		}()
	}
	return board
}

func (h *Hub) deliver(f frame) {
	f.sub.mu.Lock()
	f.sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := f.sub.conn.WriteMessage(websocket.TextMessage, f.data)
	f.sub.mu.Unlock()
	if err != nil {
		h.logger.Printf("failed to send state to %s: %v", f.id, err)
		h.Disconnect(f.id)
		return
	}
	h.counters.RecordBroadcast(len(f.data))
}

// SendHeartbeatAck echoes a heartbeat on the session's connection.
func (h *Hub) SendHeartbeatAck(id string, clientTime int64) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok || sess.sub == nil {
		return
	}

	ack := HeartbeatMessage{Type: "heartbeat", ServerTime: time.Now().UnixMilli(), ClientTime: clientTime}
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}

	sess.sub.mu.Lock()
	sess.sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		sess.sub.mu.Unlock()
		h.Disconnect(id)
		return
	}
	sess.sub.mu.Unlock()
}
