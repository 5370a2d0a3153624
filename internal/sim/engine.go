package sim

import (
	"context"
	"math/rand"
	"time"

	"shoulderbird/server/logging"
	"shoulderbird/server/logging/gameplay"
)

type avatar struct {
	x       float64
	y       float64
	targetY float64
	radius  float64
}

// Engine owns one session: one avatar, one run, one ordered obstacle
// sequence. It is a synchronous step function; callers invoke Update once per
// frame and it runs to completion. No internal goroutines, no singletons.
type Engine struct {
	id      string
	field   Field
	tuning  Tuning
	baseGap float64

	av        avatar
	state     RunState
	score     int
	best      int
	committed bool
	obstacles []obstacle
	spawnMs   float64
	tick      uint64

	rng   *rand.Rand
	store BestStore
	pub   logging.Publisher
}

// New constructs an engine for one session. A nil store disables personal
// best persistence, a nil publisher silences events, a nil rng gets seeded
// from the clock.
func New(id string, field Field, tuning Tuning, store BestStore, pub logging.Publisher, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	e := &Engine{
		id:     id,
		field:  field,
		tuning: tuning,
		state:  StateWaiting,
		rng:    rng,
		store:  store,
		pub:    pub,
	}
	e.applyDimensions()
	e.av.y = field.Height / 2
	e.av.targetY = e.av.y
	e.best = e.loadBest()
	return e
}

func (e *Engine) applyDimensions() {
	e.av.radius = e.tuning.AvatarRadius
	e.av.x = e.field.Width * e.tuning.AvatarAnchor
	e.baseGap = e.tuning.BaseGap
	if limit := e.field.Height * e.tuning.MaxGapFraction; e.baseGap > limit {
		e.baseGap = limit
	}
}

// Resize recomputes the avatar anchor and base gap for a new viewport.
// Obstacles already in flight keep their absolute pixel positions.
func (e *Engine) Resize(width, height float64) {
	e.field.Width = width
	e.field.Height = height
	e.applyDimensions()
}

// StartRun transitions WAITING or GAME_OVER into PLAYING, resetting score,
// obstacles and difficulty. In PLAYING it is a no-op and reports false.
func (e *Engine) StartRun() bool {
	if e.state == StatePlaying {
		return false
	}
	e.state = StatePlaying
	e.score = 0
	e.committed = false
	e.obstacles = e.obstacles[:0]
	e.spawnMs = 0
	gameplay.RunStarted(context.Background(), e.pub, e.tick, e.ref())
	return true
}

// ApplySignal maps a normalized control value onto the avatar target. The
// mapping pads symmetrically by twice the radius so a raw target never clips
// the ceiling or floor. A missing signal leaves the target untouched.
func (e *Engine) ApplySignal(level float64, hasPose bool) {
	if !hasPose {
		return
	}
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	padding := 2 * e.av.radius
	e.av.targetY = padding + level*(e.field.Height-2*padding)
}

// Update advances the session by deltaMs of wall clock. Ordering within a
// tick is load-bearing: smoothing, obstacle motion at the tick-start score,
// scoring, compaction, collision, spawn.
func (e *Engine) Update(deltaMs float64) {
	if deltaMs < 0 {
		deltaMs = 0
	}
	e.tick++

	// Smoothing runs in every state so the avatar tracks the player before
	// and after a run.
	e.av.y += (e.av.targetY - e.av.y) * e.tuning.SmoothingAlpha

	if e.state != StatePlaying {
		return
	}

	speed := e.tuning.BaseSpeed + float64(e.score)*e.tuning.SpeedGainPerPoint
	dx := speed * deltaMs / 1000
	for i := range e.obstacles {
		e.obstacles[i].x -= dx
	}

	e.scorePasses()
	e.compactObstacles()

	if e.collides() {
		e.endRun()
		return
	}

	e.spawnMs += deltaMs
	if e.spawnMs > e.tuning.SpawnIntervalMs {
		e.spawnMs = 0
		e.spawnObstacle()
	}
}

func (e *Engine) endRun() {
	e.state = StateGameOver
	gameplay.RunEnded(context.Background(), e.pub, e.tick, e.ref(), gameplay.RunEndedPayload{
		Score:     e.score,
		Best:      e.best,
		Obstacles: len(e.obstacles),
		AvatarY:   e.av.y,
	})
	if e.committed {
		return
	}
	e.committed = true
	if e.score > e.best {
		previous := e.best
		e.best = e.score
		e.saveBest(e.best)
		gameplay.PersonalBest(context.Background(), e.pub, e.tick, e.ref(), gameplay.PersonalBestPayload{
			Previous: previous,
			Best:     e.best,
		})
	}
}

// Snapshot copies the current state into an immutable view.
func (e *Engine) Snapshot() Snapshot {
	obstacles := make([]ObstacleView, len(e.obstacles))
	for i, ob := range e.obstacles {
		obstacles[i] = ObstacleView{
			X:         ob.x,
			Width:     e.tuning.ObstacleWidth,
			GapTop:    ob.gapTop,
			GapBottom: ob.gapBottom,
			Passed:    ob.passed,
		}
	}
	return Snapshot{
		Tick:  e.tick,
		State: e.state,
		Score: e.score,
		Best:  e.best,
		Avatar: AvatarView{
			X:       e.av.x,
			Y:       e.av.y,
			TargetY: e.av.targetY,
			Radius:  e.av.radius,
		},
		Obstacles: obstacles,
		Field:     e.field,
	}
}

func (e *Engine) ref() logging.EntityRef {
	return logging.EntityRef{ID: e.id, Kind: logging.EntityKindSession}
}

func (e *Engine) loadBest() int {
	if e.store == nil {
		return 0
	}
	best, err := e.store.Load()
	if err != nil || best < 0 {
		// Storage trouble degrades to a zero best, never past this boundary.
		return 0
	}
	return best
}

func (e *Engine) saveBest(best int) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(best); err != nil {
		e.pub.Publish(context.Background(), logging.Event{
			Type:     "gameplay.best_store_failed",
			Tick:     e.tick,
			Actor:    e.ref(),
			Severity: logging.SeverityWarn,
			Category: logging.CategoryGameplay,
			Payload:  map[string]any{"error": err.Error()},
		})
	}
}
