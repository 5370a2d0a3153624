package sim

// RunState enumerates the engine state machine.
type RunState string

const (
	StateWaiting  RunState = "waiting"
	StatePlaying  RunState = "playing"
	StateGameOver RunState = "gameOver"
)

type Field struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AvatarView is the renderable projection of the avatar.
type AvatarView struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	TargetY float64 `json:"targetY"`
	Radius  float64 `json:"radius"`
}

// ObstacleView is the renderable projection of one pipe pair.
type ObstacleView struct {
	X         float64 `json:"x"`
	Width     float64 `json:"width"`
	GapTop    float64 `json:"gapTop"`
	GapBottom float64 `json:"gapBottom"`
	Passed    bool    `json:"passed"`
}

// Snapshot is the immutable value handed to the presentation layer. It carries
// copies only; mutating a snapshot never reaches engine state.
type Snapshot struct {
	Tick      uint64         `json:"tick"`
	State     RunState       `json:"state"`
	Score     int            `json:"score"`
	Best      int            `json:"best"`
	Avatar    AvatarView     `json:"avatar"`
	Obstacles []ObstacleView `json:"obstacles"`
	Field     Field          `json:"field"`
}
