package hub

import (
	"shoulderbird/server/internal/rank"
	"shoulderbird/server/internal/sim"
)

// ClientMessage is every frame a client may send over the websocket.
type ClientMessage struct {
	Type string `json:"type"`
	// pose frames
	NormalizedShoulderY float64 `json:"normalizedShoulderY"`
	HasPose             bool    `json:"hasPose"`
	// resize frames
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// heartbeat frames
	SentAt int64 `json:"sentAt"`
}

// StateMessage is the per-tick snapshot frame. Leaderboard is attached only
// on the tick a run ends, as best-effort decoration from the ranking cache.
type StateMessage struct {
	Type        string       `json:"type"`
	ServerTime  int64        `json:"serverTime"`
	Snapshot    sim.Snapshot `json:"snapshot"`
	Leaderboard []rank.Entry `json:"leaderboard,omitempty"`
}

// JoinedMessage confirms registration and carries the session id.
type JoinedMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"sessionId"`
	TickRate  int     `json:"tickRate"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// HeartbeatMessage echoes client time so the client can estimate RTT.
type HeartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}
