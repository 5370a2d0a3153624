package gameplay

import (
	"context"

	"shoulderbird/server/logging"
)

const (
	// EventRunStarted is emitted when a session transitions into a live run.
	EventRunStarted logging.EventType = "gameplay.run_started"
	// EventRunEnded is emitted when a run terminates on a collision.
	EventRunEnded logging.EventType = "gameplay.run_ended"
	// EventPersonalBest is emitted when a finished run beats the stored best.
	EventPersonalBest logging.EventType = "gameplay.personal_best"
)

// RunEndedPayload captures the terminal facts of a run.
type RunEndedPayload struct {
	Score     int     `json:"score"`
	Best      int     `json:"best"`
	Obstacles int     `json:"obstacles"`
	AvatarY   float64 `json:"avatarY"`
}

// RunStarted publishes a run start event.
func RunStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRunStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
	})
}

// RunEnded publishes a run termination event.
func RunEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RunEndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRunEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// PersonalBestPayload records the previous and new best.
type PersonalBestPayload struct {
	Previous int `json:"previous"`
	Best     int `json:"best"`
}

// PersonalBest publishes a new personal best event.
func PersonalBest(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PersonalBestPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPersonalBest,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
