package ranking

import (
	"context"

	"shoulderbird/server/logging"
)

const (
	// EventScoreSubmitted is emitted after a submission has been committed.
	EventScoreSubmitted logging.EventType = "ranking.score_submitted"
	// EventStorageFailure is emitted when the ranking store rejects an operation.
	EventStorageFailure logging.EventType = "ranking.storage_failure"
)

// ScoreSubmittedPayload captures the outcome of a committed submission.
type ScoreSubmittedPayload struct {
	Score           int  `json:"score"`
	Percentile      int  `json:"percentile"`
	MadeLeaderboard bool `json:"madeLeaderboard"`
	Rank            int  `json:"rank,omitempty"`
}

// ScoreSubmitted publishes a successful submission.
func ScoreSubmitted(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ScoreSubmittedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventScoreSubmitted,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRanking,
		Payload:  payload,
	})
}

// StorageFailurePayload names the failed operation.
type StorageFailurePayload struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// StorageFailure publishes a storage layer failure.
func StorageFailure(ctx context.Context, pub logging.Publisher, payload StorageFailurePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStorageFailure,
		Severity: logging.SeverityError,
		Category: logging.CategoryRanking,
		Payload:  payload,
	})
}
