// Package rank implements the bounded leaderboard and the histogram-backed
// percentile estimator. The leaderboard keeps the best plays, capped at
// MaxEntries; the histogram counts every play, collapsed into a fixed score
// domain so storage stays bounded no matter how many scores are submitted.
package rank

import (
	"context"
	"errors"
	"time"
)

const (
	// MaxEntries caps the leaderboard.
	MaxEntries = 100
	// MaxNameLength truncates submitted names.
	MaxNameLength = 20
	// HistogramMax bounds the histogram domain. Scores above it all land in
	// the top bucket, trading percentile accuracy for bounded storage.
	HistogramMax = 200
)

var (
	// ErrValidation marks malformed input; surfaced to callers as 400.
	ErrValidation = errors.New("invalid submission")
	// ErrStorageUnavailable marks persistence failures; surfaced as 500.
	ErrStorageUnavailable = errors.New("ranking storage unavailable")
)

type Entry struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type SubmitResult struct {
	MadeLeaderboard bool
	Percentile      int
	Rank            int // zero when not admitted
	Leaderboard     []Entry
}

type Stats struct {
	TotalGames int64
	TopScore   int
}

// SubmitOutcome is what a store reports back from one committed submission.
// PriorBelow and PriorTotal are histogram sums measured before this
// submission's increment.
type SubmitOutcome struct {
	MadeLeaderboard bool
	Rank            int
	PriorBelow      int64
	PriorTotal      int64
	Leaderboard     []Entry
}

// Store persists the two ranking tables. Submit must apply the histogram
// increment and the admission/eviction sequence atomically; concurrent
// submissions may never leave more than MaxEntries rows or lose an increment.
type Store interface {
	Submit(ctx context.Context, name string, score int, clamped int, now time.Time) (SubmitOutcome, error)
	List(ctx context.Context) ([]Entry, error)
	Stats(ctx context.Context) (Stats, error)
}
