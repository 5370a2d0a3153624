package rank

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"shoulderbird/server/logging"
	"shoulderbird/server/logging/ranking"
)

// Service validates submissions and derives percentiles on top of a Store.
// It holds no ranking state of its own; every request is independent.
type Service struct {
	store Store
	pub   logging.Publisher
	now   func() time.Time
}

func NewService(store Store, pub logging.Publisher) *Service {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Service{store: store, pub: pub, now: time.Now}
}

// Submit records one play. The histogram bucket is always incremented, even
// when the score misses the leaderboard: the histogram models all plays, the
// leaderboard only the best ones. Submission is not idempotent; a retried
// submit duplicates both effects.
func (s *Service) Submit(ctx context.Context, name string, score int) (SubmitResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SubmitResult{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	// Truncate on rune boundaries: a byte-wise cut can split a multibyte
	// character and feed invalid UTF-8 to the store.
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}
	if score < 0 {
		return SubmitResult{}, fmt.Errorf("%w: score must not be negative", ErrValidation)
	}

	clamped := score
	if clamped > HistogramMax {
		clamped = HistogramMax
	}

	outcome, err := s.store.Submit(ctx, name, score, clamped, s.now().UTC())
	if err != nil {
		ranking.StorageFailure(ctx, s.pub, ranking.StorageFailurePayload{Operation: "submit", Error: err.Error()})
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	result := SubmitResult{
		MadeLeaderboard: outcome.MadeLeaderboard,
		Percentile:      percentile(outcome.PriorBelow, outcome.PriorTotal),
		Rank:            outcome.Rank,
		Leaderboard:     outcome.Leaderboard,
	}

	ranking.ScoreSubmitted(ctx, s.pub, logging.EntityRef{ID: name, Kind: logging.EntityKindPlayer}, ranking.ScoreSubmittedPayload{
		Score:           score,
		Percentile:      result.Percentile,
		MadeLeaderboard: result.MadeLeaderboard,
		Rank:            result.Rank,
	})
	return result, nil
}

// List returns the current board in invariant order, at most MaxEntries rows.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		ranking.StorageFailure(ctx, s.pub, ranking.StorageFailurePayload{Operation: "list", Error: err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return entries, nil
}

// Stats derives totals from the two tables; nothing is stored redundantly.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		ranking.StorageFailure(ctx, s.pub, ranking.StorageFailurePayload{Operation: "stats", Error: err.Error()})
		return Stats{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return stats, nil
}

// percentile is the share of prior plays strictly below the clamped score.
// The first player ever is "average" by convention.
func percentile(below, total int64) int {
	if total == 0 {
		return 50
	}
	return int(math.Round(100 * float64(below) / float64(total)))
}
