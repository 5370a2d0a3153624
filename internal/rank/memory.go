package rank

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memEntry struct {
	Entry
	seq uint64
}

// MemoryStore keeps both tables in process memory behind one mutex, giving
// the same serialization the Postgres store gets from its transaction. It
// backs tests and DB-less deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries []memEntry
	buckets map[int]int64
	nextSeq uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[int]int64)}
}

func (m *MemoryStore) Submit(ctx context.Context, name string, score, clamped int, now time.Time) (SubmitOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var below, total int64
	for bucket, count := range m.buckets {
		total += count
		if bucket < clamped {
			below += count
		}
	}
	m.buckets[clamped]++

	outcome := SubmitOutcome{PriorBelow: below, PriorTotal: total}

	admitted := len(m.entries) < MaxEntries || score > m.lowestScoreLocked()
	if admitted {
		m.nextSeq++
		m.entries = append(m.entries, memEntry{
			Entry: Entry{Name: name, Score: score, CreatedAt: now},
			seq:   m.nextSeq,
		})
		if len(m.entries) > MaxEntries {
			m.evictLocked()
		}
		rank := 1
		for _, e := range m.entries {
			if e.Score > score {
				rank++
			}
		}
		outcome.MadeLeaderboard = true
		outcome.Rank = rank
	}

	outcome.Leaderboard = m.boardLocked()
	return outcome, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boardLocked(), nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats Stats
	for _, count := range m.buckets {
		stats.TotalGames += count
	}
	for _, e := range m.entries {
		if e.Score > stats.TopScore {
			stats.TopScore = e.Score
		}
	}
	return stats, nil
}

func (m *MemoryStore) lowestScoreLocked() int {
	lowest := 0
	for i, e := range m.entries {
		if i == 0 || e.Score < lowest {
			lowest = e.Score
		}
	}
	return lowest
}

// evictLocked removes exactly one row: the lowest score, and among equal
// lowest scores the most recently added, so older equal scores survive.
func (m *MemoryStore) evictLocked() {
	victim := 0
	for i := 1; i < len(m.entries); i++ {
		e, v := m.entries[i], m.entries[victim]
		if e.Score < v.Score || (e.Score == v.Score && e.seq > v.seq) {
			victim = i
		}
	}
	m.entries = append(m.entries[:victim], m.entries[victim+1:]...)
}

func (m *MemoryStore) boardLocked() []Entry {
	sorted := make([]memEntry, len(m.entries))
	copy(sorted, m.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].seq < sorted[j].seq
	})
	if len(sorted) > MaxEntries {
		sorted = sorted[:MaxEntries]
	}
	board := make([]Entry, len(sorted))
	for i, e := range sorted {
		board[i] = e.Entry
	}
	return board
}
