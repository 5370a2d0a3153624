package rankclient

import (
	"context"
	"sync"
	"time"

	"shoulderbird/server/internal/rank"
)

// DefaultTTL is how long a fetched board stays fresh.
const DefaultTTL = 30 * time.Second

type Lister interface {
	List(ctx context.Context) ([]rank.Entry, error)
}

// Cache fronts a Lister with a TTL. Within the window it answers from memory;
// outside it refetches. A failed fetch falls back to the last known-good
// board, or an empty one, and never surfaces an error: gameplay must not
// block on the leaderboard.
type Cache struct {
	lister Lister
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	board     []rank.Entry
	fetchedAt time.Time
	have      bool
}

func NewCache(lister Lister, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lister: lister, ttl: ttl, now: time.Now}
}

// Leaderboard returns the freshest board available without ever failing.
func (c *Cache) Leaderboard(ctx context.Context) []rank.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.have && c.now().Sub(c.fetchedAt) < c.ttl {
		return cloneBoard(c.board)
	}
	return c.refetchLocked(ctx)
}

// Snapshot returns the last fetched board without touching the Lister. fresh
// reports whether the board is still within its TTL; callers on latency
// sensitive paths serve it either way and refresh elsewhere.
func (c *Cache) Snapshot() (board []rank.Entry, fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh = c.have && c.now().Sub(c.fetchedAt) < c.ttl
	return cloneBoard(c.board), fresh
}

// Refresh bypasses the TTL window.
func (c *Cache) Refresh(ctx context.Context) []rank.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refetchLocked(ctx)
}

func (c *Cache) refetchLocked(ctx context.Context) []rank.Entry {
	board, err := c.lister.List(ctx)
	if err != nil {
		return cloneBoard(c.board)
	}
	c.board = board
	c.fetchedAt = c.now()
	c.have = true
	return cloneBoard(board)
}

func cloneBoard(board []rank.Entry) []rank.Entry {
	if board == nil {
		return []rank.Entry{}
	}
	copied := make([]rank.Entry, len(board))
	copy(copied, board)
	return copied
}
