package rank

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// leaderboardLockKey serializes the admission-check-then-evict sequence.
// Without it two racing submissions could both read 100 rows and leave 101.
const leaderboardLockKey = 0x73686272 // "shbr"

// PostgresStore persists the ranking tables in Postgres. Every submission
// runs in one transaction so the histogram increment and the leaderboard
// admission either both land or neither does.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables and the ordering index when absent.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS leaderboard (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			score INT NOT NULL CHECK (score >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS leaderboard_rank_idx ON leaderboard (score DESC, created_at ASC)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS score_histogram (
			score INT PRIMARY KEY CHECK (score >= 0 AND score <= %d),
			count BIGINT NOT NULL DEFAULT 0
		)`, HistogramMax),
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Submit(ctx context.Context, name string, score, clamped int, now time.Time) (SubmitOutcome, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return SubmitOutcome{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(leaderboardLockKey)); err != nil {
		return SubmitOutcome{}, err
	}

	var outcome SubmitOutcome
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(count), 0),
		       COALESCE(SUM(count) FILTER (WHERE score < $1), 0)
		FROM score_histogram
	`, clamped).Scan(&outcome.PriorTotal, &outcome.PriorBelow)
	if err != nil {
		return SubmitOutcome{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO score_histogram (score, count)
		VALUES ($1, 1)
		ON CONFLICT (score) DO UPDATE SET count = score_histogram.count + 1
	`, clamped)
	if err != nil {
		return SubmitOutcome{}, err
	}

	var size int
	var lowest int
	err = tx.QueryRow(ctx, `SELECT COUNT(*), COALESCE(MIN(score), 0) FROM leaderboard`).Scan(&size, &lowest)
	if err != nil {
		return SubmitOutcome{}, err
	}

	if size < MaxEntries || score > lowest {
		_, err = tx.Exec(ctx, `
			INSERT INTO leaderboard (name, score, created_at)
			VALUES ($1, $2, $3)
		`, name, score, now)
		if err != nil {
			return SubmitOutcome{}, err
		}

		if size+1 > MaxEntries {
			// Evict the lowest score; among ties the most recently added
			// goes, so older equal scores keep their seat.
			_, err = tx.Exec(ctx, `
				DELETE FROM leaderboard
				WHERE id = (
					SELECT id FROM leaderboard
					ORDER BY score ASC, created_at DESC, id DESC
					LIMIT 1
				)
			`)
			if err != nil {
				return SubmitOutcome{}, err
			}
		}

		err = tx.QueryRow(ctx, `SELECT COUNT(*) + 1 FROM leaderboard WHERE score > $1`, score).Scan(&outcome.Rank)
		if err != nil {
			return SubmitOutcome{}, err
		}
		outcome.MadeLeaderboard = true
	}

	outcome.Leaderboard, err = scanBoard(ctx, tx)
	if err != nil {
		return SubmitOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SubmitOutcome{}, err
	}
	return outcome, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	return scanBoard(ctx, p.pool)
}

func (p *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(SUM(count), 0) FROM score_histogram`).Scan(&stats.TotalGames)
	if err != nil {
		return Stats{}, err
	}
	err = p.pool.QueryRow(ctx, `SELECT COALESCE(MAX(score), 0) FROM leaderboard`).Scan(&stats.TopScore)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanBoard(ctx context.Context, q querier) ([]Entry, error) {
	rows, err := q.Query(ctx, `
		SELECT name, score, created_at
		FROM leaderboard
		ORDER BY score DESC, created_at ASC, id ASC
		LIMIT $1
	`, MaxEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, MaxEntries)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
