package metrics

import (
	"context"
	"database/sql"
	"sync"

	"github.com/charmbracelet/log"
)

// store handles metric-related database operations.
type store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new metrics Store.
func New(db *sql.DB) MetricsStore {
	return &store{
		db: db,
	}
}

// Increment upserts a metric key and increments its value by one.
// Failures are logged, never returned.
func (s *store) Increment(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1;
	`, key)
	if err != nil {
		log.Error("Failed to increment metric", "error", err, "key", key)
		return
	}
	log.Debug("Incremented metric", "key", key)
}

// GetAll returns all metrics from the database.
func (s *store) GetAll(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metrics")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make(map[string]int)
	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metrics[key] = value
	}
	return metrics, rows.Err()
}
