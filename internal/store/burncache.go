package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/wdingocoin/wdingocoin/internal/models"
)

// GetCachedBurn returns a previously cached immutable burn fact, or (nil, nil)
// if not yet cached (spec.md §4.3 "Results MUST be cached locally").
func (s *Store) GetCachedBurn(burnAddress string, burnIndex int64) (*models.BurnRecord, error) {
	var r models.BurnRecord
	err := s.conn.QueryRow(
		"SELECT burn_address, burn_index, burn_destination, burn_amount FROM burn_history_cache WHERE burn_address = ? AND burn_index = ?",
		burnAddress, burnIndex,
	).Scan(&r.BurnAddress, &r.BurnIndex, &r.BurnDestination, &r.BurnAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached burn (%s, %d): %w", burnAddress, burnIndex, err)
	}
	return &r, nil
}

// PutCachedBurn records an immutable burn fact. Idempotent: re-caching the
// same key with the same values is a no-op.
func (s *Store) PutCachedBurn(r models.BurnRecord) error {
	_, err := s.conn.Exec(
		"INSERT OR IGNORE INTO burn_history_cache (burn_address, burn_index, burn_destination, burn_amount) VALUES (?, ?, ?, ?)",
		r.BurnAddress, r.BurnIndex, r.BurnDestination, r.BurnAmount,
	)
	if err != nil {
		return fmt.Errorf("cache burn (%s, %d): %w", r.BurnAddress, r.BurnIndex, err)
	}
	return nil
}
