package store

import (
	"fmt"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// HasUsedDepositPubkeys reports whether any of pubkeys has previously been
// registered (spec.md §4.4). Read-only; callers that gate a mutation on this
// MUST re-check inside Lock()/Unlock() (spec.md §5 double-check rule).
func (s *Store) HasUsedDepositPubkeys(pubkeys []string) (bool, error) {
	for _, pk := range pubkeys {
		var count int
		if err := s.conn.QueryRow("SELECT COUNT(*) FROM used_deposit_pubkeys WHERE pubkey = ?", pk).Scan(&count); err != nil {
			return false, fmt.Errorf("check used pubkey %q: %w", pk, err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// RegisterUsedDepositPubkeys inserts all of pubkeys as used, atomically, or
// fails without inserting any if one is already present (spec.md §3
// "DepositPubkey... never reused", §4.4). Caller MUST hold the write lock.
func (s *Store) RegisterUsedDepositPubkeys(pubkeys []string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, pk := range pubkeys {
		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM used_deposit_pubkeys WHERE pubkey = ?", pk).Scan(&count); err != nil {
			return fmt.Errorf("check used pubkey %q: %w", pk, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: deposit pubkey %q already used", config.ErrDuplicate, pk)
		}
	}

	for _, pk := range pubkeys {
		if _, err := tx.Exec("INSERT INTO used_deposit_pubkeys (pubkey) VALUES (?)", pk); err != nil {
			return fmt.Errorf("insert used pubkey %q: %w", pk, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit used pubkeys: %w", err)
	}
	return nil
}
