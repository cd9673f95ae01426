package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// RegisterWithdrawal inserts a new withdrawal in SUBMITTED state
// (approvedAmount = approvedTax = "0"), keyed by (burnAddress, burnIndex).
// Fails with ErrDuplicate on a repeat key (spec.md §4.7 step 1, §8 "Idempotence").
// Caller MUST hold the write lock.
func (s *Store) RegisterWithdrawal(burnAddress string, burnIndex int64) error {
	var count int
	if err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM withdrawals WHERE burn_address = ? AND burn_index = ?",
		burnAddress, burnIndex,
	).Scan(&count); err != nil {
		return fmt.Errorf("check existing withdrawal: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: withdrawal (%s, %d) already submitted", config.ErrDuplicate, burnAddress, burnIndex)
	}

	_, err := s.conn.Exec(
		"INSERT INTO withdrawals (burn_address, burn_index, approved_amount, approved_tax) VALUES (?, ?, '0', '0')",
		burnAddress, burnIndex,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetWithdrawal returns the withdrawal for (burnAddress, burnIndex), or
// (nil, nil) if none exists.
func (s *Store) GetWithdrawal(burnAddress string, burnIndex int64) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := s.conn.QueryRow(
		"SELECT burn_address, burn_index, approved_amount, approved_tax FROM withdrawals WHERE burn_address = ? AND burn_index = ?",
		burnAddress, burnIndex,
	).Scan(&w.BurnAddress, &w.BurnIndex, &w.ApprovedAmount, &w.ApprovedTax)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get withdrawal (%s, %d): %w", burnAddress, burnIndex, err)
	}
	return &w, nil
}

// GetWithdrawals returns every withdrawal, regardless of state.
func (s *Store) GetWithdrawals() ([]models.Withdrawal, error) {
	return s.queryWithdrawals("SELECT burn_address, burn_index, approved_amount, approved_tax FROM withdrawals")
}

// GetUnapprovedWithdrawals returns every withdrawal still in SUBMITTED state
// (spec.md §4.4, consumed by the payout engine's Step A).
func (s *Store) GetUnapprovedWithdrawals() ([]models.Withdrawal, error) {
	return s.queryWithdrawals(
		"SELECT burn_address, burn_index, approved_amount, approved_tax FROM withdrawals WHERE approved_amount = '0' AND approved_tax = '0'",
	)
}

func (s *Store) queryWithdrawals(query string) ([]models.Withdrawal, error) {
	rows, err := s.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query withdrawals: %w", err)
	}
	defer rows.Close()

	var out []models.Withdrawal
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.BurnAddress, &w.BurnIndex, &w.ApprovedAmount, &w.ApprovedTax); err != nil {
			return nil, fmt.Errorf("scan withdrawal row: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return out, nil
}

// UpdateWithdrawals updates ApprovedAmount/ApprovedTax for each withdrawal
// (spec.md §4.4). Caller MUST hold the write lock.
func (s *Store) UpdateWithdrawals(withdrawals []models.Withdrawal) error {
	if len(withdrawals) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, w := range withdrawals {
		if _, err := tx.Exec(
			"UPDATE withdrawals SET approved_amount = ?, approved_tax = ? WHERE burn_address = ? AND burn_index = ?",
			w.ApprovedAmount, w.ApprovedTax, w.BurnAddress, w.BurnIndex,
		); err != nil {
			return fmt.Errorf("update withdrawal (%s, %d): %w", w.BurnAddress, w.BurnIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit withdrawal updates: %w", err)
	}
	return nil
}
