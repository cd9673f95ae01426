package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// RegisterMintBinding creates the one-to-one mapping between mintAddress and
// depositAddress (spec.md §3 "MintBinding", §4.6 step 6). Fails if either
// address is already bound. Caller MUST hold the write lock.
func (s *Store) RegisterMintBinding(mintAddress, depositAddress, redeemScript string) error {
	var count int
	if err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM mint_bindings WHERE mint_address = ? OR deposit_address = ?",
		mintAddress, depositAddress,
	).Scan(&count); err != nil {
		return fmt.Errorf("check existing mint binding: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: mint address %q or deposit address %q already bound", config.ErrDuplicate, mintAddress, depositAddress)
	}

	_, err := s.conn.Exec(
		"INSERT INTO mint_bindings (mint_address, deposit_address, redeem_script, approved_tax) VALUES (?, ?, ?, '0')",
		mintAddress, depositAddress, redeemScript,
	)
	if err != nil {
		return fmt.Errorf("insert mint binding: %w", err)
	}
	return nil
}

// GetMintBinding returns the binding for mintAddress, or (nil, nil) if none exists.
func (s *Store) GetMintBinding(mintAddress string) (*models.MintBinding, error) {
	var b models.MintBinding
	err := s.conn.QueryRow(
		"SELECT mint_address, deposit_address, redeem_script, approved_tax FROM mint_bindings WHERE mint_address = ?",
		mintAddress,
	).Scan(&b.MintAddress, &b.DepositAddress, &b.RedeemScript, &b.ApprovedTax)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mint binding %q: %w", mintAddress, err)
	}
	return &b, nil
}

// GetMintBindingByDepositAddress returns the binding for depositAddress, or
// (nil, nil) if none exists.
func (s *Store) GetMintBindingByDepositAddress(depositAddress string) (*models.MintBinding, error) {
	var b models.MintBinding
	err := s.conn.QueryRow(
		"SELECT mint_address, deposit_address, redeem_script, approved_tax FROM mint_bindings WHERE deposit_address = ?",
		depositAddress,
	).Scan(&b.MintAddress, &b.DepositAddress, &b.RedeemScript, &b.ApprovedTax)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mint binding by deposit address %q: %w", depositAddress, err)
	}
	return &b, nil
}

// GetMintBindings returns all bindings, or only those whose deposit address is
// in filterDepositAddresses when non-empty (spec.md §4.4).
func (s *Store) GetMintBindings(filterDepositAddresses []string) ([]models.MintBinding, error) {
	query := "SELECT mint_address, deposit_address, redeem_script, approved_tax FROM mint_bindings"
	args := make([]interface{}, 0, len(filterDepositAddresses))

	if len(filterDepositAddresses) > 0 {
		placeholders := make([]string, len(filterDepositAddresses))
		for i, a := range filterDepositAddresses {
			placeholders[i] = "?"
			args = append(args, a)
		}
		query += " WHERE deposit_address IN (" + strings.Join(placeholders, ", ") + ")"
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mint bindings: %w", err)
	}
	defer rows.Close()

	var out []models.MintBinding
	for rows.Next() {
		var b models.MintBinding
		if err := rows.Scan(&b.MintAddress, &b.DepositAddress, &b.RedeemScript, &b.ApprovedTax); err != nil {
			return nil, fmt.Errorf("scan mint binding row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint binding rows: %w", err)
	}
	return out, nil
}

// UpdateMintBindings updates ApprovedTax for each binding (spec.md §4.4:
// "updates approvedTax only"). Caller MUST hold the write lock.
func (s *Store) UpdateMintBindings(bindings []models.MintBinding) error {
	if len(bindings) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range bindings {
		if _, err := tx.Exec(
			"UPDATE mint_bindings SET approved_tax = ? WHERE mint_address = ?",
			b.ApprovedTax, b.MintAddress,
		); err != nil {
			return fmt.Errorf("update mint binding %q: %w", b.MintAddress, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mint binding updates: %w", err)
	}
	return nil
}
