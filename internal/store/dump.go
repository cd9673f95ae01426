package store

import (
	"bytes"
	"fmt"
	"strings"
)

// dumpedTables lists, in dependency order, every table an authority's local
// state consists of. used_deposit_pubkeys/mint_bindings/withdrawals/
// burn_history_cache are the spec's four persistent tables (spec.md §6);
// schema_migrations is included so Reset need not re-run migrations.
var dumpedTables = []string{
	"schema_migrations",
	"used_deposit_pubkeys",
	"mint_bindings",
	"withdrawals",
	"burn_history_cache",
}

// Dump produces a complete, self-contained textual SQL snapshot of local state
// suitable for restoration on another authority via Reset (spec.md §4.4, the
// manual-recovery path spec.md §1 mandates in place of automatic reconciliation).
// Caller MUST hold the write lock so the snapshot is consistent.
func (s *Store) Dump() (string, error) {
	var buf bytes.Buffer
	buf.WriteString("-- wdingo authority store dump\n")
	buf.WriteString("PRAGMA foreign_keys=OFF;\nBEGIN TRANSACTION;\n")

	for _, table := range dumpedTables {
		if err := dumpTable(s, &buf, table); err != nil {
			return "", fmt.Errorf("dump table %s: %w", table, err)
		}
	}

	buf.WriteString("COMMIT;\n")
	return buf.String(), nil
}

func dumpTable(s *Store, buf *bytes.Buffer, table string) error {
	rows, err := s.conn.Query("SELECT * FROM " + table)
	if err != nil {
		return fmt.Errorf("select *: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	fmt.Fprintf(buf, "DELETE FROM %s;\n", table)

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		literals := make([]string, len(cols))
		for i, v := range vals {
			literals[i] = sqlLiteral(v)
		}
		fmt.Fprintf(buf, "INSERT INTO %s (%s) VALUES (%s);\n", table, strings.Join(cols, ", "), strings.Join(literals, ", "))
	}
	return rows.Err()
}

func sqlLiteral(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "'" + strings.ReplaceAll(string(t), "'", "''") + "'"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", t), "'", "''") + "'"
	}
}

// Reset atomically replaces local state with dump, a snapshot previously
// produced by Dump on another authority (spec.md §4.4 "reset(path, dump)").
// Caller MUST hold the write lock.
func (s *Store) Reset(dump string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(dump); err != nil {
		return fmt.Errorf("apply dump: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}
