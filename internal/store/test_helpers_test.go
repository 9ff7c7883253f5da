package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/polyinline/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPass creates a pass with minimal required fields.
func createTestPass(id, runID string, ordinal int) Pass {
	return Pass{
		ID:               id,
		RunID:            runID,
		Ordinal:          ordinal,
		Scenario:         "test-scenario",
		Config:           "inlining: {}\n",
		GraphBefore:      "before",
		GraphAfter:       "after",
		DecisionsDigest:  "digest",
		HeuristicVersion: ir.HeuristicVersion,
	}
}

// createTestDecision creates an inlined monomorphic decision.
func createTestDecision(passID string, seq int64, node ir.NodeID) ir.Decision {
	return ir.Decision{
		PassID:     passID,
		Seq:        seq,
		Node:       node,
		Mnemonic:   "Call",
		Outcome:    ir.OutcomeInlined,
		Reason:     ir.ReasonSmallFunction,
		Frequency:  "1",
		Callees:    []ir.CalleeRecord{{Name: "f", Size: 12, Inlinable: true}},
		TotalSize:  12,
		Cumulative: 12,
	}
}

func mustWritePass(t *testing.T, s *Store, p Pass) {
	t.Helper()
	if err := s.WritePass(context.Background(), p); err != nil {
		t.Fatalf("WritePass(%s) failed: %v", p.ID, err)
	}
}

func mustWriteDecisions(t *testing.T, s *Store, decisions ...ir.Decision) {
	t.Helper()
	if err := s.WriteDecisions(context.Background(), decisions); err != nil {
		t.Fatalf("WriteDecisions() failed: %v", err)
	}
}

// pragma returns the current value of a connection pragma.
func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("PRAGMA %s failed: %v", name, err)
	}
	return value
}

// hasColumn reports whether table has a column named column.
func hasColumn(t *testing.T, s *Store, table, column string) bool {
	t.Helper()
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("table_info(%s) failed: %v", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if name == column {
			return true
		}
	}
	return false
}
