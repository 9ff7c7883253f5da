package store

import (
	"context"
	"fmt"

	"github.com/roach88/polyinline/internal/ir"
)

// Pass is the stored summary of one heuristic pass instance.
type Pass struct {
	ID       string
	RunID    string
	Ordinal  int // position of the pass within its run, from 0
	Scenario string
	// Config is the effective configuration rendered as CUE.
	Config          string
	GraphBefore     string
	GraphAfter      string
	DecisionsDigest string
	// Changed reports whether any Reduce or Finalize of the pass changed
	// the graph.
	Changed          bool
	Cumulative       int
	HeuristicVersion string
}

// WritePass inserts a pass record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WritePass(ctx context.Context, p Pass) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passes
		(id, run_id, ordinal, scenario, config, graph_before, graph_after,
		 decisions_digest, changed, cumulative, heuristic_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.RunID,
		p.Ordinal,
		p.Scenario,
		p.Config,
		p.GraphBefore,
		p.GraphAfter,
		p.DecisionsDigest,
		boolToInt(p.Changed),
		p.Cumulative,
		p.HeuristicVersion,
	)
	if err != nil {
		return fmt.Errorf("write pass: %w", err)
	}
	return nil
}

// WriteDecisions inserts journal entries in one transaction. Every
// decision must belong to a pass that was already written (foreign key
// constraint). Duplicate (pass_id, seq) keys are silently ignored.
func (s *Store) WriteDecisions(ctx context.Context, decisions []ir.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write decisions: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions
		(pass_id, seq, node, mnemonic, outcome, reason, frequency, callees,
		 total_size, cumulative, dispatch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pass_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write decisions: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		callees, err := marshalCallees(d.Callees)
		if err != nil {
			return fmt.Errorf("write decisions: seq %d: %w", d.Seq, err)
		}
		_, err = stmt.ExecContext(ctx,
			d.PassID,
			d.Seq,
			int64(d.Node),
			d.Mnemonic,
			string(d.Outcome),
			string(d.Reason),
			d.Frequency,
			callees,
			d.TotalSize,
			d.Cumulative,
			string(d.Dispatch),
		)
		if err != nil {
			return fmt.Errorf("write decisions: seq %d: %w", d.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write decisions: commit: %w", err)
	}
	return nil
}
