package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/polyinline/internal/ir"
)

// ErrPassNotFound is returned when a pass id has no record.
var ErrPassNotFound = errors.New("pass not found")

const passColumns = `id, run_id, ordinal, scenario, config, graph_before, graph_after,
	decisions_digest, changed, cumulative, heuristic_version`

// ReadPass returns the pass with the given id.
func (s *Store) ReadPass(ctx context.Context, id string) (Pass, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passColumns+` FROM passes WHERE id = ?`, id)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Pass{}, fmt.Errorf("read pass %s: %w", id, ErrPassNotFound)
	}
	if err != nil {
		return Pass{}, fmt.Errorf("read pass %s: %w", id, err)
	}
	return p, nil
}

// ListPasses returns the passes of a run in ordinal order. An empty runID
// lists every pass, ordered by run and ordinal.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListPasses(ctx context.Context, runID string) ([]Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY run_id COLLATE BINARY ASC, ordinal ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []Pass{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// ReadDecisions returns the journal of one pass in seq order.
//
// Returns an empty slice (not nil) if no decisions exist for the pass.
func (s *Store) ReadDecisions(ctx context.Context, passID string) ([]ir.Decision, error) {
	return s.queryDecisions(ctx, `
		SELECT pass_id, seq, node, mnemonic, outcome, reason, frequency, callees,
		       total_size, cumulative, dispatch
		FROM decisions
		WHERE pass_id = ?
		ORDER BY seq ASC
	`, passID)
}

// ReadRunDecisions returns the journals of every pass of a run, ordered by
// pass ordinal and then seq.
func (s *Store) ReadRunDecisions(ctx context.Context, runID string) ([]ir.Decision, error) {
	return s.queryDecisions(ctx, `
		SELECT d.pass_id, d.seq, d.node, d.mnemonic, d.outcome, d.reason, d.frequency,
		       d.callees, d.total_size, d.cumulative, d.dispatch
		FROM decisions d
		JOIN passes p ON d.pass_id = p.id
		WHERE p.run_id = ?
		ORDER BY p.ordinal ASC, d.seq ASC
	`, runID)
}

// ReadDecisionsByOutcome returns the decisions of a run with the given
// outcome, in pass and seq order.
func (s *Store) ReadDecisionsByOutcome(ctx context.Context, runID string, outcome ir.Outcome) ([]ir.Decision, error) {
	return s.queryDecisions(ctx, `
		SELECT d.pass_id, d.seq, d.node, d.mnemonic, d.outcome, d.reason, d.frequency,
		       d.callees, d.total_size, d.cumulative, d.dispatch
		FROM decisions d
		JOIN passes p ON d.pass_id = p.id
		WHERE p.run_id = ? AND d.outcome = ?
		ORDER BY p.ordinal ASC, d.seq ASC
	`, runID, string(outcome))
}

func (s *Store) queryDecisions(ctx context.Context, query string, args ...any) ([]ir.Decision, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []ir.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return decisions, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPass(row scanner) (Pass, error) {
	var p Pass
	var changed int
	err := row.Scan(
		&p.ID,
		&p.RunID,
		&p.Ordinal,
		&p.Scenario,
		&p.Config,
		&p.GraphBefore,
		&p.GraphAfter,
		&p.DecisionsDigest,
		&changed,
		&p.Cumulative,
		&p.HeuristicVersion,
	)
	if err != nil {
		return Pass{}, err
	}
	p.Changed = changed != 0
	return p, nil
}

func scanDecision(row scanner) (ir.Decision, error) {
	var d ir.Decision
	var node int64
	var outcome, reason, dispatch, callees string
	err := row.Scan(
		&d.PassID,
		&d.Seq,
		&node,
		&d.Mnemonic,
		&outcome,
		&reason,
		&d.Frequency,
		&callees,
		&d.TotalSize,
		&d.Cumulative,
		&dispatch,
	)
	if err != nil {
		return ir.Decision{}, fmt.Errorf("scan decision: %w", err)
	}
	d.Node = ir.NodeID(node)
	d.Outcome = ir.Outcome(outcome)
	d.Reason = ir.Reason(reason)
	d.Dispatch = ir.Dispatch(dispatch)
	d.Callees, err = unmarshalCallees(callees)
	if err != nil {
		return ir.Decision{}, err
	}
	return d, nil
}
