package store

import (
	"context"
	"fmt"

	"github.com/roach88/polyinline/internal/ir"
)

// DigestMismatchError reports a stored pass whose decisions no longer hash
// to the digest recorded with it.
type DigestMismatchError struct {
	PassID   string
	Recorded string
	Computed string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("pass %s: decisions digest %s does not match recorded %s",
		e.PassID, e.Computed, e.Recorded)
}

// VerifyPass recomputes the decisions digest of a stored pass and compares
// it with the digest recorded when the pass was written.
func (s *Store) VerifyPass(ctx context.Context, passID string) error {
	p, err := s.ReadPass(ctx, passID)
	if err != nil {
		return err
	}
	decisions, err := s.ReadDecisions(ctx, passID)
	if err != nil {
		return err
	}
	computed, err := ir.DecisionsDigest(decisions)
	if err != nil {
		return fmt.Errorf("verify pass %s: %w", passID, err)
	}
	if computed != p.DecisionsDigest {
		return &DigestMismatchError{PassID: passID, Recorded: p.DecisionsDigest, Computed: computed}
	}
	return nil
}

// VerifyRun verifies every pass of a run and returns the first mismatch.
func (s *Store) VerifyRun(ctx context.Context, runID string) error {
	passes, err := s.ListPasses(ctx, runID)
	if err != nil {
		return err
	}
	if len(passes) == 0 {
		return fmt.Errorf("verify run %s: %w", runID, ErrPassNotFound)
	}
	for _, p := range passes {
		if err := s.VerifyPass(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}
