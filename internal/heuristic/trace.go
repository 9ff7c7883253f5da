package heuristic

import (
	"fmt"
	"io"
	"strings"
)

// trace logs a decision at debug level when inlining tracing is enabled.
func (h *Heuristic) trace(msg string, c *Candidate, args ...any) {
	if !h.cfg.TraceInlining {
		return
	}
	attrs := append([]any{
		"pass", h.passID,
		"node", int(c.Node),
		"op", h.graph.Mnemonic(c.Node),
	}, args...)
	h.logger.Debug(msg, attrs...)
}

// PrintCandidates writes the pending candidates in drain order:
//
//	Candidates for inlining (size=2):
//	  #12:Call, frequency: 0.5
//	  - size:20, name: f
func (h *Heuristic) PrintCandidates(w io.Writer) error {
	queued := h.candidates.Sorted()
	if _, err := fmt.Fprintf(w, "Candidates for inlining (size=%d):\n", len(queued)); err != nil {
		return err
	}
	for _, c := range queued {
		if _, err := fmt.Fprintf(w, "  #%d:%s, frequency: %s\n", c.Node, h.graph.Mnemonic(c.Node), c.Frequency); err != nil {
			return err
		}
		for i := 0; i < c.NumFunctions; i++ {
			s := c.SharedAt(i)
			if _, err := fmt.Fprintf(w, "  - size:%d, name: %s\n", s.BytecodeLength(), s.DebugName()); err != nil {
				return err
			}
		}
	}
	return nil
}

// CandidatesString is PrintCandidates into a string.
func (h *Heuristic) CandidatesString() string {
	var sb strings.Builder
	_ = h.PrintCandidates(&sb)
	return sb.String()
}
