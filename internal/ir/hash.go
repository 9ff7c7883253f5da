package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainGraph     = "polyinline/graph/v1"
	DomainDecisions = "polyinline/decisions/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Snapshot returns a canonical description of every live node: id, operator
// (with parameters) and inputs. Two graphs built by the same sequence of
// operations have identical snapshots.
func Snapshot(g *Graph) map[string]any {
	live := g.LiveNodes()
	nodes := make([]any, 0, len(live))
	for _, id := range live {
		inputs := make([]any, g.InputCount(id))
		for i := range inputs {
			inputs[i] = int64(g.InputAt(id, i))
		}
		nodes = append(nodes, map[string]any{
			"id":     int64(id),
			"op":     g.Op(id).String(),
			"inputs": inputs,
		})
	}
	return map[string]any{
		"version": SnapshotVersion,
		"nodes":   nodes,
	}
}

// GraphDigest computes the content digest of g's live nodes.
func GraphDigest(g *Graph) (string, error) {
	canonical, err := MarshalCanonical(Snapshot(g))
	if err != nil {
		return "", fmt.Errorf("GraphDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// DecisionsDigest computes the content digest of a decision journal.
// Pass ids are excluded, see Decision.CanonicalMap.
func DecisionsDigest(decisions []Decision) (string, error) {
	list := make([]any, len(decisions))
	for i, d := range decisions {
		list[i] = d.CanonicalMap()
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("DecisionsDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDecisions, canonical), nil
}

// MustGraphDigest is like GraphDigest but panics on error.
// Use only in tests.
func MustGraphDigest(g *Graph) string {
	d, err := GraphDigest(g)
	if err != nil {
		panic(err)
	}
	return d
}
