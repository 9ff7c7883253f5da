package testutil

// FixedPassIDGenerator names every heuristic instance the same.
//
// Unlike heuristic.FixedGenerator, which hands out ids in sequence, this
// generator never runs out. Golden traces exclude pass ids, but the sqlite
// journal keys decisions by them, so scenarios pin one id per run.
//
// Stateless and safe for concurrent use.
type FixedPassIDGenerator struct {
	id string
}

// NewFixedPassIDGenerator creates a generator returning id.
//
// The id is typically the scenario's pass_id field:
//
//	pass_id: "scenario-small-monomorphic"
//
// If id is empty, Generate returns "test-pass-default".
func NewFixedPassIDGenerator(id string) *FixedPassIDGenerator {
	if id == "" {
		id = "test-pass-default"
	}
	return &FixedPassIDGenerator{id: id}
}

// Generate returns the fixed pass id.
func (g *FixedPassIDGenerator) Generate() string {
	return g.id
}
