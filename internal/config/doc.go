// Package config loads heuristic configuration from CUE.
//
// A configuration file holds a single top-level "inlining" struct:
//
//	inlining: {
//		max_inlined_size_cumulative: 1200
//		mode:                        "stress"
//	}
//
// The struct is unified with the embedded #Config schema, so unknown
// fields, wrong types and out-of-range values are rejected with a source
// position. Fields that are not set keep heuristic.DefaultConfig values.
package config
