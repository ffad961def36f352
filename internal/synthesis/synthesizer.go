// Package synthesis converts the handful of coarse form inputs into the
// full biomarker feature vector the trained pipeline expects. Each schema
// position is filled independently by matching the feature name against an
// ordered rule table, so the output length always equals the schema length.
//
// Synthesis is deterministic: the same inputs and schema always produce a
// bit-identical vector, which keeps results reproducible and the response
// cache sound.
package synthesis

import "github.com/voicemetrics/updrs-meter/internal/types"

// Synthesizer maps SliderInputs onto a fixed feature schema. It holds no
// mutable state and is safe for concurrent use.
type Synthesizer struct {
	schema []string
}

// NewSynthesizer binds a synthesizer to the schema loaded at startup. The
// schema slice is not copied; callers must treat it as read-only.
func NewSynthesizer(schema []string) *Synthesizer {
	return &Synthesizer{schema: schema}
}

// Schema returns the bound feature schema.
func (s *Synthesizer) Schema() []string {
	return s.schema
}

// Synthesize produces one feature value per schema position. Inputs are
// clamped to their documented bounds first; an empty schema yields an
// empty vector.
func (s *Synthesizer) Synthesize(in types.SliderInputs) []float64 {
	in = in.Clamped()
	out := make([]float64, len(s.schema))
	for i, name := range s.schema {
		out[i] = valueFor(name, in)
	}
	return out
}

func valueFor(name string, in types.SliderInputs) float64 {
	for _, r := range ruleTable {
		if r.match(name) {
			return r.value(in)
		}
	}
	return fallbackValue(in)
}
