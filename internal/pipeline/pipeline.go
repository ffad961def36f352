// Package pipeline applies the trained standardize -> project -> predict
// chain to a synthesized feature vector. The three stages are opaque
// consumers of the vector; this package's contract is to apply them in
// order and to fail loudly on any shape mismatch rather than truncate or
// pad.
package pipeline

import "fmt"

// ShapeError reports a vector whose length does not match what a stage
// expects. It always indicates a bug upstream of the pipeline.
type ShapeError struct {
	Stage string
	Got   int
	Want  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: vector length %d, expected %d", e.Stage, e.Got, e.Want)
}

// Pipeline holds the loaded artifacts. Immutable after construction and
// safe for concurrent use.
type Pipeline struct {
	artifacts *Artifacts
}

// New wraps validated artifacts in a pipeline.
func New(a *Artifacts) *Pipeline {
	return &Pipeline{artifacts: a}
}

// Schema returns the feature schema the pipeline was trained on.
func (p *Pipeline) Schema() []string {
	return p.artifacts.Schema
}

// ReducedDim returns the dimensionality after projection.
func (p *Pipeline) ReducedDim() int {
	return len(p.artifacts.PCA.Components)
}

// Standardize applies per-feature (x - mean) / scale. A zero scale is
// treated as 1 so a constant training column cannot divide by zero.
func (p *Pipeline) Standardize(vector []float64) ([]float64, error) {
	sc := p.artifacts.Scaler
	if len(vector) != len(sc.Mean) {
		return nil, &ShapeError{Stage: "standardize", Got: len(vector), Want: len(sc.Mean)}
	}

	out := make([]float64, len(vector))
	for i, v := range vector {
		s := sc.Scale[i]
		if s == 0 {
			s = 1
		}
		out[i] = (v - sc.Mean[i]) / s
	}
	return out, nil
}

// Project centers the scaled vector and multiplies it by the component
// rows, producing the reduced vector.
func (p *Pipeline) Project(scaled []float64) ([]float64, error) {
	pca := p.artifacts.PCA
	if len(scaled) != len(pca.Mean) {
		return nil, &ShapeError{Stage: "project", Got: len(scaled), Want: len(pca.Mean)}
	}

	out := make([]float64, len(pca.Components))
	for i, row := range pca.Components {
		dot := 0.0
		for j, v := range scaled {
			dot += (v - pca.Mean[j]) * row[j]
		}
		out[i] = dot
	}
	return out, nil
}

// PredictSeverity evaluates the regression in reduced space.
func (p *Pipeline) PredictSeverity(reduced []float64) (float64, error) {
	m := p.artifacts.Model
	if len(reduced) != len(m.Coefficients) {
		return 0, &ShapeError{Stage: "predict", Got: len(reduced), Want: len(m.Coefficients)}
	}

	score := m.Intercept
	for i, v := range reduced {
		score += m.Coefficients[i] * v
	}
	return score, nil
}

// Run applies the three stages in their fixed order.
func (p *Pipeline) Run(vector []float64) (float64, error) {
	scaled, err := p.Standardize(vector)
	if err != nil {
		return 0, err
	}
	reduced, err := p.Project(scaled)
	if err != nil {
		return 0, err
	}
	return p.PredictSeverity(reduced)
}
