// Package model loads the trained travel-time artifact and runs inference.
// The artifact is a JSON ensemble exported by the offline training pipeline:
// a feature-name list (the schema contract) and a set of member predictors
// whose spread provides the uncertainty estimate.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/stat"
)

// ErrSchemaMismatch signals that the feature vector does not match the
// artifact's trained schema. This is a deployment/versioning bug, never a
// runtime business condition, and must not be converted into a prediction.
var ErrSchemaMismatch = errors.New("feature vector does not match model schema")

// Member is one predictor in the ensemble: a linear scorer over the feature
// vector. The training pipeline exports bagged members so their disagreement
// approximates prediction variance.
type Member struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Artifact is a loaded, immutable trained model. Safe for concurrent
// inference after Load.
type Artifact struct {
	SchemaVersion int      `json:"schema_version"`
	FeatureNames  []string `json:"feature_names"`
	Members       []Member `json:"members"`
}

// Load reads and validates an artifact from disk.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (a *Artifact) validate() error {
	if len(a.FeatureNames) == 0 {
		return fmt.Errorf("model artifact has no feature names")
	}
	if len(a.Members) == 0 {
		return fmt.Errorf("model artifact has no ensemble members")
	}
	for i, m := range a.Members {
		if len(m.Weights) != len(a.FeatureNames) {
			return fmt.Errorf("member %d has %d weights for %d features",
				i, len(m.Weights), len(a.FeatureNames))
		}
	}
	return nil
}

// CheckSchema verifies the builder's feature schema against the artifact's.
// A mismatch means the deployed artifact was trained against a different
// feature contract.
func (a *Artifact) CheckSchema(names []string) error {
	if len(names) != len(a.FeatureNames) {
		return fmt.Errorf("%w: builder has %d features, artifact expects %d",
			ErrSchemaMismatch, len(names), len(a.FeatureNames))
	}
	for i, name := range names {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("%w: feature %d is %q, artifact expects %q",
				ErrSchemaMismatch, i, name, a.FeatureNames[i])
		}
	}
	return nil
}

// Infer runs the ensemble over a feature vector and returns the point
// estimate with an optional variance. The point estimate is the member mean;
// with at least two members the member standard deviation is reported as the
// uncertainty, otherwise hasVariance is false.
func (a *Artifact) Infer(vector []float64) (point, stddev float64, hasVariance bool, err error) {
	if len(vector) != len(a.FeatureNames) {
		return 0, 0, false, fmt.Errorf("%w: got %d values, expected %d",
			ErrSchemaMismatch, len(vector), len(a.FeatureNames))
	}

	predictions := make([]float64, len(a.Members))
	for i, m := range a.Members {
		p := m.Intercept
		for j, w := range m.Weights {
			p += w * vector[j]
		}
		predictions[i] = p
	}

	point = stat.Mean(predictions, nil)
	if len(predictions) >= 2 {
		return point, stat.StdDev(predictions, nil), true, nil
	}
	return point, 0, false, nil
}
