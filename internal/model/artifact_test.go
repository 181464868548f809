package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestLoadValidArtifact(t *testing.T) {
	path := writeArtifact(t, `{
		"schema_version": 1,
		"feature_names": ["a", "b"],
		"members": [
			{"weights": [1.0, 2.0], "intercept": 5.0},
			{"weights": [1.0, 2.0], "intercept": 7.0}
		]
	}`)

	artifact, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(artifact.Members) != 2 {
		t.Errorf("members = %d, want 2", len(artifact.Members))
	}
}

func TestLoadRejectsBadArtifacts(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{{`},
		{"no members", `{"feature_names": ["a"], "members": []}`},
		{"no features", `{"feature_names": [], "members": [{"weights": [], "intercept": 1}]}`},
		{"weight length mismatch", `{"feature_names": ["a", "b"], "members": [{"weights": [1.0], "intercept": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeArtifact(t, tt.content)); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestCheckSchema(t *testing.T) {
	artifact := &Artifact{
		FeatureNames: []string{"a", "b"},
		Members:      []Member{{Weights: []float64{0, 0}}},
	}

	if err := artifact.CheckSchema([]string{"a", "b"}); err != nil {
		t.Errorf("matching schema rejected: %v", err)
	}
	if err := artifact.CheckSchema([]string{"a"}); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("length mismatch = %v, want ErrSchemaMismatch", err)
	}
	if err := artifact.CheckSchema([]string{"a", "c"}); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("name mismatch = %v, want ErrSchemaMismatch", err)
	}
}

func TestInferEnsembleMeanAndSpread(t *testing.T) {
	artifact := &Artifact{
		FeatureNames: []string{"x"},
		Members: []Member{
			{Weights: []float64{0}, Intercept: 50},
			{Weights: []float64{0}, Intercept: 70},
		},
	}

	point, stddev, hasVariance, err := artifact.Infer([]float64{1})
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if point != 60 {
		t.Errorf("point = %g, want 60", point)
	}
	if !hasVariance {
		t.Error("two members should yield a variance estimate")
	}
	// Sample stddev of {50, 70}
	if want := math.Sqrt(200); math.Abs(stddev-want) > 1e-9 {
		t.Errorf("stddev = %g, want %g", stddev, want)
	}
}

func TestInferAppliesWeights(t *testing.T) {
	artifact := &Artifact{
		FeatureNames: []string{"x", "y"},
		Members: []Member{
			{Weights: []float64{2, 3}, Intercept: 1},
		},
	}

	point, _, hasVariance, err := artifact.Infer([]float64{4, 5})
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if want := 1.0 + 2*4 + 3*5; point != want {
		t.Errorf("point = %g, want %g", point, want)
	}
	if hasVariance {
		t.Error("single member should not report variance")
	}
}

func TestInferRejectsWrongLength(t *testing.T) {
	artifact := &Artifact{
		FeatureNames: []string{"x", "y"},
		Members:      []Member{{Weights: []float64{1, 1}}},
	}

	if _, _, _, err := artifact.Infer([]float64{1}); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("wrong vector length = %v, want ErrSchemaMismatch", err)
	}
}
