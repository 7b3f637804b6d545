package cluster

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/vectorize"
)

func TestCosineDistance_Bounds(t *testing.T) {
	cases := []struct {
		a, b []float64
	}{
		{[]float64{1, 0}, []float64{1, 0}},
		{[]float64{1, 0}, []float64{0, 1}},
		{[]float64{1, 0}, []float64{-1, 0}},
		{[]float64{0.3, 0.7}, []float64{0.9, 0.1}},
	}
	for _, c := range cases {
		d := CosineDistance(c.a, c.b)
		if d < 0 || d > 2 {
			t.Errorf("distance(%v, %v) = %v, out of [0, 2]", c.a, c.b, d)
		}
	}
}

func TestCosineDistance_ZeroVector(t *testing.T) {
	zero := []float64{0, 0, 0}
	if d := CosineDistance(zero, []float64{1, 2, 3}); d != 1 {
		t.Errorf("distance to zero vector = %v, want exactly 1", d)
	}
	if d := CosineDistance(zero, zero); d != 1 {
		t.Errorf("distance between zero vectors = %v, want 1", d)
	}
}

func TestSharedVocabulary_FirstSeenOrder(t *testing.T) {
	vectors := []vectorize.Vector{
		{"beta": 1, "alpha": 1},
		{"gamma": 1, "alpha": 1},
	}
	vocab := SharedVocabulary(vectors)
	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(vocab, want) {
		t.Errorf("vocab = %v, want %v", vocab, want)
	}
}

func TestFit_InvalidArguments(t *testing.T) {
	km := New()
	if _, err := km.Fit(nil, 1); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty corpus: err = %v, want ErrInvalidArgument", err)
	}
	vectors := []vectorize.Vector{{"a": 1}, {"b": 1}}
	if _, err := km.Fit(vectors, 0); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("k=0: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := km.Fit(vectors, 3); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("k>n: err = %v, want ErrInvalidArgument", err)
	}
}

func twoBlobs() []vectorize.Vector {
	// Two well-separated groups on orthogonal axes.
	return []vectorize.Vector{
		{"cat": 1.0, "dog": 0.9},
		{"cat": 0.8, "dog": 1.0},
		{"cat": 0.9, "dog": 0.8},
		{"stock": 1.0, "bond": 0.9},
		{"stock": 0.9, "bond": 1.0},
		{"stock": 0.8, "bond": 0.8},
	}
}

func TestFit_SeparatesDistinctGroups(t *testing.T) {
	km := New(WithRand(rand.New(rand.NewSource(7))))
	res, err := km.Fit(twoBlobs(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Labels) != 6 {
		t.Fatalf("len(labels) = %d, want 6", len(res.Labels))
	}
	// All animal docs share one label, all finance docs the other.
	for i := 1; i < 3; i++ {
		if res.Labels[i] != res.Labels[0] {
			t.Errorf("labels = %v, animal docs split", res.Labels)
		}
	}
	for i := 4; i < 6; i++ {
		if res.Labels[i] != res.Labels[3] {
			t.Errorf("labels = %v, finance docs split", res.Labels)
		}
	}
	if res.Labels[0] == res.Labels[3] {
		t.Errorf("labels = %v, groups merged", res.Labels)
	}
	if res.Inertia < 0 {
		t.Errorf("inertia = %v, want >= 0", res.Inertia)
	}
}

func TestFit_DeterministicWithFixedRand(t *testing.T) {
	vectors := twoBlobs()
	first, err := New(WithRand(rand.New(rand.NewSource(42)))).Fit(vectors, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := New(WithRand(rand.New(rand.NewSource(42)))).Fit(vectors, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Labels, second.Labels) {
		t.Errorf("labels differ: %v vs %v", first.Labels, second.Labels)
	}
	if !reflect.DeepEqual(first.Centroids, second.Centroids) {
		t.Error("centroids differ between identical runs")
	}
	if first.Inertia != second.Inertia {
		t.Errorf("inertia differs: %v vs %v", first.Inertia, second.Inertia)
	}
}

func TestFit_EmptyVectorGetsLabeled(t *testing.T) {
	vectors := []vectorize.Vector{{"a": 1}, {}, {"b": 1}}
	res, err := New(WithRand(rand.New(rand.NewSource(3)))).Fit(vectors, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(res.Labels))
	}
	for _, l := range res.Labels {
		if l < 0 || l >= 2 {
			t.Errorf("label %d out of range", l)
		}
	}
	if math.IsNaN(res.Inertia) {
		t.Error("inertia is NaN")
	}
}

func TestFit_KEqualsN(t *testing.T) {
	vectors := []vectorize.Vector{{"a": 1}, {"b": 1}, {"c": 1}}
	res, err := New(WithRand(rand.New(rand.NewSource(1)))).Fit(vectors, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[int]bool)
	for _, l := range res.Labels {
		seen[l] = true
	}
	if len(seen) != 3 {
		t.Errorf("labels = %v, want each point its own cluster", res.Labels)
	}
}
