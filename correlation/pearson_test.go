package correlation

import (
	"math"
	"testing"
)

func TestPearsonSelfCorrelation(t *testing.T) {
	x := []float64{0.1, -0.2, 0.05, 0.3, -0.15, 0.07}
	if r := Pearson(x, x); math.Abs(r-1.0) > 1e-12 {
		t.Fatalf("expected 1.0, got %v", r)
	}
}

func TestPearsonNegatedSelf(t *testing.T) {
	x := []float64{0.1, -0.2, 0.05, 0.3, -0.15}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = -v
	}
	if r := Pearson(x, y); math.Abs(r+1.0) > 1e-12 {
		t.Fatalf("expected -1.0, got %v", r)
	}
}

func TestPearsonConstantVector(t *testing.T) {
	x := []float64{1, 1, 1, 1}
	y := []float64{0.1, 0.4, -0.2, 0.9}
	// 零方差：定义为 0，不产生 NaN
	if r := Pearson(x, y); r != 0 {
		t.Fatalf("expected 0 for constant vector, got %v", r)
	}
}

func TestPearsonDegenerateInputs(t *testing.T) {
	if r := Pearson(nil, nil); r != 0 {
		t.Fatalf("expected 0 for empty input, got %v", r)
	}
	if r := Pearson([]float64{1, 2}, []float64{1, 2, 3}); r != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", r)
	}
}

func TestPearsonNeverNaN(t *testing.T) {
	cases := [][2][]float64{
		{{0, 0, 0}, {0, 0, 0}},
		{{5, 5}, {1, 2}},
		{{}, {}},
	}
	for i, c := range cases {
		if r := Pearson(c[0], c[1]); math.IsNaN(r) {
			t.Fatalf("case %d produced NaN", i)
		}
	}
}
