package anomaly

import (
	"math"
	"testing"
)

func TestAveragePathLength(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{256, 2*(math.Log(255)+eulerGamma) - 2*255.0/256.0},
	}

	for _, tt := range tests {
		if got := averagePathLength(tt.n); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("averagePathLength(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 3},
		{100, 5},
		{10, 1.4},
	}

	for _, tt := range tests {
		if got := percentile(values, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestFit_SingleRow(t *testing.T) {
	f := Fit([][]float64{{10, math.Log1p(10)}}, 10, 0.01, 1)
	if d := f.Decision([]float64{10, math.Log1p(10)}); d != 0 {
		t.Errorf("Decision() for a single-row batch = %v, want 0", d)
	}
}

func TestFit_ScoresInRange(t *testing.T) {
	rows := make([][]float64, 64)
	for i := range rows {
		rows[i] = []float64{float64(i), math.Log1p(float64(i))}
	}

	f := Fit(rows, 25, 0.01, 7)
	for i, row := range rows {
		s := f.ScoreSample(row)
		if s < -1 || s >= 0 {
			t.Errorf("row %d score %v outside [-1, 0)", i, s)
		}
	}
}
