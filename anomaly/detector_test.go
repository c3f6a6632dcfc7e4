package anomaly_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"pacsguard/dataloader/anomaly"
	"pacsguard/dataloader/datalake/model"
)

func canonical(amount float64) model.CanonicalTransaction {
	amountLog := math.Log1p(amount)
	return model.CanonicalTransaction{Amount: &amount, AmountLog: &amountLog}
}

func TestDetect_TwoIdenticalRows(t *testing.T) {
	rows := []model.CanonicalTransaction{canonical(100), canonical(100)}

	scored, err := anomaly.NewDetector().Detect(context.Background(), rows)
	if err != nil {
		t.Fatalf("Detect() returned an unexpected error: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("Detect() returned %d rows, want 2", len(scored))
	}
	for i, s := range scored {
		if s.IsAnomaly {
			t.Errorf("row %d flagged as an anomaly, want none for identical rows", i)
		}
		if s.AnomalyScore != 0 {
			t.Errorf("row %d score got %v, want 0", i, s.AnomalyScore)
		}
	}
}

func TestDetect_FlagsClearOutlier(t *testing.T) {
	var rows []model.CanonicalTransaction
	for i := range 200 {
		rows = append(rows, canonical(100+float64(i%50)*3.5))
	}
	outlier := len(rows)
	rows = append(rows, canonical(2_500_000))

	scored, err := anomaly.NewDetector().Detect(context.Background(), rows)
	if err != nil {
		t.Fatalf("Detect() returned an unexpected error: %v", err)
	}
	if len(scored) != len(rows) {
		t.Fatalf("Detect() returned %d rows, want %d", len(scored), len(rows))
	}
	if !scored[outlier].IsAnomaly {
		t.Errorf("the 2.5M transfer was not flagged (score %v)", scored[outlier].AnomalyScore)
	}

	flagged := 0
	for i, s := range scored {
		if s.AnomalyScore < scored[outlier].AnomalyScore {
			t.Errorf("row %d scored %v, lower than the outlier's %v", i, s.AnomalyScore, scored[outlier].AnomalyScore)
		}
		if s.IsAnomaly != (s.AnomalyScore < 0) {
			t.Errorf("row %d label %v disagrees with score %v", i, s.IsAnomaly, s.AnomalyScore)
		}
		if *s.Amount != *rows[i].Amount {
			t.Errorf("row %d reordered: amount %v, want %v", i, *s.Amount, *rows[i].Amount)
		}
		if s.IsAnomaly {
			flagged++
		}
	}
	if flagged > 5 {
		t.Errorf("%d rows flagged, expected about 1%% of %d", flagged, len(rows))
	}
}

func TestDetect_Deterministic(t *testing.T) {
	var rows []model.CanonicalTransaction
	for i := range 120 {
		rows = append(rows, canonical(float64((i*7919)%1000)+1))
	}

	first, err := anomaly.NewDetector().Detect(context.Background(), rows)
	if err != nil {
		t.Fatalf("Detect() returned an unexpected error: %v", err)
	}
	second, err := anomaly.NewDetector().Detect(context.Background(), rows)
	if err != nil {
		t.Fatalf("Detect() returned an unexpected error: %v", err)
	}
	for i := range first {
		if first[i].AnomalyScore != second[i].AnomalyScore {
			t.Fatalf("row %d scored %v then %v, want identical runs", i, first[i].AnomalyScore, second[i].AnomalyScore)
		}
	}
}

func TestDetect_MissingAmount(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		row  model.CanonicalTransaction
	}{
		{"nil amount", model.CanonicalTransaction{}},
		{"nil amount_log", model.CanonicalTransaction{Amount: new(float64)}},
		{"nan amount", model.CanonicalTransaction{Amount: &nan, AmountLog: new(float64)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []model.CanonicalTransaction{canonical(10), tt.row}
			scored, err := anomaly.NewDetector().Detect(context.Background(), rows)
			if !errors.Is(err, anomaly.ErrDetection) {
				t.Errorf("Detect() error = %v, want ErrDetection", err)
			}
			if scored != nil {
				t.Errorf("Detect() returned %d rows alongside an error", len(scored))
			}
		})
	}
}

func TestDetect_Empty(t *testing.T) {
	scored, err := anomaly.NewDetector().Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Detect() returned an unexpected error: %v", err)
	}
	if len(scored) != 0 {
		t.Errorf("Detect() returned %d rows for an empty batch", len(scored))
	}
}
