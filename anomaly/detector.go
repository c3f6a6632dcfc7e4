// Package anomaly scores canonical transactions with an isolation forest
// trained on each batch.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake/model"
)

// Fixed model hyperparameters. Every batch is its own population, so the
// model is retrained per call with the same seed.
const (
	NumTrees      = 100
	Contamination = 0.01
	Seed          = 42
)

// ErrDetection is wrapped by every failure returned from Detect.
var ErrDetection = errors.New("detection error")

// MissingFeatureError reports a row without a usable amount feature.
func MissingFeatureError(row int, feature string) error {
	return fmt.Errorf("%w, row %d has no usable %s", ErrDetection, row, feature)
}

// Detector flags outlying transactions on amount and amount_log.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect trains a forest on rows and returns them scored, in the same order.
func (d *Detector) Detect(ctx context.Context, rows []model.CanonicalTransaction) ([]model.ScoredTransaction, error) {
	logger := appcontext.LoggerFromContext(ctx)

	features, err := featureMatrix(rows)
	if err != nil {
		return nil, err
	}
	if len(rows) < NumTrees {
		logger.DebugContext(ctx, "Small batch, anomaly scores are unreliable", "rows", len(rows))
	}

	forest := Fit(features, NumTrees, Contamination, Seed)

	scored := make([]model.ScoredTransaction, len(rows))
	flagged := 0
	for i, row := range rows {
		decision := forest.Decision(features[i])
		scored[i] = model.ScoredTransaction{
			CanonicalTransaction: row,
			AnomalyScore:         decision,
			IsAnomaly:            decision < 0,
		}
		if scored[i].IsAnomaly {
			flagged++
		}
	}

	logger.InfoContext(ctx, "Scored batch", "rows", len(rows), "anomalies", flagged, "offset", forest.Offset())
	return scored, nil
}

func featureMatrix(rows []model.CanonicalTransaction) ([][]float64, error) {
	features := make([][]float64, len(rows))
	for i, row := range rows {
		if row.Amount == nil || !finite(*row.Amount) {
			return nil, MissingFeatureError(i, "amount")
		}
		if row.AmountLog == nil || !finite(*row.AmountLog) {
			return nil, MissingFeatureError(i, "amount_log")
		}
		features[i] = []float64{*row.Amount, *row.AmountLog}
	}

	return features, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
