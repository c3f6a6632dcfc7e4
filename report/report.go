// Package report summarizes the flagged rows of a scored batch.
package report

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/montanaflynn/stats"

	"pacsguard/dataloader/datalake/model"
)

// TopN is the number of largest flagged transactions kept in a report.
const TopN = 5

// NoAnomaliesMessage is the Info text of a StatusNoAnomalies result.
const NoAnomaliesMessage = "no anomalies detected"

// Status tells which field of a Result is populated.
type Status string

const (
	// StatusOK means Report is set.
	StatusOK Status = "ok"
	// StatusNoAnomalies means nothing was flagged; Info is set.
	StatusNoAnomalies Status = "no_anomalies"
	// StatusError means the batch could not be summarized; Error is set.
	StatusError Status = "error"
)

// Result is the outcome of Build. Building a report never fails the batch.
type Result struct {
	Status Status               `json:"status"`
	Report *model.AnomalyReport `json:"report,omitempty"`
	Info   string               `json:"info,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// Build aggregates the flagged rows of scored.
func Build(scored []model.ScoredTransaction) Result {
	var flagged []model.ScoredTransaction
	for i, row := range scored {
		if !row.IsAnomaly {
			continue
		}
		if row.Amount == nil {
			return Result{Status: StatusError, Error: fmt.Sprintf("flagged row %d has no amount", i)}
		}
		flagged = append(flagged, row)
	}

	if len(flagged) == 0 {
		return Result{Status: StatusNoAnomalies, Info: NoAnomaliesMessage}
	}

	amounts := make([]float64, len(flagged))
	scores := make([]float64, len(flagged))
	for i, row := range flagged {
		amounts[i] = *row.Amount
		scores[i] = row.AnomalyScore
	}

	mean, err := stats.Mean(amounts)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}
	maxAmount, err := stats.Max(amounts)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}
	minScore, err := stats.Min(scores)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}

	top := append([]model.ScoredTransaction(nil), flagged...)
	sort.SliceStable(top, func(i, j int) bool {
		return *top[i].Amount > *top[j].Amount
	})
	if len(top) > TopN {
		top = top[:TopN]
	}

	return Result{
		Status: StatusOK,
		Report: &model.AnomalyReport{
			Count:           len(flagged),
			MeanAmount:      mean,
			MaxAmount:       maxAmount,
			MinScore:        minScore,
			TopTransactions: top,
		},
	}
}

// Log prints the result to the provided logger.
func (r Result) Log(logger *slog.Logger) {
	logger.Info("--- Anomaly Report ---")
	switch r.Status {
	case StatusOK:
		logger.Info(fmt.Sprintf("Anomalies: %d", r.Report.Count))
		logger.Info(fmt.Sprintf("Mean amount: %.2f", r.Report.MeanAmount))
		logger.Info(fmt.Sprintf("Max amount: %.2f", r.Report.MaxAmount))
		logger.Info(fmt.Sprintf("Min score: %.4f", r.Report.MinScore))
		for _, tx := range r.Report.TopTransactions {
			logger.Info(fmt.Sprintf("- %s %.2f %s (score %.4f)",
				valueOr(tx.TransactionID, "<no id>"), *tx.Amount, tx.Currency, tx.AnomalyScore))
		}
	case StatusNoAnomalies:
		logger.Info(r.Info)
	default:
		logger.Warn("Report unavailable", "error", r.Error)
	}
	logger.Info("----------------------")
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}

	return *s
}
