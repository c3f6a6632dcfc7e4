package datalake

import (
	"fmt"
	"log/slog"
)

// Stats holds statistics about the file processing.
type Stats struct {
	TotalFiles        int
	ProcessedFiles    int
	FailedFiles       int
	TotalTransactions int
	TotalAnomalies    int
	MirrorFailures    int
	Failures          map[string]string
}

// NewStats creates and initializes a new Stats object.
func NewStats() *Stats {
	return &Stats{
		Failures: make(map[string]string),
	}
}

// AddFailure records a failed file and its reason.
func (s *Stats) AddFailure(file, reason string) {
	s.FailedFiles++
	s.Failures[file] = reason
}

// IncrementProcessed records a successfully processed file.
func (s *Stats) IncrementProcessed(outcome *Outcome) {
	s.ProcessedFiles++
	if outcome == nil {
		return
	}
	s.TotalTransactions += len(outcome.Transactions)
	s.TotalAnomalies += outcome.Anomalies()
	if outcome.MirrorErr != nil {
		s.MirrorFailures++
	}
}

// Log prints the final statistics to the provided logger.
func (s *Stats) Log(logger *slog.Logger) {
	logger.Info("--- Ingestion Stats ---")
	logger.Info(fmt.Sprintf("Total files found: %d", s.TotalFiles))
	logger.Info(fmt.Sprintf("Files processed: %d", s.ProcessedFiles))
	logger.Info(fmt.Sprintf("Files failed/skipped: %d", s.FailedFiles))
	logger.Info(fmt.Sprintf("Transactions saved: %d", s.TotalTransactions))
	logger.Info(fmt.Sprintf("Anomalies flagged: %d", s.TotalAnomalies))
	if s.MirrorFailures > 0 {
		logger.Info(fmt.Sprintf("Datalake mirror failures: %d", s.MirrorFailures))
	}
	if s.FailedFiles > 0 {
		logger.Info("Failed files:")
		for file, reason := range s.Failures {
			logger.Info(fmt.Sprintf("- %s: %s", file, reason))
		}
	}
	logger.Info("-----------------------")
}
