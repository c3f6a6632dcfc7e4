// Package datalake runs PACS documents through validation, extraction,
// cleansing, scoring and persistence.
package datalake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/model"
	"pacsguard/dataloader/datalake/repository"
	"pacsguard/dataloader/report"
	"pacsguard/dataloader/transform"
	"pacsguard/dataloader/validation"
)

var errRowCountChanged = errors.New("row count changed between pipeline stages")
var errTargetFileNotFound = errors.New("the valid target file was not found")

// ValidFileNotFoundError reports a file name that escapes the inbox.
func ValidFileNotFoundError(path string) error {
	return fmt.Errorf("%w, %s", errTargetFileNotFound, path)
}

// RowCountError reports a stage that dropped or added rows.
func RowCountError(stage string, want, got int) error {
	return fmt.Errorf("%w, %s returned %d rows for %d inputs", errRowCountChanged, stage, got, want)
}

// Extractor reads raw transactions out of a document.
type Extractor interface {
	Extract(ctx context.Context, xmlBytes []byte) ([]model.RawTransaction, error)
}

// Detector scores canonical transactions.
type Detector interface {
	Detect(ctx context.Context, rows []model.CanonicalTransaction) ([]model.ScoredTransaction, error)
}

// Publisher receives the report of every saved batch.
type Publisher interface {
	Publish(ctx context.Context, outcome *Outcome) error
}

// Outcome is the result of processing one document.
type Outcome struct {
	Source       string
	BatchID      string
	FileType     datasource.DataSource
	Version      string
	Transactions []model.ScoredTransaction
	Report       report.Result
	// Saved is true once the primary repository committed the batch.
	Saved bool
	// MirrorErr is set when the datalake mirror failed. The batch still counts
	// as saved.
	MirrorErr error
}

// Anomalies counts the flagged rows of the batch.
func (o *Outcome) Anomalies() int {
	n := 0
	for _, tx := range o.Transactions {
		if tx.IsAnomaly {
			n++
		}
	}

	return n
}

// Processor holds the stages of the pipeline.
type Processor struct {
	Validator  validation.Validator
	Extractor  Extractor
	Detector   Detector
	Classifier datasource.InfoExtractor
	// Repo is optional. Without it a batch is scored and reported only.
	Repo repository.Repository
	// Mirror is optional.
	Mirror repository.Repository
	// Publisher is optional.
	Publisher Publisher
}

// ProcessDocument runs one document start to finish. Validation, extraction,
// transformation, detection and primary persistence failures abort the
// batch; report, mirror and publish failures do not.
func (p *Processor) ProcessDocument(ctx context.Context, source string, raw []byte) (*Outcome, error) {
	logger := appcontext.LoggerFromContext(ctx).With("source", source)
	ctx = appcontext.WithLogger(ctx, logger)

	if result := p.Validator.Validate(ctx, raw); !result.Valid {
		return nil, validation.ValidationError(source, result)
	}

	rawRows, err := p.Extractor.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}

	canonical, err := transform.Transform(ctx, rawRows)
	if err != nil {
		return nil, err
	}
	if len(canonical) != len(rawRows) {
		return nil, RowCountError("transform", len(rawRows), len(canonical))
	}

	scored, err := p.Detector.Detect(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if len(scored) != len(canonical) {
		return nil, RowCountError("detect", len(canonical), len(scored))
	}

	info, err := p.Classifier.ExtractInfo(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to classify document: %w", err)
	}

	outcome := &Outcome{
		Source:       source,
		BatchID:      uuid.New().String(),
		FileType:     info.DataSource,
		Version:      info.Version,
		Transactions: scored,
		Report:       report.Build(scored),
	}
	logger.InfoContext(ctx, "Document scored",
		"batchId", outcome.BatchID, "fileType", outcome.FileType, "rows", len(scored), "anomalies", outcome.Anomalies())

	if p.Repo == nil {
		return outcome, nil
	}

	if err = p.Repo.UpsertTransactions(ctx, scored, info.DataSource); err != nil {
		return outcome, fmt.Errorf("failed to upsert transactions: %w", err)
	}
	outcome.Saved = true

	if p.Mirror != nil {
		if mirrorErr := p.Mirror.UpsertTransactions(ctx, scored, info.DataSource); mirrorErr != nil {
			logger.WarnContext(ctx, "Datalake mirror failed", "batchId", outcome.BatchID, "error", mirrorErr)
			outcome.MirrorErr = mirrorErr
		}
	}

	if p.Publisher != nil {
		if pubErr := p.Publisher.Publish(ctx, outcome); pubErr != nil {
			logger.WarnContext(ctx, "Failed to publish anomaly report", "batchId", outcome.BatchID, "error", pubErr)
		}
	}

	return outcome, nil
}

// ProcessFile reads fileName from unprocessedDir, processes it and optionally
// moves it to processedDir.
func (p *Processor) ProcessFile(
	ctx context.Context,
	fileName string,
	unprocessedDir string,
	processedDir string,
	moveProcessedFiles bool,
) (*Outcome, error) {
	cleanFileName := filepath.Clean(fileName)
	if strings.HasPrefix(cleanFileName, "..") || filepath.IsAbs(cleanFileName) {
		return nil, ValidFileNotFoundError(fileName)
	}

	filePath := filepath.Join(unprocessedDir, cleanFileName)
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	outcome, err := p.ProcessDocument(ctx, cleanFileName, raw)
	if err != nil {
		return outcome, err
	}

	if moveProcessedFiles {
		if err = moveFile(filePath, processedDir); err != nil {
			return outcome, fmt.Errorf("failed to move file: %w", err)
		}
	}

	return outcome, nil
}

// Return true only if the entry pointed to by FILE is an XML file.
func validateFile(
	file os.DirEntry,
) bool {
	return !file.IsDir() && strings.EqualFold(filepath.Ext(file.Name()), ".xml")
}

func moveFile(filePath, processedDir string) error {
	var err error
	if _, err = os.Stat(processedDir); os.IsNotExist(err) {
		if err = os.MkdirAll(processedDir, 0o750); err != nil {
			return fmt.Errorf("failed to create processed directory '%s': %w", processedDir, err)
		}
	}

	fileName := filepath.Base(filePath)
	newPath := filepath.Join(processedDir, fileName)

	if err = os.Rename(filePath, newPath); err != nil {
		return fmt.Errorf("failed to move file from '%s' to '%s': %w", filePath, newPath, err)
	}

	return nil
}
