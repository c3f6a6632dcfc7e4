package datalake

import (
	"context"
	"fmt"
	"os"

	"pacsguard/dataloader/appcontext"
)

// Client ingests a directory of PACS documents.
type Client interface {
	IngestXMLFiles(
		ctx context.Context,
		unprocessedDir string,
		processedDir string,
		moveProcessedFiles bool,
	) (*Stats, error)
}

type client struct {
	processor *Processor
}

// NewClient creates a Client backed by processor.
func NewClient(processor *Processor) Client {
	return &client{processor: processor}
}

// IngestXMLFiles processes every XML file in unprocessedDir, one at a time.
// A failing file is recorded in the stats and does not stop the others.
func (c *client) IngestXMLFiles(
	ctx context.Context,
	unprocessedDir string,
	processedDir string,
	moveProcessedFiles bool,
) (*Stats, error) {
	logger := appcontext.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "Reading data from sink", "sink", unprocessedDir)

	files, err := os.ReadDir(unprocessedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	stats := NewStats()
	stats.TotalFiles = len(files)

	for _, file := range files {
		if err = ctx.Err(); err != nil {
			return stats, fmt.Errorf("ingestion interrupted: %w", err)
		}

		// Validate that it's a real XML file.
		if !validateFile(file) {
			reason := "Not an XML file"
			stats.AddFailure(file.Name(), reason)
			logger.WarnContext(ctx, "file was not processed", "fileName", file.Name(), "reason", reason)
			continue
		}

		outcome, processErr := c.processor.ProcessFile(ctx, file.Name(), unprocessedDir, processedDir, moveProcessedFiles)
		if processErr != nil {
			stats.AddFailure(file.Name(), processErr.Error())
			logger.ErrorContext(ctx, "failed to process file", "file", file.Name(), "error", processErr)
			continue
		}

		stats.IncrementProcessed(outcome)
		outcome.Report.Log(logger)
	}

	return stats, nil
}
