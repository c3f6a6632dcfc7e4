package ingest

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"pacsguard/dataloader/anomaly"
	"pacsguard/dataloader/apiclient"
	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/config"
	"pacsguard/dataloader/datalake"
	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/repository"
	"pacsguard/dataloader/iso20022"
	"pacsguard/dataloader/storage"
	"pacsguard/dataloader/validation"
)

// Store is the primary repository together with its lifecycle.
type Store interface {
	repository.Repository
	Open(ctx context.Context) error
	Init(ctx context.Context) error
	Upgrade(ctx context.Context) error
	Close() error
}

// MongoConnector opens the datalake mirror connection.
type MongoConnector func(ctx context.Context, uri string) (storage.MongoClient, error)

// SinkDependencies holds all the dependencies for the Sink.
type SinkDependencies struct {
	Config *config.Config
	Store  Store
	// ConnectMongo defaults to storage.ConnectToMongoDB.
	ConnectMongo MongoConnector
	// HTTPClient is used by the report publisher. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Sink orchestrates the data ingestion process by calling datalake.IngestXMLFiles.
// It holds all the necessary dependencies and configuration for that call.
type Sink struct {
	deps               SinkDependencies
	UnprocessedDir     string
	ProcessedDir       string
	MoveProcessedFiles bool
}

// NewSink creates a new Sink instance.
func NewSink(deps SinkDependencies) *Sink {
	if deps.ConnectMongo == nil {
		deps.ConnectMongo = storage.ConnectToMongoDB
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}

	return &Sink{
		deps:               deps,
		UnprocessedDir:     deps.Config.UnprocessedDir,
		ProcessedDir:       deps.Config.ProcessedDir,
		MoveProcessedFiles: deps.Config.MoveProcessedFiles,
	}
}

// Ingest handles the main data ingestion process.
func (s *Sink) Ingest(ctx context.Context) error {
	logger := appcontext.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "Starting data ingestion process")

	// Directory existence check
	if _, err := os.Stat(s.UnprocessedDir); err != nil {
		logger.ErrorContext(
			ctx,
			"The directory does not exist. Please create it and place your XML files inside.",
			"dir", s.UnprocessedDir,
			"error", err,
		)
		return fmt.Errorf("stat check for directory %s: %w", s.UnprocessedDir, err)
	}

	if err := s.PrepareStore(ctx); err != nil {
		return err
	}
	defer s.closeStore(ctx)

	processor, cleanup := s.NewProcessor(ctx, true)
	defer cleanup()

	stats, err := datalake.NewClient(processor).IngestXMLFiles(
		ctx,
		s.UnprocessedDir,
		s.ProcessedDir,
		s.MoveProcessedFiles,
	)
	if stats != nil {
		stats.Log(logger)
	}
	if err != nil {
		logger.ErrorContext(ctx, "Error ingesting XML files", "error", err)
		return fmt.Errorf("ingestion of XML files failed: %w", err)
	}

	logger.InfoContext(ctx, "Data ingestion process completed successfully.")

	return nil
}

// ProcessFile runs a single document. With save unset the batch is scored and
// reported but nothing is written.
func (s *Sink) ProcessFile(ctx context.Context, path string, save bool) (*datalake.Outcome, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if save {
		if err = s.PrepareStore(ctx); err != nil {
			return nil, err
		}
		defer s.closeStore(ctx)
	}

	processor, cleanup := s.NewProcessor(ctx, save)
	defer cleanup()

	outcome, err := processor.ProcessDocument(ctx, path, raw)
	if err != nil {
		return outcome, fmt.Errorf("processing of %s failed: %w", path, err)
	}
	outcome.Report.Log(appcontext.LoggerFromContext(ctx))

	return outcome, nil
}

// PrepareStore opens the primary store and brings its schema up to date.
func (s *Sink) PrepareStore(ctx context.Context) error {
	logger := appcontext.LoggerFromContext(ctx)

	if err := s.deps.Store.Open(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to open database", "error", err)
		return fmt.Errorf("connection to database failed: %w", err)
	}

	if err := s.deps.Store.Init(ctx); err != nil {
		s.closeStore(ctx)
		return fmt.Errorf("database init failed: %w", err)
	}

	if err := s.deps.Store.Upgrade(ctx); err != nil {
		s.closeStore(ctx)
		return fmt.Errorf("database upgrade failed: %w", err)
	}

	logger.InfoContext(ctx, "Database schema is up to date.")

	return nil
}

func (s *Sink) closeStore(ctx context.Context) {
	if err := s.deps.Store.Close(); err != nil {
		appcontext.LoggerFromContext(ctx).ErrorContext(ctx, "Error closing database", "error", err)
	}
}

// NewProcessor builds the pipeline. When persist is set the primary store,
// the optional Mongo mirror and the optional report publisher are attached.
// The returned cleanup releases the mirror connection.
func (s *Sink) NewProcessor(ctx context.Context, persist bool) (*datalake.Processor, func()) {
	processor := &datalake.Processor{
		Validator:  validation.NewStructuralValidator(),
		// Bound to pacs.008.001.08 only, so Classify never yields PACS.001 here.
		Extractor:  iso20022.NewExtractor(),
		Detector:   anomaly.NewDetector(),
		Classifier: datasource.NewPacsExtractor(),
	}
	cleanup := func() {}

	if !persist {
		return processor, cleanup
	}
	processor.Repo = s.deps.Store

	if s.deps.Config.MirrorToMongo {
		if client := s.connectMirror(ctx); client != nil {
			processor.Mirror = storage.NewMongoRepository(storage.NewMongoProvider(client))
			cleanup = func() {
				if err := client.Disconnect(ctx); err != nil {
					appcontext.LoggerFromContext(ctx).ErrorContext(ctx, "Error disconnecting from MongoDB", "error", err)
				}
			}
		}
	}

	if s.deps.Config.ReportAPIURL != "" {
		if publisher := s.newPublisher(ctx); publisher != nil {
			processor.Publisher = publisher
		}
	}

	return processor, cleanup
}

// connectMirror returns nil when the mirror is unreachable. The mirror is
// best effort so ingestion carries on without it.
func (s *Sink) connectMirror(ctx context.Context) storage.MongoClient {
	logger := appcontext.LoggerFromContext(ctx)

	client, err := s.deps.ConnectMongo(ctx, s.deps.Config.MongoURI)
	if err != nil {
		logger.WarnContext(ctx, "Failed to connect to MongoDB, continuing without mirror", "error", err)
		return nil
	}
	logger.InfoContext(ctx, "Successfully connected to MongoDB.")

	return client
}

// newPublisher returns nil when the dashboard does not answer the echo check.
func (s *Sink) newPublisher(ctx context.Context) *ReportPublisher {
	logger := appcontext.LoggerFromContext(ctx)

	client, err := apiclient.NewAPIClient(s.deps.HTTPClient, s.deps.Config.ReportAPIURL)
	if err != nil {
		logger.WarnContext(ctx, "Invalid report API URL, reports will not be published", "error", err)
		return nil
	}

	if _, _, err = client.DoEcho(ctx, "dataloader"); err != nil {
		logger.WarnContext(ctx, "Report API is unreachable, reports will not be published", "error", err)
		return nil
	}

	return &ReportPublisher{Client: client}
}
