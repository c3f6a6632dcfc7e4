package config

// Config holds the application configuration.
type Config struct {
	DBDriver    string
	DatabaseDSN string

	UnprocessedDir     string
	ProcessedDir       string
	MoveProcessedFiles bool

	MongoURI      string
	MirrorToMongo bool

	ReportAPIURL string

	LogLevel          string
	SyntheticDataDir  string
	SyntheticDataRows int
}
