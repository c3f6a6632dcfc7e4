package config

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default values for testing.
const (
	defaultDBDriver           = "postgres"
	defaultDBHost             = "localhost"
	defaultDBPort             = "5432"
	defaultDBName             = "bank_fraud"
	defaultDBUser             = "postgres"
	defaultDBPassword         = "postgres"
	defaultDBSSLMode          = "disable"
	defaultDBPath             = "./data/transactions.db"
	defaultConnectTimeout     = 5
	defaultMongoURI           = "mongodb://localhost:27017/datalake"
	defaultMongoHost          = "localhost"
	defaultMongoPort          = "27017"
	defaultXMLDir             = "./data"
	defaultProcessedDir       = "processed"
	defaultUnprocessedDir     = "unprocessed"
	defaultMoveProcessedFiles = false
	defaultMirrorToMongo      = false
	defaultLogLevel           = "info"
	defaultSyntheticDataDir   = "tmp/synthetic"
	defaultSyntheticDataRows  = 100
	envDBDriver               = "DB_DRIVER"
	envDatabaseURL            = "DATABASE_URL"
	envDBHost                 = "DB_HOST"
	envDBPort                 = "DB_PORT"
	envDBName                 = "DB_NAME"
	envDBUser                 = "DB_USER"
	envDBPassword             = "DB_PASSWORD"
	envDBSSLMode              = "DB_SSLMODE"
	envDBPath                 = "DB_PATH"
	envMongoURI               = "MONGO_URI"
	envMongoHost              = "MONGO_HOST"
	envMongoUser              = "MONGO_USER"
	envMongoPassword          = "MONGO_PASSWORD"
	envMirrorToMongo          = "MIRROR_TO_MONGO"
	envXMLDirectory           = "XML_DIR"
	envProcessedDirectory     = "PROCESSED_DIR"
	envUnprocessedDirectory   = "UNPROCESSED_DIR"
	envMoveProcessedFiles     = "MOVE_PROCESSED_FILES"
	envReportAPIURL           = "REPORT_API_URL"
	envLogLevel               = "LOG_LEVEL"
	envSyntheticDataDir       = "SYNTHETIC_DATA_DIR"
	envSyntheticDataRows      = "SYNTHETIC_DATA_ROWS"
)

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(ctx context.Context, logger *slog.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.DebugContext(ctx, "No .env file loaded", "error", err)
		return
	}
	logger.DebugContext(ctx, "Loaded environment from .env")
}

// LoadConfig loads the application configuration from environment variables or uses default values.
func LoadConfig(ctx context.Context, logger *slog.Logger) *Config {
	dbDriver := strings.ToLower(getEnv(ctx, logger, envDBDriver, defaultDBDriver))
	databaseDSN := formatDatabaseDSN(ctx, dbDriver, logger)

	mongoURI := formatMongoURI(ctx, os.Getenv(envMongoURI), logger)

	xmlDirectory := getEnv(ctx, logger, envXMLDirectory, defaultXMLDir)

	// Configure the dirs for processed/unprocessed files.
	unprocessedDir := filepath.Join(xmlDirectory, getEnv(ctx, logger, envUnprocessedDirectory, defaultUnprocessedDir))
	processedDir := filepath.Join(xmlDirectory, getEnv(ctx, logger, envProcessedDirectory, defaultProcessedDir))

	logger.DebugContext(ctx, "Constructed directory paths", "unprocessed", unprocessedDir, "processed", processedDir)

	return &Config{
		DBDriver:           dbDriver,
		DatabaseDSN:        databaseDSN,
		UnprocessedDir:     unprocessedDir,
		ProcessedDir:       processedDir,
		MoveProcessedFiles: getEnvBool(ctx, logger, envMoveProcessedFiles, defaultMoveProcessedFiles),
		MongoURI:           mongoURI,
		MirrorToMongo:      getEnvBool(ctx, logger, envMirrorToMongo, defaultMirrorToMongo),
		ReportAPIURL:       getEnv(ctx, logger, envReportAPIURL, ""),
		LogLevel:           getEnv(ctx, logger, envLogLevel, defaultLogLevel),
		SyntheticDataDir:   getEnv(ctx, logger, envSyntheticDataDir, defaultSyntheticDataDir),
		SyntheticDataRows:  getEnvInt(ctx, logger, envSyntheticDataRows, defaultSyntheticDataRows),
	}
}

// getEnv fetches key or falls back to a default value.
func getEnv(ctx context.Context, logger *slog.Logger, key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.DebugContext(ctx, "Using default value", "key", key, "value", fallback)
		return fallback
	}
	logger.DebugContext(ctx, "Using value from environment variable", "key", key, "value", value)

	return value
}

func getEnvBool(ctx context.Context, logger *slog.Logger, key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		logger.DebugContext(ctx, "Using default value", "key", key, "value", fallback)
		return fallback
	}

	parsedBool, err := strconv.ParseBool(value)
	if err != nil {
		logger.WarnContext(
			ctx,
			fmt.Sprintf("Invalid value for %s, using default", key),
			"value", value,
			"default", fallback,
			"error", err,
		)
		return fallback
	}
	logger.DebugContext(ctx, "Using value from environment variable", "key", key, "value", parsedBool)

	return parsedBool
}

func getEnvInt(ctx context.Context, logger *slog.Logger, key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		logger.DebugContext(ctx, "Using default value", "key", key, "value", fallback)
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logger.WarnContext(
			ctx,
			fmt.Sprintf("Invalid value for %s, using default", key),
			"value", value,
			"default", fallback,
		)
		return fallback
	}
	logger.DebugContext(ctx, "Using value from environment variable", "key", key, "value", parsed)

	return parsed
}

// formatDatabaseDSN builds the data source name for the configured driver.
// DATABASE_URL, when set, is used as is.
func formatDatabaseDSN(ctx context.Context, driver string, logger *slog.Logger) string {
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		logger.DebugContext(ctx, "Using database URL from environment variable")
		return dsn
	}

	if driver == "sqlite" {
		return getEnv(ctx, logger, envDBPath, defaultDBPath)
	}

	host := getEnv(ctx, logger, envDBHost, defaultDBHost)
	port := getEnv(ctx, logger, envDBPort, defaultDBPort)
	user := getEnv(ctx, logger, envDBUser, defaultDBUser)
	password := os.Getenv(envDBPassword)
	if password == "" {
		password = defaultDBPassword
	}

	query := url.Values{}
	query.Set("sslmode", getEnv(ctx, logger, envDBSSLMode, defaultDBSSLMode))
	query.Set("connect_timeout", strconv.Itoa(defaultConnectTimeout))

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + getEnv(ctx, logger, envDBName, defaultDBName),
		RawQuery: query.Encode(),
	}
	logger.DebugContext(ctx, "Created database URL from host, port and user", "host", host, "port", port, "user", user)

	return dsn.String()
}

// formatMongoURI formats mongo settings to a url and return the result.
func formatMongoURI(
	ctx context.Context,
	mongoURI string,
	logger *slog.Logger,
) string {
	if mongoURI != "" {
		logger.DebugContext(ctx, "Using MongoDB URI from environment variable", "uri", mongoURI)
		return mongoURI
	}

	mongoHost := getEnv(ctx, logger, envMongoHost, defaultMongoHost)
	mongoUser := os.Getenv(envMongoUser)
	mongoPassword := os.Getenv(envMongoPassword)

	if mongoUser != "" && mongoPassword != "" {
		hostPort := net.JoinHostPort(mongoHost, defaultMongoPort)
		mongoURI = fmt.Sprintf(
			"mongodb://%s:%s@%s/datalake?authSource=admin",
			url.QueryEscape(mongoUser),
			url.QueryEscape(mongoPassword),
			hostPort,
		)
		logger.DebugContext(ctx, "Created MongoDB URI from user, password, and host", "host", mongoHost)
	} else {
		mongoURI = defaultMongoURI
		logger.DebugContext(ctx, "Using default MongoDB URI", "uri", mongoURI)
	}
	return mongoURI
}
