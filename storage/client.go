package storage

import (
	"context"
	"fmt"

	"pacsguard/dataloader/appcontext"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient is the part of *mongo.Client the mirror needs.
type MongoClient interface {
	Disconnect(ctx context.Context) error
	Database(name string, opts ...*options.DatabaseOptions) *mongo.Database
}

var _ MongoClient = (*mongo.Client)(nil)

// ConnectToMongoDB connects to uri and pings the primary. Both steps are
// bounded by ConnectTimeout.
func ConnectToMongoDB(ctx context.Context, uri string) (MongoClient, error) {
	logger := appcontext.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "Attempting to connect to MongoDB")

	clientOptions := options.Client().ApplyURI(uri).SetConnectTimeout(ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err = client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.InfoContext(ctx, "Successfully established connection to MongoDB")
	return client, nil
}
