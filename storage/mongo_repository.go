package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TransactionsCollection mirrors the relational transactions table.
	TransactionsCollection = "transactions"
	syncTableName          = "dataSync"
)

// MongoRepository mirrors scored batches into the datalake with the same
// conflict policy as the Gateway.
type MongoRepository struct {
	provider CollectionProvider
	now      func() time.Time
	newID    func() string
}

// NewMongoRepository creates a new MongoRepository.
func NewMongoRepository(provider CollectionProvider) *MongoRepository {
	return &MongoRepository{
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// UpsertTransactions bulk upserts rows into the "transactions" collection and
// records the batch in dataSync.
func (r *MongoRepository) UpsertTransactions(
	ctx context.Context,
	rows []model.ScoredTransaction,
	fileType datasource.DataSource,
) error {
	if len(rows) == 0 {
		return nil // Nothing to upsert
	}

	processedAt := r.now()
	models := make([]mongo.WriteModel, 0, len(rows))
	for i, row := range rows {
		if row.TransactionID == nil {
			return fmt.Errorf("row %d: %w", i, errMissingTransactionID)
		}
		filter := bson.M{"transaction_id": *row.TransactionID}
		update := bson.M{
			"$set": bson.M{
				"amount":           row.Amount,
				"debtor_account":   row.DebtorAccount,
				"creditor_account": row.CreditorAccount,
				"processing_date":  processedAt,
			},
			"$setOnInsert": insertOnlyFields(row, fileType),
		}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}

	collection := r.provider.Collection(TransactionsCollection)
	result, err := collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to perform bulk write for collection %s: %w", TransactionsCollection, err)
	}

	// Update sync log
	syncLog := model.SyncLog{
		CollectionName:  TransactionsCollection,
		SyncTimestamp:   processedAt,
		BatchID:         r.newID(),
		FileType:        string(fileType),
		RecordsUploaded: int64(len(rows)),
		RecordsInserted: result.UpsertedCount,
		RecordsModified: result.ModifiedCount,
	}
	_, err = r.provider.Collection(syncTableName).InsertOne(ctx, syncLog)
	if err != nil {
		return fmt.Errorf("failed to insert into dataSync collection: %w", err)
	}

	logger := appcontext.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "Mirrored batch to datalake",
		"batchId", syncLog.BatchID, "inserted", syncLog.RecordsInserted, "modified", syncLog.RecordsModified)

	return nil
}

// insertOnlyFields holds every field that keeps its first value on conflict.
func insertOnlyFields(row model.ScoredTransaction, fileType datasource.DataSource) bson.M {
	return bson.M{
		"message_id":               row.MessageID,
		"instruction_id":           row.InstructionID,
		"end_to_end_id":            row.EndToEndID,
		"clearing_system_ref":      row.ClearingSystemRef,
		"amount_log":               row.AmountLog,
		"currency":                 row.Currency,
		"creation_date":            row.CreationDate,
		"acceptance_datetime":      row.AcceptanceDateTime,
		"debtor_name":              row.DebtorName,
		"debtor_birth_date":        row.DebtorBirthDate,
		"debtor_birth_city":        row.DebtorBirthCity,
		"debtor_birth_country":     row.DebtorBirthCountry,
		"creditor_name":            row.CreditorName,
		"service_level":            row.ServiceLevel,
		"local_instrument":         row.LocalInstrument,
		"category_purpose":         row.CategoryPurpose,
		"charge_bearer":            row.ChargeBearer,
		"debtor_agent_bic":         row.DebtorAgentBIC,
		"debtor_agent_member_id":   row.DebtorAgentMemberID,
		"creditor_agent_bic":       row.CreditorAgentBIC,
		"creditor_agent_member_id": row.CreditorAgentMemberID,
		"is_anomaly":               row.IsAnomaly,
		"anomaly_score":            row.AnomalyScore,
		"file_type":                string(fileType),
	}
}
