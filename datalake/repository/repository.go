package repository

import (
	"context"

	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/model"
)

// Repository defines the interface for data storage operations.
type Repository interface {
	// UpsertTransactions saves one scored batch. On a transaction_id conflict
	// only the amount, the account identifiers and the processing time are
	// refreshed.
	UpsertTransactions(ctx context.Context, rows []model.ScoredTransaction, fileType datasource.DataSource) error
}
