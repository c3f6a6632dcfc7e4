package model

import "time"

// SyncLog is the audit record written to the dataSync collection after each
// mirrored batch.
type SyncLog struct {
	CollectionName  string    `bson:"collection_name"`
	SyncTimestamp   time.Time `bson:"sync_timestamp"`
	BatchID         string    `bson:"batch_id"`
	FileType        string    `bson:"file_type"`
	RecordsUploaded int64     `bson:"records_uploaded"`
	// Split of RecordsUploaded as reported by the bulk write.
	RecordsInserted int64 `bson:"records_inserted"`
	RecordsModified int64 `bson:"records_modified"`
}
