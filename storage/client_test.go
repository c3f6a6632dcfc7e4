package storage_test

import (
	"context"
	"strings"
	"testing"

	"pacsguard/dataloader/storage"
)

func TestConnectToMongoDB_InvalidURI(t *testing.T) {
	client, err := storage.ConnectToMongoDB(context.Background(), "not-a-mongo-uri")
	if err == nil {
		t.Fatal("ConnectToMongoDB() expected an error for an invalid URI")
	}
	if client != nil {
		t.Error("ConnectToMongoDB() returned a client alongside an error")
	}
	if !strings.Contains(err.Error(), "failed to connect to MongoDB") {
		t.Errorf("unexpected error: %v", err)
	}
}
