package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pacsguard/dataloader/apiclient"
	"pacsguard/dataloader/config"
	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/model"
	"pacsguard/dataloader/ingest"
	"pacsguard/dataloader/iso20022"
	"pacsguard/dataloader/storage"
)

var _ ingest.Store = (*storage.Gateway)(nil)

// --- Mocks for dependencies ---

type mockStore struct {
	openErr   error
	initErr   error
	opened    int
	inited    int
	upgraded  int
	closed    int
	batches   [][]model.ScoredTransaction
	deadlines []bool
}

func (m *mockStore) Open(ctx context.Context) error {
	m.opened++
	return m.openErr
}

func (m *mockStore) Init(ctx context.Context) error {
	m.inited++
	return m.initErr
}

func (m *mockStore) Upgrade(ctx context.Context) error {
	m.upgraded++
	return nil
}

func (m *mockStore) Close() error {
	m.closed++
	return nil
}

func (m *mockStore) UpsertTransactions(
	ctx context.Context,
	rows []model.ScoredTransaction,
	fileType datasource.DataSource,
) error {
	m.batches = append(m.batches, rows)
	_, hasDeadline := ctx.Deadline()
	m.deadlines = append(m.deadlines, hasDeadline)
	return nil
}

func failingMongo(called *bool) ingest.MongoConnector {
	return func(ctx context.Context, uri string) (storage.MongoClient, error) {
		*called = true
		return nil, errors.New("no server")
	}
}

const batchXML = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pacs.008.001.08">
  <FIToFICstmrCdtTrf>
    <GrpHdr><MsgId>MSG-1</MsgId><CreDtTm>2024-05-02T10:00:00</CreDtTm></GrpHdr>
    <CdtTrfTxInf>
      <PmtId><TxId>TX-1</TxId></PmtId>
      <IntrBkSttlmAmt Ccy="MAD">250.00</IntrBkSttlmAmt>
      <Dbtr><Nm>Alpha</Nm></Dbtr>
      <DbtrAcct><Id><Othr><Id> MA-001 </Id></Othr></Id></DbtrAcct>
    </CdtTrfTxInf>
    <CdtTrfTxInf>
      <PmtId><TxId>TX-2</TxId></PmtId>
      <IntrBkSttlmAmt Ccy="MAD">250.00</IntrBkSttlmAmt>
    </CdtTrfTxInf>
  </FIToFICstmrCdtTrf>
</Document>`

func writeInbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "batch.xml"), []byte(batchXML), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	return dir
}

// --- Tests for Sink ---

func TestNewSink(t *testing.T) {
	cfg := &config.Config{UnprocessedDir: "in", ProcessedDir: "out", MoveProcessedFiles: true}
	sink := ingest.NewSink(ingest.SinkDependencies{Config: cfg, Store: &mockStore{}})

	if sink.UnprocessedDir != "in" || sink.ProcessedDir != "out" || !sink.MoveProcessedFiles {
		t.Errorf("NewSink did not copy the directories from config: %+v", sink)
	}
}

func TestSink_Ingest_UnprocessedDirNotFound(t *testing.T) {
	store := &mockStore{}
	sink := ingest.NewSink(ingest.SinkDependencies{
		Config: &config.Config{UnprocessedDir: "/non/existent/dir"},
		Store:  store,
	})

	err := sink.Ingest(context.Background())
	if err == nil || !strings.Contains(err.Error(), "stat check for directory") {
		t.Fatalf("Expected 'stat check for directory' error, got: %v", err)
	}
	if store.opened != 0 {
		t.Error("the store must not be opened when the inbox is missing")
	}
}

func TestSink_Ingest_StoreFailures(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockStore
		wantErr string
	}{
		{"open", &mockStore{openErr: errors.New("refused")}, "connection to database failed"},
		{"init", &mockStore{initErr: errors.New("denied")}, "database init failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := ingest.NewSink(ingest.SinkDependencies{
				Config: &config.Config{UnprocessedDir: t.TempDir()},
				Store:  tt.store,
			})

			err := sink.Ingest(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Ingest() error = %v, want %q", err, tt.wantErr)
			}
			if len(tt.store.batches) != 0 {
				t.Error("no batch may be written when the store is not ready")
			}
		})
	}
}

func TestSink_Ingest_MirrorUnavailable(t *testing.T) {
	store := &mockStore{}
	mongoCalled := false
	sink := ingest.NewSink(ingest.SinkDependencies{
		Config: &config.Config{
			UnprocessedDir: writeInbox(t),
			ProcessedDir:   t.TempDir(),
			MirrorToMongo:  true,
			MongoURI:       "mongodb://invalid:1234",
		},
		Store:        store,
		ConnectMongo: failingMongo(&mongoCalled),
	})

	if err := sink.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest() returned an unexpected error: %v", err)
	}
	if !mongoCalled {
		t.Error("expected the mirror connection to be attempted")
	}
	if store.opened != 1 || store.inited != 1 || store.upgraded != 1 || store.closed != 1 {
		t.Errorf("unexpected store lifecycle: %+v", store)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 rows, got %v", store.batches)
	}
}

func TestSink_Ingest_SQLiteGateway(t *testing.T) {
	gateway, err := storage.NewGateway(storage.DriverSQLite, filepath.Join(t.TempDir(), "fraud.db"))
	if err != nil {
		t.Fatalf("NewGateway() returned an unexpected error: %v", err)
	}
	defer gateway.Close()

	inbox := writeInbox(t)
	processed := t.TempDir()
	sink := ingest.NewSink(ingest.SinkDependencies{
		Config: &config.Config{UnprocessedDir: inbox, ProcessedDir: processed, MoveProcessedFiles: true},
		Store:  gateway,
	})

	if err = sink.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest() returned an unexpected error: %v", err)
	}

	got, err := gateway.FindTransaction(context.Background(), "TX-1")
	if err != nil || got == nil {
		t.Fatalf("FindTransaction() = %v, %v", got, err)
	}
	if got.DebtorAccount == nil || *got.DebtorAccount != "MA-001" {
		t.Errorf("debtor account got %v, want MA-001", got.DebtorAccount)
	}
	if _, err = os.Stat(filepath.Join(processed, "batch.xml")); err != nil {
		t.Errorf("expected batch.xml in the processed directory: %v", err)
	}
}

func TestSink_Ingest_PublishesReports(t *testing.T) {
	var reports []apiclient.AnomalyReportRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/echo":
			_ = json.NewEncoder(w).Encode(apiclient.EchoResponse{EchoedValue: "dataloader"})
		case "/api/reports/anomalies":
			var body apiclient.AnomalyReportRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			reports = append(reports, body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"reportId":"r-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	sink := ingest.NewSink(ingest.SinkDependencies{
		Config: &config.Config{
			UnprocessedDir: writeInbox(t),
			ReportAPIURL:   server.URL + apiclient.DefaultBasePath,
		},
		Store:      &mockStore{},
		HTTPClient: server.Client(),
	})

	if err := sink.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest() returned an unexpected error: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 published report, got %d", len(reports))
	}
	if reports[0].FileType != string(datasource.Pacs008) || reports[0].Transactions != 2 {
		t.Errorf("unexpected report: %+v", reports[0])
	}
	if reports[0].Status != "no_anomalies" {
		t.Errorf("two equal transfers should not be flagged, got status %q", reports[0].Status)
	}
}

func TestSink_ProcessFile_WithoutSave(t *testing.T) {
	store := &mockStore{}
	sink := ingest.NewSink(ingest.SinkDependencies{Config: &config.Config{}, Store: store})

	outcome, err := sink.ProcessFile(context.Background(), filepath.Join(writeInbox(t), "batch.xml"), false)
	if err != nil {
		t.Fatalf("ProcessFile() returned an unexpected error: %v", err)
	}
	if outcome.Saved || store.opened != 0 || len(store.batches) != 0 {
		t.Errorf("a dry run must not touch the store: saved=%v store=%+v", outcome.Saved, store)
	}
	if len(outcome.Transactions) != 2 {
		t.Errorf("expected 2 scored rows, got %d", len(outcome.Transactions))
	}
}

func TestSink_ProcessFile_Save(t *testing.T) {
	store := &mockStore{}
	sink := ingest.NewSink(ingest.SinkDependencies{Config: &config.Config{}, Store: store})

	outcome, err := sink.ProcessFile(context.Background(), filepath.Join(writeInbox(t), "batch.xml"), true)
	if err != nil {
		t.Fatalf("ProcessFile() returned an unexpected error: %v", err)
	}
	if !outcome.Saved || len(store.batches) != 1 || store.closed != 1 {
		t.Errorf("expected one saved batch and a closed store: saved=%v store=%+v", outcome.Saved, store)
	}
	if len(store.deadlines) != 1 || store.deadlines[0] {
		t.Errorf("the save must not run under a deadline, got %v", store.deadlines)
	}
}

func TestSink_ProcessFile_Missing(t *testing.T) {
	sink := ingest.NewSink(ingest.SinkDependencies{Config: &config.Config{}, Store: &mockStore{}})

	if _, err := sink.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "nope.xml"), false); err == nil {
		t.Error("ProcessFile() expected an error for a missing file")
	}
}

func TestSink_ProcessFile_OtherPacsVersionIsNotExtracted(t *testing.T) {
	store := &mockStore{}
	sink := ingest.NewSink(ingest.SinkDependencies{Config: &config.Config{}, Store: store})

	doc := strings.Replace(batchXML, "pacs.008.001.08", "pacs.001.001.09", 1)
	path := filepath.Join(t.TempDir(), "pain.xml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	_, err := sink.ProcessFile(context.Background(), path, true)
	if !errors.Is(err, iso20022.ErrExtraction) {
		t.Fatalf("ProcessFile() error = %v, want ErrExtraction", err)
	}
	if len(store.batches) != 0 {
		t.Error("a document outside pacs.008.001.08 must not be saved")
	}
}
