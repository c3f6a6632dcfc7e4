package ingest

import (
	"testing"

	"pacsguard/dataloader/datalake"
	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/model"
	"pacsguard/dataloader/report"
)

func TestReportRequest(t *testing.T) {
	id := "TX-9"
	amount := 90000.0
	flagged := model.ScoredTransaction{
		CanonicalTransaction: model.CanonicalTransaction{
			TransactionID: &id,
			Amount:        &amount,
			Currency:      "MAD",
			DebtorName:    "Alpha",
			CreditorName:  "UNKNOWN",
		},
		AnomalyScore: -0.71,
		IsAnomaly:    true,
	}

	tests := []struct {
		name      string
		result    report.Result
		wantCount int
		wantTop   int
	}{
		{
			name: "anomalies",
			result: report.Result{
				Status: report.StatusOK,
				Report: &model.AnomalyReport{
					Count:           1,
					MeanAmount:      amount,
					MaxAmount:       amount,
					MinScore:        -0.71,
					TopTransactions: []model.ScoredTransaction{flagged},
				},
			},
			wantCount: 1,
			wantTop:   1,
		},
		{
			name:   "no anomalies",
			result: report.Result{Status: report.StatusNoAnomalies, Info: report.NoAnomaliesMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := &datalake.Outcome{
				Source:       "batch.xml",
				BatchID:      "b-1",
				FileType:     datasource.Pacs008,
				Transactions: []model.ScoredTransaction{flagged},
				Report:       tt.result,
			}

			req := reportRequest(outcome)
			if req.BatchID != "b-1" || req.FileType != "PACS.008" || req.Status != string(tt.result.Status) {
				t.Errorf("unexpected header fields: %+v", req)
			}
			if req.Count != tt.wantCount || len(req.TopTransactions) != tt.wantTop {
				t.Errorf("got count %d top %d, want %d and %d",
					req.Count, len(req.TopTransactions), tt.wantCount, tt.wantTop)
			}
			if tt.wantTop > 0 {
				top := req.TopTransactions[0]
				if top.TransactionID != "TX-9" || top.Amount != amount || top.AnomalyScore != -0.71 {
					t.Errorf("unexpected top transaction: %+v", top)
				}
			}
		})
	}
}
