package ingest

import (
	"context"
	"fmt"

	"pacsguard/dataloader/apiclient"
	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake"
	"pacsguard/dataloader/datalake/model"
)

// ReportPublisher pushes every saved batch report to the dashboard API.
type ReportPublisher struct {
	Client *apiclient.APIClient
}

// Publish implements datalake.Publisher.
func (p *ReportPublisher) Publish(ctx context.Context, outcome *datalake.Outcome) error {
	_, resp, err := p.Client.PublishReport(ctx, reportRequest(outcome))
	if err != nil {
		return fmt.Errorf("failed to publish report for batch %s: %w", outcome.BatchID, err)
	}

	appcontext.LoggerFromContext(ctx).DebugContext(ctx, "Report published",
		"batchId", outcome.BatchID, "reportId", resp.ReportID)

	return nil
}

func reportRequest(outcome *datalake.Outcome) apiclient.AnomalyReportRequest {
	req := apiclient.AnomalyReportRequest{
		BatchID:      outcome.BatchID,
		Source:       outcome.Source,
		FileType:     string(outcome.FileType),
		Transactions: len(outcome.Transactions),
		Status:       string(outcome.Report.Status),
		Info:         outcome.Report.Info,
		Error:        outcome.Report.Error,
	}

	if r := outcome.Report.Report; r != nil {
		req.Count = r.Count
		req.MeanAmount = r.MeanAmount
		req.MaxAmount = r.MaxAmount
		req.MinScore = r.MinScore
		for _, tx := range r.TopTransactions {
			req.TopTransactions = append(req.TopTransactions, reportTransaction(tx))
		}
	}

	return req
}

func reportTransaction(tx model.ScoredTransaction) apiclient.ReportTransaction {
	out := apiclient.ReportTransaction{
		Currency:     tx.Currency,
		DebtorName:   tx.DebtorName,
		CreditorName: tx.CreditorName,
		AnomalyScore: tx.AnomalyScore,
	}
	if tx.TransactionID != nil {
		out.TransactionID = *tx.TransactionID
	}
	if tx.Amount != nil {
		out.Amount = *tx.Amount
	}

	return out
}
