package storage

import (
	"fmt"
	"strings"
)

// TransactionsTable is the single table written by the Gateway.
const TransactionsTable = "transactions"

// deprecatedColumns are dropped by Upgrade when present.
var deprecatedColumns = []string{"rib", "original_xml"}

// column is a transactions column that Upgrade can add to an older table.
type column struct {
	name       string
	definition string
}

func (d dialect) createTableStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	transaction_id VARCHAR(50) UNIQUE NOT NULL,
	amount DECIMAL(15, 2) NOT NULL,
	currency VARCHAR(3) NOT NULL,
	creation_date TIMESTAMP,
	acceptance_datetime TIMESTAMP,
	debtor_name TEXT,
	creditor_name TEXT,
	debtor_account VARCHAR(50),
	creditor_account VARCHAR(50),
	is_anomaly BOOLEAN DEFAULT FALSE,
	anomaly_score DECIMAL(10, 4),
	file_type VARCHAR(10) CHECK (file_type IN ('PACS.008', 'PACS.001')),
	processing_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, TransactionsTable, d.surrogateKey),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_transaction_id ON %s(transaction_id)", TransactionsTable),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_anomalies ON %s(is_anomaly)", TransactionsTable),
	}
}

// addableColumns lists the columns an older table may lack. SQLite rejects
// non-constant defaults in ADD COLUMN, so processing_date gets none there.
func (d dialect) addableColumns() []column {
	processingDate := "TIMESTAMP"
	if d.nowDefault {
		processingDate = "TIMESTAMP DEFAULT CURRENT_TIMESTAMP"
	}

	return []column{
		{"currency", "VARCHAR(3) NOT NULL DEFAULT 'MAD'"},
		{"creation_date", "TIMESTAMP"},
		{"acceptance_datetime", "TIMESTAMP"},
		{"debtor_name", "TEXT"},
		{"creditor_name", "TEXT"},
		{"debtor_account", "VARCHAR(50)"},
		{"creditor_account", "VARCHAR(50)"},
		{"is_anomaly", "BOOLEAN DEFAULT FALSE"},
		{"anomaly_score", "DECIMAL(10, 4)"},
		{"file_type", "VARCHAR(10) CHECK (file_type IN ('PACS.008', 'PACS.001'))"},
		{"processing_date", processingDate},
	}
}

func (d dialect) addColumnStatement(c column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", TransactionsTable, c.name, c.definition)
}

func (d dialect) dropColumnStatement(name string) string {
	if d.dropIfExists {
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s", TransactionsTable, name)
	}

	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", TransactionsTable, name)
}

// upsertStatement inserts one row and, on a transaction_id conflict, refreshes
// only the settlement details. Anomaly fields and file_type keep their first
// values.
func (d dialect) upsertStatement() string {
	cols := []string{
		"transaction_id", "amount", "currency", "creation_date",
		"acceptance_datetime", "debtor_name", "creditor_name",
		"debtor_account", "creditor_account", "is_anomaly",
		"anomaly_score", "file_type", "processing_date",
	}
	binds := make([]string, len(cols))
	for i := range cols {
		binds[i] = d.bind(i + 1)
	}

	return fmt.Sprintf(`INSERT INTO %s (
	%s
) VALUES (
	%s
)
ON CONFLICT (transaction_id)
DO UPDATE SET
	processing_date = EXCLUDED.processing_date,
	amount = EXCLUDED.amount,
	debtor_account = EXCLUDED.debtor_account,
	creditor_account = EXCLUDED.creditor_account`,
		TransactionsTable, strings.Join(cols, ", "), strings.Join(binds, ", "))
}

const selectColumns = `id, transaction_id, amount, currency, creation_date, acceptance_datetime,
	debtor_name, creditor_name, debtor_account, creditor_account,
	is_anomaly, anomaly_score, file_type, processing_date`

func (d dialect) findByIDStatement() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE transaction_id = %s", selectColumns, TransactionsTable, d.bind(1))
}

func (d dialect) listAnomaliesStatement() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE is_anomaly = %s ORDER BY anomaly_score ASC, id ASC LIMIT %s",
		selectColumns, TransactionsTable, d.bind(1), d.bind(2))
}
