package datasource

// DataSource is the message family a batch was classified as.
type DataSource string

const (
	// Pacs008 is FIToFICustomerCreditTransfer.
	Pacs008 DataSource = "PACS.008"
	// Pacs001 is the fallback family for anything not recognized as pacs.008.
	Pacs001 DataSource = "PACS.001"
)

// Valid reports whether d is one of the two stored file types.
func (d DataSource) Valid() bool {
	return d == Pacs008 || d == Pacs001
}
