package model

import "time"

// CanonicalTransaction is a RawTransaction after cleansing. Fields with a
// fallback value are always populated.
type CanonicalTransaction struct {
	MessageID         *string `json:"message_id"`
	TransactionID     *string `json:"transaction_id"`
	InstructionID     *string `json:"instruction_id"`
	EndToEndID        *string `json:"end_to_end_id"`
	ClearingSystemRef *string `json:"clearing_system_ref"`

	// Amount is non-negative. It is only nil when the source amount was
	// unparsable, which the detector rejects.
	Amount    *float64 `json:"amount"`
	AmountLog *float64 `json:"amount_log"`
	Currency  string   `json:"currency"`

	CreationDate       time.Time `json:"creation_date"`
	AcceptanceDateTime time.Time `json:"acceptance_datetime"`

	DebtorName         string  `json:"debtor_name"`
	DebtorBirthDate    *string `json:"debtor_birth_date"`
	DebtorBirthCity    *string `json:"debtor_birth_city"`
	DebtorBirthCountry *string `json:"debtor_birth_country"`
	DebtorAccount      string  `json:"debtor_account"`

	CreditorName    string `json:"creditor_name"`
	CreditorAccount string `json:"creditor_account"`

	ServiceLevel    *string `json:"service_level"`
	LocalInstrument *string `json:"local_instrument"`
	CategoryPurpose *string `json:"category_purpose"`
	ChargeBearer    *string `json:"charge_bearer"`

	DebtorAgentBIC        *string `json:"debtor_agent_bic"`
	DebtorAgentMemberID   *string `json:"debtor_agent_member_id"`
	CreditorAgentBIC      *string `json:"creditor_agent_bic"`
	CreditorAgentMemberID *string `json:"creditor_agent_member_id"`
}

// ScoredTransaction is a CanonicalTransaction annotated by the anomaly detector.
// AnomalyScore is the decision value; more negative means more isolated.
type ScoredTransaction struct {
	CanonicalTransaction

	AnomalyScore float64 `json:"anomaly_score"`
	IsAnomaly    bool    `json:"is_anomaly"`
}

// PersistedTransaction is a row of the transactions table.
type PersistedTransaction struct {
	ID                 int64      `json:"id"`
	TransactionID      string     `json:"transaction_id"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	CreationDate       *time.Time `json:"creation_date"`
	AcceptanceDateTime *time.Time `json:"acceptance_datetime"`
	DebtorName         *string    `json:"debtor_name"`
	CreditorName       *string    `json:"creditor_name"`
	DebtorAccount      *string    `json:"debtor_account"`
	CreditorAccount    *string    `json:"creditor_account"`
	IsAnomaly          bool       `json:"is_anomaly"`
	AnomalyScore       *float64   `json:"anomaly_score"`
	FileType           *string    `json:"file_type"`
	ProcessingDate     *time.Time `json:"processing_date"`
}

// AnomalyReport summarizes the flagged rows of one scored batch.
type AnomalyReport struct {
	Count           int                 `json:"count"`
	MeanAmount      float64             `json:"mean_amount"`
	MaxAmount       float64             `json:"max_amount"`
	MinScore        float64             `json:"min_score"`
	TopTransactions []ScoredTransaction `json:"top_transactions"`
}
