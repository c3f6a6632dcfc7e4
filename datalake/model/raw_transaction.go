package model

// RawTransaction is one credit-transfer entry as read from a PACS message.
// Every leaf is optional; a missing element is nil rather than an empty value.
type RawTransaction struct {
	MessageID    *string
	CreationDate *string

	TransactionID     *string
	InstructionID     *string
	EndToEndID        *string
	ClearingSystemRef *string

	// Amount is nil when the settlement amount text could not be parsed.
	Amount   *float64
	Currency *string

	AcceptanceDateTime *string

	DebtorName         *string
	DebtorBirthDate    *string
	DebtorBirthCity    *string
	DebtorBirthCountry *string
	DebtorAccount      *string

	CreditorName    *string
	CreditorAccount *string

	ServiceLevel    *string
	LocalInstrument *string
	CategoryPurpose *string
	ChargeBearer    *string

	DebtorAgentBIC        *string
	DebtorAgentMemberID   *string
	CreditorAgentBIC      *string
	CreditorAgentMemberID *string
}
