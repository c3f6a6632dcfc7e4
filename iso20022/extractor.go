// Package iso20022 reads credit-transfer transactions out of ISO 20022
// PACS messages.
package iso20022

import (
	"context"

	"github.com/shopspring/decimal"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake/model"
)

// Pacs008Namespace is the schema namespace of FIToFICustomerCreditTransfer v08.
const Pacs008Namespace = "urn:iso:std:iso:20022:tech:xsd:pacs.008.001.08"

const rootElement = "Document"

// Extractor turns a PACS document into one RawTransaction per CdtTrfTxInf.
type Extractor struct {
	lookup Lookup
}

// NewExtractor creates an Extractor bound to the pacs.008.001.08 namespace.
func NewExtractor() *Extractor {
	return NewExtractorForNamespace(Pacs008Namespace)
}

// NewExtractorForNamespace creates an Extractor for another message version.
func NewExtractorForNamespace(namespace string) *Extractor {
	return &Extractor{lookup: Lookup{Namespace: namespace}}
}

// Namespace returns the namespace the extractor resolves elements in.
func (e *Extractor) Namespace() string {
	return e.lookup.Namespace
}

// Extract parses xmlBytes and returns the transactions in document order.
// On error no transactions are returned.
func (e *Extractor) Extract(ctx context.Context, xmlBytes []byte) ([]model.RawTransaction, error) {
	logger := appcontext.LoggerFromContext(ctx)

	root, err := Parse(xmlBytes)
	if err != nil {
		return nil, ExtractionError(err)
	}
	if root.Name.Local != rootElement || root.Name.Space != e.lookup.Namespace {
		return nil, UnexpectedRootError(root.Name.Space, root.Name.Local, e.lookup.Namespace)
	}

	l := e.lookup
	grpHdr := l.Find(root, ".//GrpHdr")
	msgID := l.Text(grpHdr, "MsgId")
	creDtTm := l.Text(grpHdr, "CreDtTm")

	entries := l.FindAll(root, "CdtTrfTxInf")
	logger.DebugContext(ctx, "Extracting credit transfers", "messageId", deref(msgID), "count", len(entries))

	transactions := make([]model.RawTransaction, 0, len(entries))
	for _, tx := range entries {
		amount, currency := e.settlementAmount(tx)

		debtor := l.Find(tx, "Dbtr")
		birth := l.Find(debtor, ".//DtAndPlcOfBirth")
		pmtTpInf := l.Find(tx, "PmtTpInf")
		debtorAgent := l.Find(tx, "DbtrAgt")
		creditorAgent := l.Find(tx, "CdtrAgt")

		transactions = append(transactions, model.RawTransaction{
			MessageID:    msgID,
			CreationDate: creDtTm,

			TransactionID:     l.Text(tx, ".//TxId"),
			InstructionID:     l.Text(tx, "PmtId/InstrId"),
			EndToEndID:        l.Text(tx, "PmtId/EndToEndId"),
			ClearingSystemRef: l.Text(tx, "PmtId/ClrSysRef"),

			Amount:   amount,
			Currency: currency,

			AcceptanceDateTime: l.Text(tx, ".//AccptncDtTm"),

			DebtorName:         l.Text(debtor, "Nm"),
			DebtorBirthDate:    l.Text(birth, "BirthDt"),
			DebtorBirthCity:    l.Text(birth, "CityOfBirth"),
			DebtorBirthCountry: l.Text(birth, "CtryOfBirth"),
			DebtorAccount:      l.Text(tx, "DbtrAcct/.//Othr/Id"),

			CreditorName:    l.Text(tx, "Cdtr/Nm"),
			CreditorAccount: l.Text(tx, "CdtrAcct/.//Othr/Id"),

			ServiceLevel:    l.Text(pmtTpInf, "SvcLvl/Cd"),
			LocalInstrument: l.Text(pmtTpInf, "LclInstrm/Prtry"),
			CategoryPurpose: l.Text(pmtTpInf, "CtgyPurp/Prtry"),
			ChargeBearer:    l.Text(tx, "ChrgBr"),

			DebtorAgentBIC:        l.Text(debtorAgent, ".//BICFI"),
			DebtorAgentMemberID:   l.Text(debtorAgent, ".//ClrSysMmbId/MmbId"),
			CreditorAgentBIC:      l.Text(creditorAgent, ".//BICFI"),
			CreditorAgentMemberID: l.Text(creditorAgent, ".//ClrSysMmbId/MmbId"),
		})
	}

	return transactions, nil
}

// settlementAmount reads IntrBkSttlmAmt. An unparsable amount is nil while the
// currency attribute is still returned.
func (e *Extractor) settlementAmount(tx *Node) (*float64, *string) {
	currency := e.lookup.Attr(tx, ".//IntrBkSttlmAmt", "Ccy")

	text := e.lookup.Text(tx, ".//IntrBkSttlmAmt")
	if text == nil {
		return nil, currency
	}

	d, err := decimal.NewFromString(*text)
	if err != nil {
		return nil, currency
	}
	amount := d.InexactFloat64()

	return &amount, currency
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
