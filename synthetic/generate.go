// Package synthetic writes pacs.008 documents for local end-to-end runs.
package synthetic

import (
	"encoding/xml"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// FileName is the name of the generated document inside dir.
	FileName = "synthetic-pacs008.xml"

	// One transfer in outlierEvery gets an amount far above the bulk.
	outlierEvery = 50
	// Median of the lognormal bulk is exp(amountMu), about 1100 MAD.
	amountMu    = 7.0
	amountSigma = 0.6
)

var (
	firstNames = []string{"Amine", "Salma", "Youssef", "Khadija", "Omar", "Imane", "Mehdi", "Nadia"}
	lastNames  = []string{"Benali", "El Idrissi", "Tazi", "Alaoui", "Berrada", "Chraibi", "Fassi"}
	banks      = []string{"BCMAMAMC", "BMCEMAMC", "CIHMMAMC", "SGMBMAMC"}
	currencies = []string{"MAD", "MAD", "MAD", "EUR", "USD"}
	purposes   = []string{"SALA", "SUPP", "TRAD", "CASH"}
)

type document struct {
	XMLName  xml.Name       `xml:"urn:iso:std:iso:20022:tech:xsd:pacs.008.001.08 Document"`
	Transfer creditTransfer `xml:"FIToFICstmrCdtTrf"`
}

type creditTransfer struct {
	Header    groupHeader `xml:"GrpHdr"`
	Transfers []transfer  `xml:"CdtTrfTxInf"`
}

type groupHeader struct {
	MsgID   string `xml:"MsgId"`
	CreDtTm string `xml:"CreDtTm"`
	NbOfTxs int    `xml:"NbOfTxs"`
}

type transfer struct {
	PmtID         paymentID    `xml:"PmtId"`
	PmtTpInf      *paymentType `xml:"PmtTpInf,omitempty"`
	Amount        amount       `xml:"IntrBkSttlmAmt"`
	AccptncDtTm   string       `xml:"AccptncDtTm,omitempty"`
	ChrgBr        string       `xml:"ChrgBr,omitempty"`
	DebtorAgent   *agent       `xml:"DbtrAgt,omitempty"`
	Debtor        *party       `xml:"Dbtr,omitempty"`
	DebtorAcct    *account     `xml:"DbtrAcct,omitempty"`
	CreditorAgent *agent       `xml:"CdtrAgt,omitempty"`
	Creditor      *party       `xml:"Cdtr,omitempty"`
	CreditorAcct  *account     `xml:"CdtrAcct,omitempty"`
}

type paymentID struct {
	InstrID    string `xml:"InstrId"`
	EndToEndID string `xml:"EndToEndId"`
	TxID       string `xml:"TxId"`
}

type paymentType struct {
	ServiceLevel    string `xml:"SvcLvl>Cd"`
	CategoryPurpose string `xml:"CtgyPurp>Prtry"`
}

type amount struct {
	Currency string `xml:"Ccy,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type agent struct {
	BICFI string `xml:"FinInstnId>BICFI"`
}

type party struct {
	Name string `xml:"Nm"`
}

type account struct {
	ID string `xml:"Id>Othr>Id"`
}

// GenerateSyntheticData writes a pacs.008.001.08 document with rows credit
// transfers to dir and returns its path. The same seed yields the same
// transfers.
func GenerateSyntheticData(rows int, dir string, seed uint64) (string, error) {
	if rows <= 0 {
		return "", fmt.Errorf("rows must be positive, got %d", rows)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	created := time.Now().UTC().Truncate(time.Second)

	doc := document{
		Transfer: creditTransfer{
			Header: groupHeader{
				MsgID:   uuid.NewString(),
				CreDtTm: created.Format(time.RFC3339),
				NbOfTxs: rows,
			},
			Transfers: make([]transfer, 0, rows),
		},
	}
	for i := range rows {
		doc.Transfer.Transfers = append(doc.Transfer.Transfers, newTransfer(rng, i, created))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	filePath := filepath.Join(dir, FileName)
	if err = os.WriteFile(filePath, append([]byte(xml.Header), out...), 0o600); err != nil {
		return "", fmt.Errorf("failed to create file '%s': %w", filePath, err)
	}

	return filePath, nil
}

func newTransfer(rng *rand.Rand, i int, created time.Time) transfer {
	value := math.Exp(amountMu + amountSigma*rng.NormFloat64())
	if i%outlierEvery == outlierEvery-1 {
		value = math.Exp(amountMu) * (50 + 50*rng.Float64())
	}

	tx := transfer{
		PmtID: paymentID{
			InstrID:    fmt.Sprintf("INSTR-%06d", i),
			EndToEndID: fmt.Sprintf("E2E-%06d", i),
			TxID:       fmt.Sprintf("SYN-%06d", i),
		},
		Amount: amount{
			Currency: pick(rng, currencies),
			Value:    decimal.NewFromFloat(value).StringFixed(2),
		},
		AccptncDtTm:   created.Add(-time.Duration(rng.IntN(3600)) * time.Second).Format(time.RFC3339),
		ChrgBr:        "SLEV",
		DebtorAgent:   &agent{BICFI: pick(rng, banks)},
		CreditorAgent: &agent{BICFI: pick(rng, banks)},
		Debtor:        &party{Name: fullName(rng)},
		DebtorAcct:    &account{ID: iban(rng)},
		Creditor:      &party{Name: fullName(rng)},
		CreditorAcct:  &account{ID: iban(rng)},
	}

	// Optional blocks are left out now and then so the defaults get exercised.
	switch rng.IntN(10) {
	case 0:
		tx.Creditor = nil
	case 1:
		tx.DebtorAcct = nil
		tx.AccptncDtTm = ""
	case 2:
		tx.Amount.Currency = ""
	default:
		tx.PmtTpInf = &paymentType{ServiceLevel: "SEPA", CategoryPurpose: pick(rng, purposes)}
	}

	return tx
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}

func fullName(rng *rand.Rand) string {
	return pick(rng, firstNames) + " " + pick(rng, lastNames)
}

func iban(rng *rand.Rand) string {
	return fmt.Sprintf("MA64 %04d %04d %04d %04d", rng.IntN(10000), rng.IntN(10000), rng.IntN(10000), rng.IntN(10000))
}
