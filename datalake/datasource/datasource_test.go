package datasource_test

import (
	"errors"
	"testing"

	"pacsguard/dataloader/datalake/datasource"
)

func TestPacsExtractor_NewPacsExtractor(t *testing.T) {
	extractor := datasource.NewPacsExtractor()
	if extractor == nil {
		t.Errorf("NewPacsExtractor() returned nil, expected a PacsExtractor instance")
	}
}

func TestPacsExtractor_ExtractInfo_Success(t *testing.T) {
	extractor := datasource.NewPacsExtractor()
	tests := []struct {
		name        string
		raw         string
		expectedDS  datasource.DataSource
		expectedVer string
	}{
		{"pacs.008 namespace", `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pacs.008.001.08"/>`, datasource.Pacs008, "pacs.008.001.08"},
		{"upper case", `<Document xmlns="URN:ISO:STD:ISO:20022:TECH:XSD:PACS.008.001.10"/>`, datasource.Pacs008, "pacs.008.001.10"},
		{"pacs.001", `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pacs.001.001.09"/>`, datasource.Pacs001, "pacs.001.001.09"},
		{"no version", `<Document/>`, datasource.Pacs001, ""},
		{"mention in free text", `<Document><Ustrd>see pacs.008 notice</Ustrd></Document>`, datasource.Pacs008, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			info, err := extractor.ExtractInfo([]byte(test.raw))
			if err != nil {
				t.Fatalf("ExtractInfo() returned an unexpected error: %v", err)
			}
			if info.DataSource != test.expectedDS {
				t.Errorf("ExtractInfo() DataSource got %s, want %s", info.DataSource, test.expectedDS)
			}
			if info.Version != test.expectedVer {
				t.Errorf("ExtractInfo() Version got %q, want %q", info.Version, test.expectedVer)
			}
			if !info.DataSource.Valid() {
				t.Errorf("ExtractInfo() returned an unstorable DataSource %q", info.DataSource)
			}
		})
	}
}

func TestPacsExtractor_ExtractInfo_Empty(t *testing.T) {
	extractor := datasource.NewPacsExtractor()
	for _, raw := range []string{"", "  \n"} {
		info, err := extractor.ExtractInfo([]byte(raw))
		if !errors.Is(err, datasource.ErrUnableToExtractInfo) {
			t.Errorf("ExtractInfo(%q) expected ErrUnableToExtractInfo, got %v", raw, err)
		}
		if info != nil {
			t.Errorf("ExtractInfo(%q) returned info %v, expected nil", raw, info)
		}
	}
}

func TestDataSource_Valid(t *testing.T) {
	if datasource.DataSource("camt.053").Valid() {
		t.Error("Valid() accepted an unknown file type")
	}
}
