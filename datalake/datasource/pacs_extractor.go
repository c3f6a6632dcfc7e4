package datasource

import (
	"bytes"
	"regexp"
)

var versionPattern = regexp.MustCompile(`pacs\.\d{3}\.\d{3}\.\d{2}`)

// PacsExtractor classifies documents by a case-insensitive substring match on
// the raw text. A document that merely mentions "pacs.008" anywhere is
// classified as PACS.008.
type PacsExtractor struct{}

// NewPacsExtractor creates a new PacsExtractor.
func NewPacsExtractor() *PacsExtractor {
	return &PacsExtractor{}
}

// ExtractInfo implements InfoExtractor.
func (e *PacsExtractor) ExtractInfo(raw []byte) (*SourceInfo, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrUnableToExtractInfo
	}

	lower := bytes.ToLower(raw)
	info := &SourceInfo{DataSource: Classify(lower)}
	if match := versionPattern.Find(lower); match != nil {
		info.Version = string(match)
	}

	return info, nil
}

// Classify returns Pacs008 when raw contains "pacs.008" in any case, and
// Pacs001 otherwise.
func Classify(raw []byte) DataSource {
	if bytes.Contains(bytes.ToLower(raw), []byte("pacs.008")) {
		return Pacs008
	}

	return Pacs001
}
