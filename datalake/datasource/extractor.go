package datasource

import (
	"errors"
)

// SourceInfo holds the classification of a raw document.
type SourceInfo struct {
	DataSource DataSource
	// Version is the message definition, e.g. "pacs.008.001.08", when one is
	// named in the document.
	Version string
}

// InfoExtractor classifies a raw document.
type InfoExtractor interface {
	ExtractInfo(raw []byte) (*SourceInfo, error)
}

// ErrUnableToExtractInfo is returned when there is nothing to classify.
var ErrUnableToExtractInfo = errors.New("unable to extract source info from document")
