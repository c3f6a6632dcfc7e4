package iso20022

import (
	"errors"
	"fmt"
)

// ErrExtraction is wrapped by every failure returned from Extractor.Extract.
var ErrExtraction = errors.New("extraction error")

var errTruncated = errors.New("document truncated")
var errNoRoot = errors.New("document has no root element")
var errMultipleRoots = errors.New("document has more than one root element")
var errTextOutsideRoot = errors.New("character data outside the root element")

// ExtractionError wraps the underlying cause as an extraction failure.
func ExtractionError(cause error) error {
	return fmt.Errorf("%w, %w", ErrExtraction, cause)
}

// UnexpectedRootError reports a document whose root is not the expected
// Document element of the configured namespace.
func UnexpectedRootError(space, local, wantNamespace string) error {
	return fmt.Errorf("%w, root element {%s}%s is not {%s}Document", ErrExtraction, space, local, wantNamespace)
}
