// Package validation is the schema gate every document passes before
// extraction.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/iso20022"
)

// PacsNamespacePrefix is shared by every supported PACS message namespace.
const PacsNamespacePrefix = "urn:iso:std:iso:20022:tech:xsd:pacs."

// ErrValidation is wrapped by errors describing a rejected document.
var ErrValidation = errors.New("validation error")

// ValidationError converts a failed Result into an error.
func ValidationError(source string, result Result) error {
	return fmt.Errorf("%w, %s: %s", ErrValidation, source, result.Message)
}

// Result is the outcome of a validation run.
type Result struct {
	Valid   bool
	Message string
}

// Validator checks a raw document before it is extracted.
type Validator interface {
	Validate(ctx context.Context, raw []byte) Result
}

// StructuralValidator accepts UTF-8, well-formed documents whose root is a
// Document element in a PACS namespace.
type StructuralValidator struct {
	namespacePrefix string
}

// NewStructuralValidator creates a StructuralValidator for PACS namespaces.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{namespacePrefix: PacsNamespacePrefix}
}

// Validate implements Validator.
func (v *StructuralValidator) Validate(ctx context.Context, raw []byte) Result {
	logger := appcontext.LoggerFromContext(ctx)

	if len(raw) == 0 {
		return Result{Message: "document is empty"}
	}
	if !utf8.Valid(raw) {
		return Result{Message: "document is not valid UTF-8"}
	}

	root, err := iso20022.Parse(raw)
	if err != nil {
		return Result{Message: err.Error()}
	}
	if root.Name.Local != "Document" {
		return Result{Message: fmt.Sprintf("unexpected root element %q", root.Name.Local)}
	}
	if !strings.HasPrefix(root.Name.Space, v.namespacePrefix) {
		return Result{Message: fmt.Sprintf("namespace %q is not a PACS schema", root.Name.Space)}
	}

	logger.DebugContext(ctx, "Document passed structural validation", "namespace", root.Name.Space)
	return Result{Valid: true, Message: "ok"}
}
