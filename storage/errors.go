package storage

import (
	"errors"
	"fmt"
)

// ErrPersistence is wrapped by every database failure of the Gateway.
var ErrPersistence = errors.New("persistence error")

var errUnsupportedDriver = errors.New("unsupported database driver")
var errMissingTransactionID = errors.New("transaction has no transaction_id")
var errInvalidFileType = errors.New("file type is not PACS.008 or PACS.001")

// PersistenceError wraps the cause of a failed gateway operation.
func PersistenceError(op string, cause error) error {
	return fmt.Errorf("%w, %s: %w", ErrPersistence, op, cause)
}

// UnsupportedDriverError reports a DB_DRIVER value the Gateway cannot serve.
func UnsupportedDriverError(driver string) error {
	return fmt.Errorf("%w, %s", errUnsupportedDriver, driver)
}
