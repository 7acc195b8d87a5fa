package domain

import "errors"

var (
	// ErrStoreIO marks a failed read or write of the document or its
	// backups. The in-memory document is left intact so the caller can
	// retry the operation.
	ErrStoreIO = errors.New("ledger_store_io")

	// ErrInvoiceNotFound is returned when no invoice exists under the
	// requested composite key.
	ErrInvoiceNotFound = errors.New("invoice_not_found")

	// ErrInvalidPeriod is returned for billing periods that are not
	// zero-padded YYYY-MM.
	ErrInvalidPeriod = errors.New("invalid_period")
)
