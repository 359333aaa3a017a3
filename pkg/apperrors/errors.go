package apperrors

import "errors"

var (
	// ErrNoRecords signals an empty extraction for a farm. Fatal for that
	// farm only; the batch driver skips and continues.
	ErrNoRecords = errors.New("no records for farm")

	ErrNotFound = errors.New("not found")
)
