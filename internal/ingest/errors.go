package ingest

import (
	"errors"
	"fmt"
)

// ErrMissingColumns indicates the CSV header lacks one of the required columns.
var ErrMissingColumns = errors.New("missing required columns")

// Reasons attached to rejected rows.
const (
	ReasonMissingField     = "missing field"
	ReasonInvalidAmount    = "invalid amount"
	ReasonNonPositive      = "amount must be positive"
	ReasonInvalidTimestamp = "unparsable timestamp"
	ReasonSelfTransfer     = "sender equals receiver"
	ReasonDuplicateID      = "duplicate transaction_id"
	ReasonMalformedRecord  = "malformed csv record"
)

// RowError describes why a single row was dropped from the batch.
type RowError struct {
	Line          int
	TransactionID string
	Field         string
	Reason        string
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
}
