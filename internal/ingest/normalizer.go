package ingest

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/domain"
)

// Column names expected on every raw row.
const (
	ColumnTransactionID = "transaction_id"
	ColumnSenderID      = "sender_id"
	ColumnReceiverID    = "receiver_id"
	ColumnAmount        = "amount"
	ColumnTimestamp     = "timestamp"
)

// RequiredColumns lists the header fields ReadCSV insists on.
var RequiredColumns = []string{
	ColumnTransactionID,
	ColumnSenderID,
	ColumnReceiverID,
	ColumnAmount,
	ColumnTimestamp,
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// timestampLayouts are tried in order; values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
}

// RawRow is an untyped transaction row as supplied by the upload layer.
type RawRow struct {
	Line          int
	TransactionID string
	SenderID      string
	ReceiverID    string
	Amount        string
	Timestamp     string
	// Malformed holds the decoder error when the record could not be split
	// into fields. Such rows are always rejected.
	Malformed string
}

// Result is the outcome of parsing one row: either a record or a row error.
type Result struct {
	Record domain.TransactionRecord
	Err    *RowError
}

// OK reports whether the row produced a record.
func (r Result) OK() bool {
	return r.Err == nil
}

// Batch holds the valid records of an upload and the rows that were dropped.
type Batch struct {
	Records  []domain.TransactionRecord
	Rejected []RowError
}

// Skipped returns the number of dropped rows.
func (b Batch) Skipped() int {
	return len(b.Rejected)
}

// Normalizer validates raw rows into transaction records.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer constructs a Normalizer. A nil logger disables row logging.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize parses every row, keeping valid records in input order. It never
// fails: malformed rows are recorded in Batch.Rejected.
func (n *Normalizer) Normalize(rows []RawRow) Batch {
	batch := Batch{Records: make([]domain.TransactionRecord, 0, len(rows))}
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		res := n.Parse(row)
		if res.OK() {
			if _, dup := seen[res.Record.ID]; dup {
				res.Err = &RowError{
					Line:          row.Line,
					TransactionID: res.Record.ID,
					Field:         ColumnTransactionID,
					Reason:        ReasonDuplicateID,
				}
			}
		}
		if !res.OK() {
			if n.logger != nil {
				n.logger.Debug("row rejected", "line", res.Err.Line, "field", res.Err.Field, "reason", res.Err.Reason)
			}
			batch.Rejected = append(batch.Rejected, *res.Err)
			continue
		}
		seen[res.Record.ID] = struct{}{}
		batch.Records = append(batch.Records, res.Record)
	}
	return batch
}

// Parse validates a single row.
func (n *Normalizer) Parse(row RawRow) Result {
	id := sanitizeString(row.TransactionID)
	fail := func(field, reason string) Result {
		return Result{Err: &RowError{Line: row.Line, TransactionID: id, Field: field, Reason: reason}}
	}
	if row.Malformed != "" {
		return fail("", ReasonMalformedRecord+": "+row.Malformed)
	}

	sender := sanitizeString(row.SenderID)
	receiver := sanitizeString(row.ReceiverID)
	switch {
	case id == "":
		return fail(ColumnTransactionID, ReasonMissingField)
	case sender == "":
		return fail(ColumnSenderID, ReasonMissingField)
	case receiver == "":
		return fail(ColumnReceiverID, ReasonMissingField)
	case sender == receiver:
		return fail("", ReasonSelfTransfer)
	}

	rawAmount := strings.TrimSpace(row.Amount)
	if rawAmount == "" {
		return fail(ColumnAmount, ReasonMissingField)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fail(ColumnAmount, ReasonInvalidAmount)
	}
	if !amount.IsPositive() {
		return fail(ColumnAmount, ReasonNonPositive)
	}

	rawTs := strings.TrimSpace(row.Timestamp)
	if rawTs == "" {
		return fail(ColumnTimestamp, ReasonMissingField)
	}
	ts, ok := parseTimestamp(rawTs)
	if !ok {
		return fail(ColumnTimestamp, ReasonInvalidTimestamp)
	}

	return Result{Record: domain.TransactionRecord{
		ID:        id,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: ts,
	}}
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
