// Package repository loads transaction batches out of the graph database so
// they can be analyzed the same way as uploaded CSV files.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/graphdb"
	"github.com/vanshika/muletrace/internal/ingest"
)

// ErrInvalidRange is returned when the export window ends before it starts.
var ErrInvalidRange = errors.New("export window end precedes start")

// TransactionRepository reads (:User)-[:PARTICIPATED_IN]->(:Transaction)
// subgraphs and flattens them into raw rows.
type TransactionRepository struct {
	client graphdb.Client
}

// New builds a repository bound to the provided graph client.
func New(client graphdb.Client) *TransactionRepository {
	return &TransactionRepository{client: client}
}

// ExportFilter narrows an export. Zero values disable the bound.
type ExportFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

func (f ExportFilter) params() (map[string]any, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, ErrInvalidRange
	}
	params := map[string]any{
		"from":  nil,
		"to":    nil,
		"limit": nil,
	}
	if f.From != nil {
		params["from"] = f.From.UTC().Format(time.RFC3339Nano)
	}
	if f.To != nil {
		params["to"] = f.To.UTC().Format(time.RFC3339Nano)
	}
	if f.Limit > 0 {
		params["limit"] = int64(f.Limit)
	}
	return params, nil
}

// ExportRows returns every transaction matching filter as an unvalidated
// raw row. Line numbers are assigned in result order starting at 1, so
// rejected rows can still be traced back to the query output.
func (r *TransactionRepository) ExportRows(ctx context.Context, filter ExportFilter) ([]ingest.RawRow, error) {
	params, err := filter.params()
	if err != nil {
		return nil, err
	}

	res, err := r.client.ExecuteRead(ctx, exportTransactionsCypher, params)
	if err != nil {
		return nil, fmt.Errorf("export transactions query: %w", err)
	}

	rows := make([]ingest.RawRow, 0, len(res.Records))
	for i, record := range res.Records {
		rows = append(rows, ingest.RawRow{
			Line:          i + 1,
			TransactionID: toString(record["transactionId"]),
			SenderID:      toString(record["senderId"]),
			ReceiverID:    toString(record["receiverId"]),
			Amount:        toAmountString(record["amount"]),
			Timestamp:     toTimestampString(record["timestamp"]),
		})
	}
	return rows, nil
}

// Ping reports whether the backing database is reachable.
func (r *TransactionRepository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// toAmountString renders numeric properties without float noise so the
// normalizer sees the same text a CSV export would carry.
func toAmountString(val any) string {
	switch v := val.(type) {
	case float64:
		return decimal.NewFromFloat(v).String()
	case float32:
		return decimal.NewFromFloat32(v).String()
	case int64:
		return decimal.NewFromInt(v).String()
	case int:
		return decimal.NewFromInt(int64(v)).String()
	default:
		return toString(val)
	}
}

func toTimestampString(val any) string {
	switch v := val.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case dbtype.LocalDateTime:
		return time.Time(v).UTC().Format(time.RFC3339Nano)
	default:
		return toString(val)
	}
}

// Timestamps are stored as ISO-8601 strings by the ingestion pipeline, so the
// window comparison runs on datetime() values rather than raw strings.
const exportTransactionsCypher = `
MATCH (t:Transaction)
WHERE ($from IS NULL OR datetime(t.timestamp) >= datetime($from))
  AND ($to IS NULL OR datetime(t.timestamp) <= datetime($to))
WITH t
ORDER BY datetime(t.timestamp) ASC, t.transactionId ASC
WITH t
LIMIT coalesce($limit, 9223372036854775807)
RETURN t.transactionId AS transactionId,
       t.amount AS amount,
       t.timestamp AS timestamp,
       head([(sender:User)-[:PARTICIPATED_IN {role: "SENDER"}]->(t) | sender.userId]) AS senderId,
       head([(receiver:User)-[:PARTICIPATED_IN {role: "RECEIVER"}]->(t) | receiver.userId]) AS receiverId
`
