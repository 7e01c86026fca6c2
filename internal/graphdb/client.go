// Package graphdb provides read access to a Bolt-compatible graph database
// (Neo4j, AWS Neptune openCypher) holding previously ingested transactions.
package graphdb

import (
	"context"
	"errors"
	"time"
)

// Client runs read-only Cypher against the transaction store. Nothing in the
// detection path writes back to the graph.
type Client interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds every row of a read, fully drained from the cursor.
type Result struct {
	Records []Record
}

// Record maps column aliases from the RETURN clause to their values.
type Record map[string]any

// Options configures the Bolt driver.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// FetchSize is the number of rows pulled per round trip; zero keeps the
	// driver default.
	FetchSize int
	// QueryTimeout bounds each read transaction on the server side.
	QueryTimeout time.Duration
}

// ErrMissingURI is returned when no graph URI is configured.
var ErrMissingURI = errors.New("graph URI is required")
