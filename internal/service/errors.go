package service

import (
	"fmt"

	"github.com/vanshika/muletrace/internal/txgraph"
)

// ErrEmptyGraph is returned when no valid rows survive normalization.
var ErrEmptyGraph = txgraph.ErrEmptyGraph

// DetectorError reports a failure inside one detector. Any detector failure
// fails the whole analysis.
type DetectorError struct {
	Detector string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %s: %v", e.Detector, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}
