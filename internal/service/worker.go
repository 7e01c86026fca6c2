package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
)

// TaskError accumulates the failures of a multi-batch run.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Job is one independent batch submitted to a BulkAnalyzer.
type Job struct {
	Name string
	Rows []ingest.RawRow
}

// Outcome pairs a job with its report. Report is zero when Err is set.
type Outcome struct {
	Name   string
	Report domain.Report
	Err    error
}

// BulkAnalyzer analyzes many independent batches using a worker pool. Each
// batch gets its own graph and report; batches never share state.
type BulkAnalyzer struct {
	service *AnalysisService
	workers int
}

// NewBulkAnalyzer creates a BulkAnalyzer with the provided concurrency.
func NewBulkAnalyzer(service *AnalysisService, workers int) *BulkAnalyzer {
	if workers <= 0 {
		workers = 4
	}
	return &BulkAnalyzer{
		service: service,
		workers: workers,
	}
}

// AnalyzeAll returns one outcome per job, in job order. The error aggregates
// every failed job in a *TaskError, unless the context was cancelled.
func (ba *BulkAnalyzer) AnalyzeAll(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes, nil
	}

	indexCh := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < ba.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexCh {
				report, err := ba.service.Analyze(ctx, jobs[idx].Rows)
				if err != nil {
					err = fmt.Errorf("%s: %w", jobs[idx].Name, err)
				}
				outcomes[idx] = Outcome{Name: jobs[idx].Name, Report: report, Err: err}
			}
		}()
	}

Loop:
	for i := range jobs {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	var taskErr TaskError
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
			return outcomes, o.Err
		}
		taskErr.append(o.Err)
	}
	return outcomes, taskErr.asError()
}
