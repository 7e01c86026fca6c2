package server

import (
	"context"
	"errors"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// Pinger is any dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DependencyHealth probes every configured dependency. Nil entries are
// skipped so optional backends do not fail readiness when disabled.
type DependencyHealth struct {
	Deps map[string]Pinger
}

// Probe implements the HealthService interface.
func (s DependencyHealth) Probe(ctx context.Context) error {
	var errs []error
	for name, dep := range s.Deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			errs = append(errs, &ProbeError{Dependency: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// ProbeError names the dependency that failed a readiness probe.
type ProbeError struct {
	Dependency string
	Err        error
}

func (e *ProbeError) Error() string {
	return e.Dependency + ": " + e.Err.Error()
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
