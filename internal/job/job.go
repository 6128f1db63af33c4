// Package job runs named jobs on a schedule with at most one execution of
// each job in flight.
package job

import (
	"context"
	"errors"
	"time"
)

// ErrInProgress is returned when a run is requested while one is active.
var ErrInProgress = errors.New("job already in progress")

// Job is a unit of work that can be run repeatedly.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Metrics records job run outcomes.
type Metrics interface {
	ObserveJob(job string, err error, started time.Time)
}
