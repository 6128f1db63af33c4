package transport

import (
	"context"

	"github.com/goodnatureofminers/btc-synchronizer/internal/job"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Job is a guarded job the admin API can inspect and trigger.
	Job interface {
		Name() string
		Running() bool
		LastReport() (job.Report, bool)
		TryStart(ctx context.Context) error
	}
	Journal interface {
		MaxVerifiedHeight(ctx context.Context, synchronizer string) (uint64, bool, error)
	}
)
