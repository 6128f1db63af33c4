package synchronizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/internal/clock"
)

// verifier drives the destination's verify action to a terminal status.
type verifier struct {
	ledger  Ledger
	buckets BucketDeleter
	metrics Metrics
	logger  *zap.Logger
	backoff time.Duration
	sleep   func(context.Context, time.Duration) error
}

func newVerifier(ledger Ledger, buckets BucketDeleter, metrics Metrics, backoff time.Duration, logger *zap.Logger) *verifier {
	return &verifier{
		ledger:  ledger,
		buckets: buckets,
		metrics: metrics,
		logger:  logger,
		backoff: backoff,
		sleep:   clock.SleepWithContext,
	}
}

// Verify calls verify until the bucket leaves the pending states. A failed
// verification deletes the bucket and returns ErrVerifyFailed.
func (v *verifier) Verify(ctx context.Context, height uint64, hash string) error {
	for {
		status, err := v.ledger.Verify(ctx, height, hash)
		if err != nil {
			return fmt.Errorf("verify %d %s: %w", height, hash, err)
		}
		v.metrics.ObserveVerify(string(status))

		switch {
		case status == model.VerifyStatusFail:
			v.buckets.DeleteBucket(ctx, height, hash)
			return fmt.Errorf("%w: height %d hash %s", ErrVerifyFailed, height, hash)
		case status == model.VerifyStatusWaitingMinerVerification:
			v.logger.Debug("waiting for miner verification",
				zap.Uint64("height", height),
				zap.String("hash", hash))
			if err := v.sleep(ctx, v.backoff); err != nil {
				return err
			}
		case status.Pending():
			if err := ctx.Err(); err != nil {
				return err
			}
		default:
			v.logger.Info("block verified",
				zap.Uint64("height", height),
				zap.String("hash", hash),
				zap.String("status", string(status)))
			return nil
		}
	}
}
