package synchronizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/internal/clock"
	"github.com/goodnatureofminers/btc-synchronizer/pkg/workerpool"
)

// chunkUploader pushes chunks in rounds, retrying only the ones that failed.
type chunkUploader struct {
	ledger      Ledger
	buckets     BucketDeleter
	metrics     Metrics
	logger      *zap.Logger
	limiter     ratelimit.Limiter
	chunkSize   int
	workers     int
	maxRounds   int
	settleDelay time.Duration
	sleep       func(context.Context, time.Duration) error
}

func newChunkUploader(ledger Ledger, buckets BucketDeleter, metrics Metrics, cfg Config, logger *zap.Logger) *chunkUploader {
	return &chunkUploader{
		ledger:      ledger,
		buckets:     buckets,
		metrics:     metrics,
		logger:      logger,
		limiter:     ratelimit.New(cfg.PushRPS),
		chunkSize:   cfg.ChunkSize,
		workers:     cfg.PushWorkers,
		maxRounds:   cfg.MaxPushRounds,
		settleDelay: cfg.SettleDelay,
		sleep:       clock.SleepWithContext,
	}
}

// Split cuts a raw block into upload chunks.
func (u *chunkUploader) Split(payload []byte) []model.Chunk {
	return model.SplitChunks(payload, u.chunkSize)
}

// Upload pushes chunks for header. Chunks still failing after the last round
// cause the bucket to be deleted and ErrChunksExhausted to be returned.
func (u *chunkUploader) Upload(ctx context.Context, header model.BlockHeader, chunks []model.Chunk) (uint32, error) {
	hash := header.Hash.String()
	pending := chunks
	var rounds uint32

	for len(pending) > 0 && int(rounds) < u.maxRounds {
		rounds++
		failures := workerpool.Process(ctx, u.workers, pending, func(ctx context.Context, chunk model.Chunk) error {
			u.limiter.Take()
			return u.ledger.PushChunk(ctx, header.Height, hash, chunk)
		})
		u.metrics.ObservePushRound(len(failures))
		if err := ctx.Err(); err != nil {
			return rounds, err
		}

		next := make([]model.Chunk, 0, len(failures))
		for _, f := range failures {
			next = append(next, f.Item)
		}
		pending = next
		if len(pending) > 0 {
			u.logger.Warn("chunk push round incomplete",
				zap.Uint64("height", header.Height),
				zap.Uint32("round", rounds),
				zap.Int("failed", len(pending)),
				zap.Int("total", len(chunks)),
				zap.Error(failures[0].Err))
		}
	}

	if len(pending) > 0 {
		u.buckets.DeleteBucket(ctx, header.Height, hash)
		return rounds, fmt.Errorf("%w: %d of %d chunks of block %d after %d rounds",
			ErrChunksExhausted, len(pending), len(chunks), header.Height, rounds)
	}

	u.logger.Info("chunks uploaded",
		zap.Uint64("height", header.Height),
		zap.Int("chunks", len(chunks)),
		zap.Uint32("rounds", rounds))
	return rounds, u.sleep(ctx, u.settleDelay)
}
