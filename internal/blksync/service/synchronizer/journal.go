package synchronizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/pkg/batcher"
)

// BatchJournal buffers upload attempts and writes them to the repository in
// batches off the upload path.
type BatchJournal struct {
	batcher *batcher.Batcher[model.UploadAttempt]
}

// NewBatchJournal starts a journal writer bound to ctx. Call Close to flush.
func NewBatchJournal(ctx context.Context, repo JournalRepository, cfg batcher.Config, logger *zap.Logger) *BatchJournal {
	b := batcher.New(logger.With(zap.String("component", "upload_journal")), repo.InsertUploadAttempts, cfg)
	b.Start(ctx)
	return &BatchJournal{batcher: b}
}

// Record queues attempt for the next flush.
func (j *BatchJournal) Record(ctx context.Context, attempt model.UploadAttempt) error {
	return j.batcher.Add(ctx, attempt)
}

// Close flushes buffered attempts and stops the writer.
func (j *BatchJournal) Close() {
	j.batcher.Stop()
}

// NopJournal discards attempts. Used when no journal store is configured.
type NopJournal struct{}

func (NopJournal) Record(context.Context, model.UploadAttempt) error { return nil }
