package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
)

const insertUploadAttemptsQuery = `
INSERT INTO blksync_upload_attempts (
	synchronizer,
	height,
	hash,
	block_size,
	num_chunks,
	push_rounds,
	outcome,
	error,
	started_at,
	duration_ms
) VALUES`

// InsertUploadAttempts stores journal rows for finished candidate uploads.
func (r *Repository) InsertUploadAttempts(ctx context.Context, attempts []model.UploadAttempt) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_upload_attempts", err, start)
	}()

	if len(attempts) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertUploadAttemptsQuery)
	if err != nil {
		return fmt.Errorf("prepare upload attempts batch: %w", err)
	}

	for _, a := range attempts {
		if err = batch.Append(
			a.Synchronizer,
			a.Height,
			a.Hash,
			a.BlockSize,
			a.NumChunks,
			a.PushRounds,
			string(a.Outcome),
			a.Error,
			a.StartedAt.UTC(),
			uint64(a.Duration.Milliseconds()),
		); err != nil {
			return fmt.Errorf("append upload attempt: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert upload attempts: %w", err)
	}
	return nil
}
