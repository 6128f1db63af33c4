package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/internal/clock"
	"github.com/goodnatureofminers/btc-synchronizer/pkg/safe"
)

const UploadJobName = "block_upload"

// UploadJob reconciles this account's buckets and then uploads and verifies
// source blocks until the destination catches up or the failure budget runs out.
type UploadJob struct {
	source   SourceChain
	resolver PositionResolver
	buckets  BucketManager
	uploader ChunkUploader
	verifier Verifier
	journal  UploadJournal
	metrics  Metrics
	logger   *zap.Logger

	account      string
	maxFailures  int
	attemptDelay time.Duration
	sleep        func(context.Context, time.Duration) error
	now          func() time.Time
}

// NewUploadJob wires the upload pipeline for cfg.Account.
func NewUploadJob(
	source SourceChain,
	ledger Ledger,
	journal UploadJournal,
	metrics Metrics,
	cfg Config,
	logger *zap.Logger,
) (*UploadJob, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if journal == nil {
		journal = NopJournal{}
	}
	logger = logger.With(zap.String("job", UploadJobName), zap.String("account", cfg.Account))

	// The verifier and the bucket manager depend on each other: the verifier
	// deletes failed buckets and reconcile resumes verification.
	buckets := newBucketManager(ledger, nil, cfg.Account, logger)
	verify := newVerifier(ledger, buckets, metrics, cfg.MinerVerificationBackoff, logger)
	buckets.verifier = verify

	return &UploadJob{
		source:       source,
		resolver:     newPositionResolver(source, ledger, cfg, logger),
		buckets:      buckets,
		uploader:     newChunkUploader(ledger, buckets, metrics, cfg, logger),
		verifier:     verify,
		journal:      journal,
		metrics:      metrics,
		logger:       logger,
		account:      cfg.Account,
		maxFailures:  cfg.MaxCandidateFailures,
		attemptDelay: cfg.AttemptDelay,
		sleep:        clock.SleepWithContext,
		now:          time.Now,
	}, nil
}

// Name identifies the job in logs, metrics and the admin API.
func (j *UploadJob) Name() string {
	return UploadJobName
}

// Execute runs one upload pass.
func (j *UploadJob) Execute(ctx context.Context) error {
	if err := j.buckets.Reconcile(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		j.logger.Warn("bucket reconciliation incomplete", zap.Error(err))
	}
	if err := j.buckets.EnsureCapacity(ctx); err != nil {
		return err
	}

	failures := 0
	for failures < j.maxFailures {
		header, err := j.resolver.Resolve(ctx)
		if idle(err) {
			j.logger.Info("no block to upload", zap.String("reason", err.Error()))
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve upload position: %w", err)
		}

		if err := j.upload(ctx, header); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if capacity(err) {
				return err
			}
			failures++
			j.buckets.DeleteBucket(ctx, header.Height, header.Hash.String())
			j.logger.Error("block upload failed",
				zap.Uint64("height", header.Height),
				zap.Stringer("hash", header.Hash),
				zap.Int("failures", failures),
				zap.Error(err))
		}

		if err := j.sleep(ctx, j.attemptDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %d failed candidates", ErrCandidateBudgetExhausted, failures)
}

// upload takes one candidate through init, chunk push and verification.
func (j *UploadJob) upload(ctx context.Context, header model.BlockHeader) (err error) {
	attempt := model.UploadAttempt{
		Synchronizer: j.account,
		Height:       header.Height,
		Hash:         header.Hash.String(),
		StartedAt:    j.now(),
	}
	defer func() {
		j.metrics.ObserveUpload(err, header.Height, attempt.StartedAt)
		if errors.Is(err, context.Canceled) {
			return
		}
		j.record(ctx, attempt, err)
	}()

	raw, err := j.source.RawBlock(ctx, header.Hash)
	if err != nil {
		return fmt.Errorf("raw block %s: %w", header.Hash, err)
	}
	chunks := j.uploader.Split(raw)
	numChunks, err := safe.Uint32(len(chunks))
	if err != nil {
		return fmt.Errorf("chunk count of block %d: %w", header.Height, err)
	}
	attempt.BlockSize = uint64(len(raw))
	attempt.NumChunks = numChunks

	if err := j.buckets.InitBucket(ctx, header, attempt.BlockSize, numChunks); err != nil {
		return err
	}
	rounds, err := j.uploader.Upload(ctx, header, chunks)
	attempt.PushRounds = rounds
	if err != nil {
		return err
	}

	bucket, err := j.buckets.Bucket(ctx, header)
	if err != nil {
		return err
	}
	if bucket == nil {
		return fmt.Errorf("%w: bucket %d missing", ErrUploadIncomplete, header.Height)
	}
	if bucket.Status != model.BucketStatusUploadComplete {
		return fmt.Errorf("%w: bucket %d is %s with %d of %d chunks",
			ErrUploadIncomplete, header.Height, bucket.Status, bucket.ChunksReceived, bucket.NumChunks)
	}

	return j.verifier.Verify(ctx, header.Height, attempt.Hash)
}

func (j *UploadJob) record(ctx context.Context, attempt model.UploadAttempt, err error) {
	attempt.Duration = j.now().Sub(attempt.StartedAt)
	attempt.Outcome = model.UploadOutcomeVerified
	if err != nil {
		attempt.Outcome = model.UploadOutcomeFailed
		attempt.Error = err.Error()
	}
	if recErr := j.journal.Record(ctx, attempt); recErr != nil {
		j.logger.Warn("journal upload attempt failed",
			zap.Uint64("height", attempt.Height),
			zap.Error(recErr))
	}
}
