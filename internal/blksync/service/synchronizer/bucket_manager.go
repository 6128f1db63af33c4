package synchronizer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
)

// bucketManager owns the lifecycle of this account's buckets on the ledger.
type bucketManager struct {
	ledger   Ledger
	verifier Verifier
	account  string
	logger   *zap.Logger
}

func newBucketManager(ledger Ledger, verifier Verifier, account string, logger *zap.Logger) *bucketManager {
	return &bucketManager{
		ledger:   ledger,
		verifier: verifier,
		account:  account,
		logger:   logger,
	}
}

// EnsureCapacity fails with ErrNotWhitelisted or ErrNoFreeSlot when the
// account cannot open another bucket.
func (m *bucketManager) EnsureCapacity(ctx context.Context) error {
	reg, err := m.ledger.SynchronizerByAccount(ctx, m.account)
	if err != nil {
		return fmt.Errorf("synchronizer %s: %w", m.account, err)
	}
	if reg == nil {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, m.account)
	}
	uploading, err := m.ledger.Buckets(ctx, m.account, model.BucketStatusUploading)
	if err != nil {
		return fmt.Errorf("uploading buckets of %s: %w", m.account, err)
	}
	if uint64(len(uploading)) >= uint64(reg.NumSlots) {
		return fmt.Errorf("%w: %d of %d slots in use", ErrNoFreeSlot, len(uploading), reg.NumSlots)
	}
	return nil
}

// InitBucket opens a bucket for header after checking capacity and that no
// bucket for the same block id is already present.
func (m *bucketManager) InitBucket(ctx context.Context, header model.BlockHeader, blockSize uint64, numChunks uint32) error {
	if err := m.EnsureCapacity(ctx); err != nil {
		return err
	}
	existing, err := m.Bucket(ctx, header)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: height %d hash %s status %s", ErrBucketExists, header.Height, existing.Hash, existing.Status)
	}
	if err := m.ledger.InitBucket(ctx, header.Height, header.Hash.String(), blockSize, numChunks); err != nil {
		return fmt.Errorf("init bucket %d: %w", header.Height, err)
	}
	m.logger.Info("bucket initialized",
		zap.Uint64("height", header.Height),
		zap.Stringer("hash", header.Hash),
		zap.Uint64("block_size", blockSize),
		zap.Uint32("num_chunks", numChunks))
	return nil
}

// Bucket returns this account's bucket for header, or nil if there is none.
func (m *bucketManager) Bucket(ctx context.Context, header model.BlockHeader) (*model.BlockBucket, error) {
	bucket, err := m.ledger.BucketByID(ctx, m.account, model.ComputeBlockID(header.Height, header.Hash))
	if err != nil {
		return nil, fmt.Errorf("bucket %d %s: %w", header.Height, header.Hash, err)
	}
	return bucket, nil
}

// DeleteBucket removes a bucket. Failures are logged and swallowed since the
// bucket may already be gone.
func (m *bucketManager) DeleteBucket(ctx context.Context, height uint64, hash string) {
	if err := m.ledger.DeleteBucket(ctx, height, hash); err != nil {
		m.logger.Warn("delete bucket failed",
			zap.Uint64("height", height),
			zap.String("hash", hash),
			zap.Error(err))
		return
	}
	m.logger.Info("bucket deleted", zap.Uint64("height", height), zap.String("hash", hash))
}

// Reconcile clears out abandoned and obsolete buckets, then resumes
// verification of the rest in ascending height order. Verification errors
// are aggregated and never stop the pass.
func (m *bucketManager) Reconcile(ctx context.Context) error {
	uploading, err := m.ledger.Buckets(ctx, m.account, model.BucketStatusUploading)
	if err != nil {
		return fmt.Errorf("uploading buckets of %s: %w", m.account, err)
	}
	for _, b := range uploading {
		m.DeleteBucket(ctx, b.Height, b.Hash)
	}

	last, err := m.ledger.LastConsensusBlock(ctx)
	if err != nil {
		return fmt.Errorf("last consensus block: %w", err)
	}
	if last != nil {
		all, err := m.ledger.Buckets(ctx, m.account, model.BucketStatusUnknown)
		if err != nil {
			return fmt.Errorf("buckets of %s: %w", m.account, err)
		}
		for _, b := range all {
			if b.Height <= last.Height {
				m.DeleteBucket(ctx, b.Height, b.Hash)
			}
		}
	}

	remaining, err := m.ledger.Buckets(ctx, m.account, model.BucketStatusUnknown)
	if err != nil {
		return fmt.Errorf("buckets of %s: %w", m.account, err)
	}
	resumable := make([]model.BlockBucket, 0, len(remaining))
	for _, b := range remaining {
		if b.Status.Resumable() {
			resumable = append(resumable, b)
		}
	}
	sort.SliceStable(resumable, func(i, j int) bool { return resumable[i].Height < resumable[j].Height })

	var errs error
	for _, b := range resumable {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		m.logger.Info("resuming verification",
			zap.Uint64("height", b.Height),
			zap.String("hash", b.Hash),
			zap.Stringer("status", b.Status))
		if err := m.verifier.Verify(ctx, b.Height, b.Hash); err != nil {
			m.logger.Warn("resumed verification failed",
				zap.Uint64("height", b.Height),
				zap.String("hash", b.Hash),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
