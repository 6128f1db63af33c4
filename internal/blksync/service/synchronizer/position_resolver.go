package synchronizer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
)

// positionResolver picks the next source block whose parent the destination
// chain already has, walking back across forks when needed.
type positionResolver struct {
	source       SourceChain
	ledger       Ledger
	logger       *zap.Logger
	startHeight  uint64
	maxUploaders int
}

func newPositionResolver(source SourceChain, ledger Ledger, cfg Config, logger *zap.Logger) *positionResolver {
	return &positionResolver{
		source:       source,
		ledger:       ledger,
		logger:       logger,
		startHeight:  cfg.StartHeight,
		maxUploaders: cfg.MaxUploaders,
	}
}

// Resolve returns the candidate to upload next, ErrNothingToUpload when the
// destination is caught up, or ErrUnresolvable when no safe candidate exists.
func (r *positionResolver) Resolve(ctx context.Context) (model.BlockHeader, error) {
	best, err := r.source.BestBlock(ctx)
	if err != nil {
		return model.BlockHeader{}, fmt.Errorf("source best block: %w", err)
	}
	dest, err := r.destinationHeight(ctx)
	if err != nil {
		return model.BlockHeader{}, err
	}
	if dest >= best.Height {
		return model.BlockHeader{}, fmt.Errorf("%w: destination %d, source %d", ErrNothingToUpload, dest, best.Height)
	}

	candidate, err := r.source.HeaderByHeight(ctx, dest+1)
	if err != nil {
		return model.BlockHeader{}, fmt.Errorf("source header at %d: %w", dest+1, err)
	}

	for walked := 0; ; walked++ {
		if !candidate.HasParent() {
			return model.BlockHeader{}, fmt.Errorf("%w: %s has no parent", ErrUnresolvable, candidate.Hash)
		}
		parentHeight := candidate.ParentHeight()
		accepted, err := r.accepted(ctx, parentHeight, candidate.PreviousHash)
		if err != nil {
			return model.BlockHeader{}, err
		}
		if accepted {
			if walked > 0 {
				r.logger.Info("walked back to fork point",
					zap.Int("depth", walked),
					zap.Uint64("height", candidate.Height),
					zap.Stringer("hash", candidate.Hash))
			}
			return candidate, nil
		}
		if walked > 0 {
			uploaders, err := r.uploaders(ctx, candidate.PreviousHash)
			if err != nil {
				return model.BlockHeader{}, err
			}
			if uploaders >= r.maxUploaders {
				return model.BlockHeader{}, fmt.Errorf("%w: %d uploaders already on parent %d %s",
					ErrUnresolvable, uploaders, parentHeight, candidate.PreviousHash)
			}
		}

		parent, err := r.source.Header(ctx, candidate.PreviousHash)
		if err != nil {
			return model.BlockHeader{}, fmt.Errorf("source header %s: %w", candidate.PreviousHash, err)
		}
		candidate = parent
	}
}

// destinationHeight is the highest height the destination chain has accepted
// or is currently verifying.
func (r *positionResolver) destinationHeight(ctx context.Context) (uint64, error) {
	var (
		waiting, passed []model.BlockBucket
		last            *model.ConsensusBlock
		state           *model.ChainState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		waiting, err = r.ledger.BucketsOfAll(gctx, model.BucketStatusWaitingMinerVerification)
		return err
	})
	g.Go(func() (err error) {
		passed, err = r.ledger.BucketsOfAll(gctx, model.BucketStatusVerifyPass)
		return err
	})
	g.Go(func() (err error) {
		last, err = r.ledger.LastConsensusBlock(gctx)
		return err
	})
	g.Go(func() (err error) {
		state, err = r.ledger.ChainState(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("destination height: %w", err)
	}

	height := state.HeadHeight
	if last != nil && last.Height > height {
		height = last.Height
	}
	for _, buckets := range [][]model.BlockBucket{waiting, passed} {
		for _, b := range buckets {
			if b.Height > height {
				height = b.Height
			}
		}
	}
	return height, nil
}

// accepted reports whether the destination chain has, or is about to have,
// the block at height with hash.
func (r *positionResolver) accepted(ctx context.Context, height uint64, hash chainhash.Hash) (bool, error) {
	if height < r.startHeight {
		return true, nil
	}
	want := hash.String()

	var (
		waiting, passed []model.BlockBucket
		consensus       *model.ConsensusBlock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		waiting, err = r.ledger.BucketsOfAll(gctx, model.BucketStatusWaitingMinerVerification)
		return err
	})
	g.Go(func() (err error) {
		passed, err = r.ledger.BucketsOfAll(gctx, model.BucketStatusVerifyPass)
		return err
	})
	g.Go(func() (err error) {
		consensus, err = r.ledger.ConsensusBlockByID(gctx, model.ComputeBlockID(height, hash))
		return err
	})
	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("acceptance of %d %s: %w", height, want, err)
	}

	if consensus != nil {
		return true, nil
	}
	for _, buckets := range [][]model.BlockBucket{waiting, passed} {
		for _, b := range buckets {
			if b.Height == height && b.Hash == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// uploaders counts distinct accounts holding a bucket for hash.
func (r *positionResolver) uploaders(ctx context.Context, hash chainhash.Hash) (int, error) {
	buckets, err := r.ledger.BucketsOfAll(ctx, model.BucketStatusUnknown)
	if err != nil {
		return 0, fmt.Errorf("buckets of all synchronizers: %w", err)
	}
	want := hash.String()
	accounts := make(map[string]struct{})
	for _, b := range buckets {
		if b.Hash == want {
			accounts[b.Synchronizer] = struct{}{}
		}
	}
	return len(accounts), nil
}
