package synchronizer

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	SourceChain interface {
		BestBlock(ctx context.Context) (model.BlockHeader, error)
		HeaderByHeight(ctx context.Context, height uint64) (model.BlockHeader, error)
		Header(ctx context.Context, hash chainhash.Hash) (model.BlockHeader, error)
		RawBlock(ctx context.Context, hash chainhash.Hash) ([]byte, error)
	}
	Ledger interface {
		SynchronizerByAccount(ctx context.Context, account string) (*model.Synchronizer, error)
		Buckets(ctx context.Context, account string, status model.BucketStatus) ([]model.BlockBucket, error)
		BucketsOfAll(ctx context.Context, status model.BucketStatus) ([]model.BlockBucket, error)
		BucketByID(ctx context.Context, account string, id model.BlockID) (*model.BlockBucket, error)
		LastConsensusBlock(ctx context.Context) (*model.ConsensusBlock, error)
		ConsensusBlockByID(ctx context.Context, id model.BlockID) (*model.ConsensusBlock, error)
		ChainState(ctx context.Context) (*model.ChainState, error)
		InitBucket(ctx context.Context, height uint64, hash string, blockSize uint64, numChunks uint32) error
		PushChunk(ctx context.Context, height uint64, hash string, chunk model.Chunk) error
		DeleteBucket(ctx context.Context, height uint64, hash string) error
		Verify(ctx context.Context, height uint64, hash string) (model.VerifyStatus, error)
		ProcessBlock(ctx context.Context, processRows uint32) (string, error)
	}
	UploadJournal interface {
		Record(ctx context.Context, attempt model.UploadAttempt) error
	}
	JournalRepository interface {
		InsertUploadAttempts(ctx context.Context, attempts []model.UploadAttempt) error
	}
	Metrics interface {
		ObserveUpload(err error, height uint64, started time.Time)
		ObservePushRound(failed int)
		ObserveVerify(result string)
	}

	PositionResolver interface {
		Resolve(ctx context.Context) (model.BlockHeader, error)
	}
	BucketDeleter interface {
		DeleteBucket(ctx context.Context, height uint64, hash string)
	}
	BucketManager interface {
		BucketDeleter
		EnsureCapacity(ctx context.Context) error
		InitBucket(ctx context.Context, header model.BlockHeader, blockSize uint64, numChunks uint32) error
		Bucket(ctx context.Context, header model.BlockHeader) (*model.BlockBucket, error)
		Reconcile(ctx context.Context) error
	}
	ChunkUploader interface {
		Split(payload []byte) []model.Chunk
		Upload(ctx context.Context, header model.BlockHeader, chunks []model.Chunk) (rounds uint32, err error)
	}
	Verifier interface {
		Verify(ctx context.Context, height uint64, hash string) error
	}
)
