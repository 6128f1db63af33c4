package exsat

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/sync/errgroup"
)

const (
	tableSynchronizer = "synchronizer"
	tableBlockBuckets = "blockbuckets"
	tableConsensusBlk = "consensusblk"
	tableChainState   = "chainstate"

	actionInitBucket   = "initbucket"
	actionPushChunk    = "pushchunk"
	actionDelBucket    = "delbucket"
	actionVerify       = "verify"
	actionProcessBlock = "processblock"

	indexSecondary = "secondary"
	indexTertiary  = "tertiary"
	keyTypeI64     = "i64"
	keyTypeSHA256  = "sha256"
)

// Contracts names the system contracts the synchronizer talks to.
type Contracts struct {
	PoolReg string
	BlkSync string
	UtxoMng string
}

// DefaultContracts returns the mainnet contract accounts.
func DefaultContracts() Contracts {
	return Contracts{
		PoolReg: "poolreg.xsat",
		BlkSync: "blksync.xsat",
		UtxoMng: "utxomng.xsat",
	}
}

// Ledger is a typed view of the exSat contracts for one synchronizer account.
type Ledger struct {
	gateway    Gateway
	contracts  Contracts
	account    string
	permission string
}

// NewLedger builds a Ledger acting as account@permission.
func NewLedger(gateway Gateway, contracts Contracts, account, permission string) *Ledger {
	if permission == "" {
		permission = "active"
	}
	return &Ledger{
		gateway:    gateway,
		contracts:  contracts,
		account:    account,
		permission: permission,
	}
}

// Account returns the synchronizer account the ledger signs for.
func (l *Ledger) Account() string {
	return l.account
}

// Synchronizers lists every registered synchronizer.
func (l *Ledger) Synchronizers(ctx context.Context) ([]model.Synchronizer, error) {
	rows, err := l.gateway.GetTableRows(ctx, TableQuery{
		Code:  l.contracts.PoolReg,
		Table: tableSynchronizer,
	})
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, synchronizerRow.toModel)
}

// SynchronizerByAccount returns the registry row of account, or nil when absent.
func (l *Ledger) SynchronizerByAccount(ctx context.Context, account string) (*model.Synchronizer, error) {
	all, err := l.Synchronizers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Account == account {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Buckets lists the buckets of account. A zero status lists every status.
func (l *Ledger) Buckets(ctx context.Context, account string, status model.BucketStatus) ([]model.BlockBucket, error) {
	q := TableQuery{
		Code:  l.contracts.BlkSync,
		Scope: account,
		Table: tableBlockBuckets,
	}
	if status != model.BucketStatusUnknown {
		bound := strconv.FormatUint(uint64(status), 10)
		q.IndexPosition = indexSecondary
		q.KeyType = keyTypeI64
		q.LowerBound = bound
		q.UpperBound = bound
	}
	rows, err := l.gateway.GetTableRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows, bucketConverter(account))
}

// BucketsOfAll lists buckets with status across every registered synchronizer.
func (l *Ledger) BucketsOfAll(ctx context.Context, status model.BucketStatus) ([]model.BlockBucket, error) {
	synchronizers, err := l.Synchronizers(ctx)
	if err != nil {
		return nil, err
	}

	perAccount := make([][]model.BlockBucket, len(synchronizers))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range synchronizers {
		g.Go(func() error {
			buckets, err := l.Buckets(gctx, s.Account, status)
			if err != nil {
				return fmt.Errorf("buckets of %s: %w", s.Account, err)
			}
			perAccount[i] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.BlockBucket
	for _, buckets := range perAccount {
		all = append(all, buckets...)
	}
	return all, nil
}

// BucketByID returns the bucket of account for a block id, or nil when absent.
func (l *Ledger) BucketByID(ctx context.Context, account string, id model.BlockID) (*model.BlockBucket, error) {
	rows, err := l.gateway.GetTableRows(ctx, TableQuery{
		Code:          l.contracts.BlkSync,
		Scope:         account,
		Table:         tableBlockBuckets,
		IndexPosition: indexTertiary,
		KeyType:       keyTypeSHA256,
		LowerBound:    id.String(),
		UpperBound:    id.String(),
		Limit:         1,
	})
	if err != nil {
		return nil, err
	}
	buckets, err := decodeRows(rows, bucketConverter(account))
	if err != nil || len(buckets) == 0 {
		return nil, err
	}
	return &buckets[0], nil
}

// LastConsensusBlock returns the highest consensus block, or nil when none exists.
func (l *Ledger) LastConsensusBlock(ctx context.Context) (*model.ConsensusBlock, error) {
	return l.consensusBlock(ctx, TableQuery{
		Code:    l.contracts.UtxoMng,
		Table:   tableConsensusBlk,
		Reverse: true,
		Limit:   1,
	})
}

// ConsensusBlockByID returns the consensus block for id, or nil when absent.
func (l *Ledger) ConsensusBlockByID(ctx context.Context, id model.BlockID) (*model.ConsensusBlock, error) {
	return l.consensusBlock(ctx, TableQuery{
		Code:          l.contracts.UtxoMng,
		Table:         tableConsensusBlk,
		IndexPosition: indexTertiary,
		KeyType:       keyTypeSHA256,
		LowerBound:    id.String(),
		UpperBound:    id.String(),
		Reverse:       true,
		Limit:         1,
	})
}

func (l *Ledger) consensusBlock(ctx context.Context, q TableQuery) (*model.ConsensusBlock, error) {
	rows, err := l.gateway.GetTableRows(ctx, q)
	if err != nil {
		return nil, err
	}
	blocks, err := decodeRows(rows, consensusRow.toModel)
	if err != nil || len(blocks) == 0 {
		return nil, err
	}
	return &blocks[0], nil
}

// ChainState returns the utxomng chain state singleton.
func (l *Ledger) ChainState(ctx context.Context) (*model.ChainState, error) {
	rows, err := l.gateway.GetTableRows(ctx, TableQuery{
		Code:    l.contracts.UtxoMng,
		Table:   tableChainState,
		Reverse: true,
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	states, err := decodeRows(rows, chainStateRow.toModel)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("%s.%s is empty", l.contracts.UtxoMng, tableChainState)
	}
	return &states[0], nil
}

type bucketKey struct {
	Synchronizer string `json:"synchronizer"`
	Height       uint64 `json:"height"`
	Hash         string `json:"hash"`
}

type initBucketData struct {
	Synchronizer string `json:"synchronizer"`
	Height       uint64 `json:"height"`
	Hash         string `json:"hash"`
	BlockSize    uint64 `json:"block_size"`
	NumChunks    uint32 `json:"num_chunks"`
}

type pushChunkData struct {
	Synchronizer string `json:"synchronizer"`
	Height       uint64 `json:"height"`
	Hash         string `json:"hash"`
	ChunkID      uint32 `json:"chunk_id"`
	Data         string `json:"data"`
}

type processBlockData struct {
	Synchronizer string `json:"synchronizer"`
	ProcessRows  uint32 `json:"process_rows"`
}

// InitBucket opens a bucket for the block.
func (l *Ledger) InitBucket(ctx context.Context, height uint64, hash string, blockSize uint64, numChunks uint32) error {
	_, err := l.push(ctx, l.contracts.BlkSync, actionInitBucket, initBucketData{
		Synchronizer: l.account,
		Height:       height,
		Hash:         hash,
		BlockSize:    blockSize,
		NumChunks:    numChunks,
	})
	return err
}

// PushChunk uploads one chunk into the bucket.
func (l *Ledger) PushChunk(ctx context.Context, height uint64, hash string, chunk model.Chunk) error {
	_, err := l.push(ctx, l.contracts.BlkSync, actionPushChunk, pushChunkData{
		Synchronizer: l.account,
		Height:       height,
		Hash:         hash,
		ChunkID:      chunk.ID,
		Data:         hex.EncodeToString(chunk.Data),
	})
	return err
}

// DeleteBucket removes the bucket.
func (l *Ledger) DeleteBucket(ctx context.Context, height uint64, hash string) error {
	_, err := l.push(ctx, l.contracts.BlkSync, actionDelBucket, l.key(height, hash))
	return err
}

// Verify advances the bucket's verification by one step and returns the new status.
func (l *Ledger) Verify(ctx context.Context, height uint64, hash string) (model.VerifyStatus, error) {
	res, err := l.push(ctx, l.contracts.BlkSync, actionVerify, l.key(height, hash))
	if err != nil {
		return "", err
	}
	status, err := decodeStatus(res)
	return model.VerifyStatus(status), err
}

// ProcessBlock asks utxomng to parse up to processRows rows and returns its status.
func (l *Ledger) ProcessBlock(ctx context.Context, processRows uint32) (string, error) {
	res, err := l.push(ctx, l.contracts.UtxoMng, actionProcessBlock, processBlockData{
		Synchronizer: l.account,
		ProcessRows:  processRows,
	})
	if err != nil {
		return "", err
	}
	return decodeStatus(res)
}

func (l *Ledger) key(height uint64, hash string) bucketKey {
	return bucketKey{Synchronizer: l.account, Height: height, Hash: hash}
}

func (l *Ledger) push(ctx context.Context, contract, name string, data any) (*ActionResult, error) {
	return l.gateway.PushAction(ctx, Action{
		Account:       contract,
		Name:          name,
		Authorization: []Authorization{{Actor: l.account, Permission: l.permission}},
		Data:          data,
	})
}

func decodeStatus(res *ActionResult) (string, error) {
	if res == nil || len(res.ReturnValue) == 0 {
		return "", fmt.Errorf("action returned no value")
	}
	var out statusReturn
	if err := sonnet.Unmarshal(res.ReturnValue, &out); err != nil {
		return "", fmt.Errorf("decode return value: %w", err)
	}
	return out.Status, nil
}
