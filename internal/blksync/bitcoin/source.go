// Package bitcoin reads block positions and raw blocks from a Bitcoin node.
package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/pkg/safe"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultAttempts      = 3
	defaultBlockAttempts = 10
	defaultRetryDelay    = time.Second
)

// Source is the source chain reader. Every call is retried with a constant
// backoff because the node occasionally drops HTTP POST connections.
type Source struct {
	rpc           RPCClient
	logger        *zap.Logger
	attempts      uint64
	blockAttempts uint64
	retryDelay    time.Duration
}

// NewSource builds a Source over an RPC client.
func NewSource(rpc RPCClient, logger *zap.Logger) *Source {
	return &Source{
		rpc:           rpc,
		logger:        logger,
		attempts:      defaultAttempts,
		blockAttempts: defaultBlockAttempts,
		retryDelay:    defaultRetryDelay,
	}
}

// BestBlock returns the header of the node's chain tip.
func (s *Source) BestBlock(ctx context.Context) (model.BlockHeader, error) {
	var hash *chainhash.Hash
	err := s.retry(ctx, s.attempts, "get best block hash", func() (err error) {
		hash, err = s.rpc.GetBestBlockHash()
		return err
	})
	if err != nil {
		return model.BlockHeader{}, fmt.Errorf("get best block hash: %w", err)
	}
	return s.Header(ctx, *hash)
}

// HeaderByHeight returns the header of the block at height on the node's active chain.
func (s *Source) HeaderByHeight(ctx context.Context, height uint64) (model.BlockHeader, error) {
	h, err := safe.Int64(height)
	if err != nil {
		return model.BlockHeader{}, err
	}

	var hash *chainhash.Hash
	err = s.retry(ctx, s.attempts, "get block hash", func() (err error) {
		hash, err = s.rpc.GetBlockHash(h)
		return err
	})
	if err != nil {
		return model.BlockHeader{}, fmt.Errorf("get block hash %d: %w", height, err)
	}
	return s.Header(ctx, *hash)
}

// Header returns the header of the block with the given hash.
func (s *Source) Header(ctx context.Context, hash chainhash.Hash) (model.BlockHeader, error) {
	var res *btcjson.GetBlockHeaderVerboseResult
	err := s.retry(ctx, s.attempts, "get block header", func() (err error) {
		res, err = s.rpc.GetBlockHeaderVerbose(&hash)
		return err
	})
	if err != nil {
		return model.BlockHeader{}, fmt.Errorf("get block header %s: %w", hash, err)
	}
	return convertHeader(hash, res)
}

// RawBlock returns the consensus serialization of the block, witness included.
func (s *Source) RawBlock(ctx context.Context, hash chainhash.Hash) ([]byte, error) {
	var raw []byte
	err := s.retry(ctx, s.blockAttempts, "get block", func() error {
		block, err := s.rpc.GetBlock(&hash)
		if err != nil {
			return err
		}
		raw, err = btcutil.NewBlock(block).Bytes()
		if err != nil {
			return fmt.Errorf("serialize block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	return raw, nil
}

func (s *Source) retry(ctx context.Context, attempts uint64, operation string, fn func() error) error {
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewConstant(s.retryDelay))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(); err != nil {
			s.logger.Warn("rpc call failed",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func convertHeader(hash chainhash.Hash, res *btcjson.GetBlockHeaderVerboseResult) (model.BlockHeader, error) {
	if res == nil {
		return model.BlockHeader{}, errors.New("empty block header result")
	}
	height, err := safe.Uint64(res.Height)
	if err != nil {
		return model.BlockHeader{}, fmt.Errorf("block height: %w", err)
	}

	header := model.BlockHeader{Height: height, Hash: hash}
	if res.PreviousHash != "" {
		prev, err := chainhash.NewHashFromStr(res.PreviousHash)
		if err != nil {
			return model.BlockHeader{}, fmt.Errorf("parse previous hash: %w", err)
		}
		header.PreviousHash = *prev
	}
	return header, nil
}
