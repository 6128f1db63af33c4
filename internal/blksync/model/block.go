// Package model holds the domain types shared by the block synchronizer.
package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeader is a block position on the source chain.
type BlockHeader struct {
	Height       uint64
	Hash         chainhash.Hash
	PreviousHash chainhash.Hash
}

// HasParent reports whether the header links to a previous block.
// Only the genesis block has a zero previous hash.
func (h BlockHeader) HasParent() bool {
	return h.PreviousHash != chainhash.Hash{}
}

// ParentHeight returns the height of the previous block.
func (h BlockHeader) ParentHeight() uint64 {
	if h.Height == 0 {
		return 0
	}
	return h.Height - 1
}

// BlockID identifies a (height, hash) pair on the destination chain.
type BlockID [sha256.Size]byte

// ComputeBlockID returns sha256(LE64(height) || hash) where hash is taken in
// the byte order the node displays it.
func ComputeBlockID(height uint64, hash chainhash.Hash) BlockID {
	var buf [8 + chainhash.HashSize]byte
	binary.LittleEndian.PutUint64(buf[:8], height)
	for i := 0; i < chainhash.HashSize; i++ {
		buf[8+i] = hash[chainhash.HashSize-1-i]
	}
	return sha256.Sum256(buf[:])
}

// String renders the id as a checksum256 hex string.
func (id BlockID) String() string {
	return hex.EncodeToString(id[:])
}
