package model

import "time"

// VerifyStatus is the status string returned by the verify action.
type VerifyStatus string

const (
	VerifyStatusMerkle                   VerifyStatus = "verify_merkle"
	VerifyStatusParentHash               VerifyStatus = "verify_parent_hash"
	VerifyStatusWaitingMinerVerification VerifyStatus = "waiting_miner_verification"
	VerifyStatusFail                     VerifyStatus = "verify_fail"
	VerifyStatusPass                     VerifyStatus = "verify_pass"
)

// Pending reports whether another verify call is required.
func (s VerifyStatus) Pending() bool {
	switch s {
	case VerifyStatusMerkle, VerifyStatusParentHash, VerifyStatusWaitingMinerVerification:
		return true
	default:
		return false
	}
}

// ParseStatusParsing is returned by processblock while the parse is unfinished.
const ParseStatusParsing = "parsing"

// Synchronizer is a registered uploader account.
type Synchronizer struct {
	Account  string
	NumSlots uint32
}

// ConsensusBlock is a block that reached consensus on the destination chain.
type ConsensusBlock struct {
	Height       uint64
	Hash         string
	BlockID      string
	Synchronizer string
}

// ChainState is the destination chain's parse cursor.
type ChainState struct {
	HeadHeight           uint64
	ParsingHeight        uint64
	ParsingHash          string
	Parser               string
	Synchronizer         string
	ParsedExpirationTime time.Time
}

const zeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// HasPendingParse reports whether a block is waiting to be parsed.
func (c ChainState) HasPendingParse() bool {
	return c.ParsingHash != "" && c.ParsingHash != zeroHash
}

// CurrentParser returns the account holding the parse lease.
func (c ChainState) CurrentParser() string {
	if c.Parser != "" {
		return c.Parser
	}
	return c.Synchronizer
}
