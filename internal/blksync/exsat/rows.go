package exsat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/pkg/safe"
	"github.com/sugawarayuuta/sonnet"
)

// flexUint64 accepts numbers and the quoted form nodeos uses for wide integers.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse uint64 %q: %w", s, err)
	}
	*f = flexUint64(v)
	return nil
}

// timePointSec parses Antelope time_point(_sec) values, which are UTC without a zone suffix.
type timePointSec time.Time

func (t *timePointSec) UnmarshalJSON(b []byte) error {
	s := strings.TrimSuffix(strings.Trim(string(b), `"`), "Z")
	if s == "" || s == "null" {
		*t = timePointSec(time.Time{})
		return nil
	}
	parsed, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse time point %q: %w", s, err)
	}
	*t = timePointSec(parsed)
	return nil
}

type synchronizerRow struct {
	Synchronizer string     `json:"synchronizer"`
	NumSlots     flexUint64 `json:"num_slots"`
}

type bucketRow struct {
	Height            flexUint64 `json:"height"`
	Hash              string     `json:"hash"`
	Status            flexUint64 `json:"status"`
	Size              flexUint64 `json:"size"`
	NumChunks         flexUint64 `json:"num_chunks"`
	UploadedNumChunks flexUint64 `json:"uploaded_num_chunks"`
}

type consensusRow struct {
	Height       flexUint64 `json:"height"`
	Hash         string     `json:"hash"`
	BlockID      string     `json:"block_id"`
	Synchronizer string     `json:"synchronizer"`
}

type chainStateRow struct {
	HeadHeight           flexUint64   `json:"head_height"`
	ParsingHeight        flexUint64   `json:"parsing_height"`
	ParsingHash          string       `json:"parsing_hash"`
	Parser               string       `json:"parser"`
	Synchronizer         string       `json:"synchronizer"`
	ParsedExpirationTime timePointSec `json:"parsed_expiration_time"`
}

type statusReturn struct {
	Status string `json:"status"`
}

func decodeRows[R any, M any](raw []json.RawMessage, convert func(R) (M, error)) ([]M, error) {
	out := make([]M, 0, len(raw))
	for _, r := range raw {
		var row R
		if err := sonnet.Unmarshal(r, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		m, err := convert(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r synchronizerRow) toModel() (model.Synchronizer, error) {
	slots, err := safe.Uint32(uint64(r.NumSlots))
	if err != nil {
		return model.Synchronizer{}, fmt.Errorf("synchronizer %s slots: %w", r.Synchronizer, err)
	}
	return model.Synchronizer{Account: r.Synchronizer, NumSlots: slots}, nil
}

func (r consensusRow) toModel() (model.ConsensusBlock, error) {
	return model.ConsensusBlock{
		Height:       uint64(r.Height),
		Hash:         r.Hash,
		BlockID:      r.BlockID,
		Synchronizer: r.Synchronizer,
	}, nil
}

func (r chainStateRow) toModel() (model.ChainState, error) {
	return model.ChainState{
		HeadHeight:           uint64(r.HeadHeight),
		ParsingHeight:        uint64(r.ParsingHeight),
		ParsingHash:          r.ParsingHash,
		Parser:               r.Parser,
		Synchronizer:         r.Synchronizer,
		ParsedExpirationTime: time.Time(r.ParsedExpirationTime),
	}, nil
}

func bucketConverter(account string) func(bucketRow) (model.BlockBucket, error) {
	return func(r bucketRow) (model.BlockBucket, error) {
		if r.Status > flexUint64(model.BucketStatusVerifyPass) {
			return model.BlockBucket{}, fmt.Errorf("bucket %d: unknown status %d", r.Height, r.Status)
		}
		numChunks, err := safe.Uint32(uint64(r.NumChunks))
		if err != nil {
			return model.BlockBucket{}, fmt.Errorf("bucket %d chunks: %w", r.Height, err)
		}
		received, err := safe.Uint32(uint64(r.UploadedNumChunks))
		if err != nil {
			return model.BlockBucket{}, fmt.Errorf("bucket %d uploaded chunks: %w", r.Height, err)
		}
		return model.BlockBucket{
			Synchronizer:   account,
			Height:         uint64(r.Height),
			Hash:           r.Hash,
			Status:         model.BucketStatus(r.Status),
			BlockSize:      uint64(r.Size),
			NumChunks:      numChunks,
			ChunksReceived: received,
		}, nil
	}
}
