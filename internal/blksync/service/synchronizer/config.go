package synchronizer

import (
	"errors"
	"time"
)

const (
	defaultStartHeight              = 840000
	defaultChunkSize                = 128 << 10
	defaultMaxUploaders             = 4
	defaultMaxPushRounds            = 10
	defaultPushWorkers              = 16
	defaultPushRPS                  = 50
	defaultSettleDelay              = time.Second
	defaultMinerVerificationBackoff = 6 * time.Second
	defaultMaxCandidateFailures     = 5
	defaultAttemptDelay             = time.Second
	defaultProcessRows              = 3000
	defaultProcessRowsStep          = 500
	defaultParseAttempts            = 5
	defaultParseRetryDelay          = 200 * time.Millisecond
)

// Config carries everything the engine would otherwise read from the environment.
type Config struct {
	Account string
	// Heights below StartHeight count as present on the destination chain.
	StartHeight uint64
	ChunkSize   int
	// MaxUploaders caps distinct accounts on a contested parent before the
	// resolver gives up on that fork.
	MaxUploaders int

	MaxPushRounds int
	PushWorkers   int
	PushRPS       int
	SettleDelay   time.Duration

	MinerVerificationBackoff time.Duration

	MaxCandidateFailures int
	AttemptDelay         time.Duration

	ProcessRows     uint32
	ProcessRowsStep uint32
	ParseAttempts   int
	ParseRetryDelay time.Duration
}

// DefaultConfig returns the production defaults for account.
func DefaultConfig(account string) Config {
	return Config{
		Account:                  account,
		StartHeight:              defaultStartHeight,
		ChunkSize:                defaultChunkSize,
		MaxUploaders:             defaultMaxUploaders,
		MaxPushRounds:            defaultMaxPushRounds,
		PushWorkers:              defaultPushWorkers,
		PushRPS:                  defaultPushRPS,
		SettleDelay:              defaultSettleDelay,
		MinerVerificationBackoff: defaultMinerVerificationBackoff,
		MaxCandidateFailures:     defaultMaxCandidateFailures,
		AttemptDelay:             defaultAttemptDelay,
		ProcessRows:              defaultProcessRows,
		ProcessRowsStep:          defaultProcessRowsStep,
		ParseAttempts:            defaultParseAttempts,
		ParseRetryDelay:          defaultParseRetryDelay,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Account == "":
		return errors.New("synchronizer account is required")
	case c.ChunkSize <= 0:
		return errors.New("chunk size must be positive")
	case c.MaxUploaders <= 0:
		return errors.New("max uploaders must be positive")
	case c.MaxPushRounds <= 0:
		return errors.New("max push rounds must be positive")
	case c.PushWorkers <= 0 || c.PushRPS <= 0:
		return errors.New("push workers and rate must be positive")
	case c.MaxCandidateFailures <= 0:
		return errors.New("max candidate failures must be positive")
	case c.ParseAttempts <= 0:
		return errors.New("parse attempts must be positive")
	}
	return nil
}
