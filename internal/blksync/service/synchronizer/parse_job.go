package synchronizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
	"github.com/goodnatureofminers/btc-synchronizer/internal/clock"
)

const ParseJobName = "block_parse"

// ParseJob advances the destination's parse cursor when a block is waiting
// and the parse lease is free or held by this account.
type ParseJob struct {
	ledger  Ledger
	logger  *zap.Logger
	account string

	processRows uint32
	rowsStep    uint32
	attempts    int
	retryDelay  time.Duration
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time
}

// NewParseJob builds the parse job for cfg.Account.
func NewParseJob(ledger Ledger, cfg Config, logger *zap.Logger) (*ParseJob, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ParseJob{
		ledger:      ledger,
		logger:      logger.With(zap.String("job", ParseJobName), zap.String("account", cfg.Account)),
		account:     cfg.Account,
		processRows: cfg.ProcessRows,
		rowsStep:    cfg.ProcessRowsStep,
		attempts:    cfg.ParseAttempts,
		retryDelay:  cfg.ParseRetryDelay,
		sleep:       clock.SleepWithContext,
		now:         time.Now,
	}, nil
}

func (j *ParseJob) Name() string {
	return ParseJobName
}

// Execute parses the pending block to completion. Each failed attempt
// shrinks the batch of rows requested per call.
func (j *ParseJob) Execute(ctx context.Context) error {
	state, err := j.ledger.ChainState(ctx)
	if err != nil {
		return fmt.Errorf("chain state: %w", err)
	}
	if !state.HasPendingParse() {
		j.logger.Debug("no block waiting to be parsed")
		return nil
	}
	if parser := state.CurrentParser(); parser != j.account && j.now().Before(state.ParsedExpirationTime) {
		j.logger.Debug("parse lease held by another account",
			zap.String("parser", parser),
			zap.Time("expires", state.ParsedExpirationTime))
		return nil
	}

	rows := j.processRows
	for attempt := 1; ; attempt++ {
		err := j.parse(ctx, rows)
		if err == nil {
			j.logger.Info("block parsed",
				zap.Uint64("height", state.ParsingHeight),
				zap.String("hash", state.ParsingHash))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt >= j.attempts {
			return fmt.Errorf("parse block %d after %d attempts: %w", state.ParsingHeight, attempt, err)
		}
		j.logger.Warn("parse attempt failed",
			zap.Int("attempt", attempt),
			zap.Uint32("process_rows", rows),
			zap.Error(err))
		if rows > j.rowsStep {
			rows -= j.rowsStep
		} else {
			rows = 0
		}
		if err := j.sleep(ctx, j.retryDelay); err != nil {
			return err
		}
	}
}

func (j *ParseJob) parse(ctx context.Context, rows uint32) error {
	for {
		status, err := j.ledger.ProcessBlock(ctx, rows)
		if err != nil {
			return err
		}
		if status != model.ParseStatusParsing {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
