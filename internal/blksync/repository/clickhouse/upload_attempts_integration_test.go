package clickhouse

import (
	"time"

	"github.com/golang/mock/gomock"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
)

func newAttempt(account string, height uint64, outcome model.UploadOutcome, started time.Time) model.UploadAttempt {
	return model.UploadAttempt{
		Synchronizer: account,
		Height:       height,
		Hash:         "0000000000000000000320283a032748cef8227873ff4872689bf23f1cda83a5",
		BlockSize:    1_000_000,
		NumChunks:    8,
		PushRounds:   1,
		Outcome:      outcome,
		StartedAt:    started,
		Duration:     2 * time.Second,
	}
}

func (s *RepositorySuite) TestInsertUploadAttempts() {
	now := time.Now().UTC().Truncate(time.Millisecond)
	attempts := []model.UploadAttempt{
		newAttempt("miner1", 840000, model.UploadOutcomeVerified, now),
		newAttempt("miner1", 840001, model.UploadOutcomeFailed, now.Add(time.Second)),
	}
	attempts[1].Error = "chunk upload retries exhausted"

	s.metrics.EXPECT().Observe("insert_upload_attempts", gomock.Nil(), gomock.Any())

	s.Require().NoError(s.repo.InsertUploadAttempts(s.testCtx, attempts))
	s.Equal(uint64(len(attempts)), s.countRows("blksync_upload_attempts"))
}

func (s *RepositorySuite) TestMaxVerifiedHeight() {
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.metrics.EXPECT().Observe("insert_upload_attempts", gomock.Nil(), gomock.Any())
	s.metrics.EXPECT().Observe("max_verified_height", gomock.Nil(), gomock.Any()).Times(3)

	s.Require().NoError(s.repo.InsertUploadAttempts(s.testCtx, []model.UploadAttempt{
		newAttempt("miner1", 840000, model.UploadOutcomeVerified, now),
		newAttempt("miner1", 840002, model.UploadOutcomeVerified, now),
		newAttempt("miner1", 840003, model.UploadOutcomeFailed, now),
		newAttempt("miner2", 840005, model.UploadOutcomeVerified, now),
		newAttempt("miner3", 840004, model.UploadOutcomeFailed, now),
	}))

	height, ok, err := s.repo.MaxVerifiedHeight(s.testCtx, "miner1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(uint64(840002), height)

	height, ok, err = s.repo.MaxVerifiedHeight(s.testCtx, "miner2")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(uint64(840005), height)

	_, ok, err = s.repo.MaxVerifiedHeight(s.testCtx, "miner3")
	s.Require().NoError(err)
	s.False(ok)
}
