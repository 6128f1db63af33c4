package model

import "time"

// UploadOutcome classifies a finished candidate attempt.
type UploadOutcome string

const (
	UploadOutcomeVerified UploadOutcome = "verified"
	UploadOutcomeFailed   UploadOutcome = "failed"
)

// UploadAttempt is a journal record of a single candidate upload.
type UploadAttempt struct {
	Synchronizer string
	Height       uint64
	Hash         string
	BlockSize    uint64
	NumChunks    uint32
	PushRounds   uint32
	Outcome      UploadOutcome
	Error        string
	StartedAt    time.Time
	Duration     time.Duration
}
