package synchronizer

import "errors"

var (
	// ErrNothingToUpload means the destination chain is level with the source.
	ErrNothingToUpload = errors.New("nothing to upload")
	// ErrUnresolvable means no candidate with an accepted parent could be found.
	ErrUnresolvable = errors.New("upload position unresolvable")

	ErrNotWhitelisted = errors.New("account is not a registered synchronizer")
	ErrNoFreeSlot     = errors.New("no free upload slot")
	ErrBucketExists   = errors.New("bucket already exists")

	ErrChunksExhausted  = errors.New("chunk upload retries exhausted")
	ErrUploadIncomplete = errors.New("bucket not complete after upload")
	ErrVerifyFailed     = errors.New("block verification failed")

	ErrCandidateBudgetExhausted = errors.New("candidate attempt budget exhausted")
)

// idle reports whether err is a normal "no work" outcome of resolution.
func idle(err error) bool {
	return errors.Is(err, ErrNothingToUpload) || errors.Is(err, ErrUnresolvable)
}

// capacity reports whether err means this account cannot upload right now.
func capacity(err error) bool {
	return errors.Is(err, ErrNoFreeSlot) || errors.Is(err, ErrNotWhitelisted)
}
