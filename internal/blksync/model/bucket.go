package model

// BucketStatus mirrors the status codes of the blksync contract.
type BucketStatus uint8

const (
	BucketStatusUnknown BucketStatus = iota
	BucketStatusUploading
	BucketStatusUploadComplete
	BucketStatusVerifyMerkle
	BucketStatusVerifyParentHash
	BucketStatusWaitingMinerVerification
	BucketStatusVerifyFail
	BucketStatusVerifyPass
)

var bucketStatusNames = map[BucketStatus]string{
	BucketStatusUploading:                "uploading",
	BucketStatusUploadComplete:           "upload_complete",
	BucketStatusVerifyMerkle:             "verify_merkle",
	BucketStatusVerifyParentHash:         "verify_parent_hash",
	BucketStatusWaitingMinerVerification: "waiting_miner_verification",
	BucketStatusVerifyFail:               "verify_fail",
	BucketStatusVerifyPass:               "verify_pass",
}

func (s BucketStatus) String() string {
	if name, ok := bucketStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseBucketStatus maps a contract status name to its code.
func ParseBucketStatus(name string) BucketStatus {
	for status, n := range bucketStatusNames {
		if n == name {
			return status
		}
	}
	return BucketStatusUnknown
}

// InVerification reports whether the bucket is inside the multi-step verify protocol.
func (s BucketStatus) InVerification() bool {
	switch s {
	case BucketStatusVerifyMerkle, BucketStatusVerifyParentHash, BucketStatusWaitingMinerVerification:
		return true
	default:
		return false
	}
}

// Resumable reports whether a left-over bucket can still be driven to a verdict.
func (s BucketStatus) Resumable() bool {
	return s == BucketStatusUploadComplete || s.InVerification()
}

// BlockBucket is the destination-side container for one block upload.
type BlockBucket struct {
	Synchronizer   string
	Height         uint64
	Hash           string
	Status         BucketStatus
	BlockSize      uint64
	NumChunks      uint32
	ChunksReceived uint32
}

// Chunk is a fixed-size slice of a raw block.
type Chunk struct {
	ID   uint32
	Data []byte
}

// SplitChunks cuts payload into consecutive chunks of at most size bytes.
func SplitChunks(payload []byte, size int) []Chunk {
	if size <= 0 || len(payload) == 0 {
		return nil
	}
	chunks := make([]Chunk, 0, (len(payload)+size-1)/size)
	for offset, id := 0, uint32(0); offset < len(payload); offset, id = offset+size, id+1 {
		end := min(offset+size, len(payload))
		chunks = append(chunks, Chunk{ID: id, Data: payload[offset:end]})
	}
	return chunks
}
