package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/btc-synchronizer/internal/blksync/model"
)

const maxVerifiedHeightQuery = `
SELECT max(height) AS max_height, count() AS verified
FROM blksync_upload_attempts
WHERE synchronizer = ? AND outcome = ?`

// MaxVerifiedHeight returns the highest block this synchronizer got verified.
// ok is false when the journal has no verified attempt for it.
func (r *Repository) MaxVerifiedHeight(ctx context.Context, synchronizer string) (height uint64, ok bool, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("max_verified_height", err, start)
	}()

	rows, err := r.conn.Query(ctx, maxVerifiedHeightQuery, synchronizer, string(model.UploadOutcomeVerified))
	if err != nil {
		return 0, false, fmt.Errorf("query max verified height: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		return 0, false, fmt.Errorf("max verified height not found")
	}
	var verified uint64
	if err = rows.Scan(&height, &verified); err != nil {
		return 0, false, fmt.Errorf("scan max verified height: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, false, fmt.Errorf("iterate max verified height: %w", err)
	}

	return height, verified > 0, nil
}
