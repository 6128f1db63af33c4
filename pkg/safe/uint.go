// Package safe provides numeric conversions that reject out-of-range values.
package safe

import (
	"fmt"
	"math"
)

// Integer is the set of integer kinds accepted by the conversions.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

func split[T Integer](v T) (neg bool, magnitude uint64) {
	switch value := any(v).(type) {
	case int:
		return value < 0, uint64(value)
	case int32:
		return value < 0, uint64(value)
	case int64:
		return value < 0, uint64(value)
	case uint:
		return false, uint64(value)
	case uint32:
		return false, uint64(value)
	case uint64:
		return false, value
	}
	if v < 0 {
		return true, 0
	}
	return false, uint64(v)
}

// Uint32 converts v to uint32.
func Uint32[T Integer](v T) (uint32, error) {
	neg, m := split(v)
	if neg || m > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", v)
	}
	return uint32(m), nil
}

// Uint64 converts v to uint64, rejecting negatives.
func Uint64[T Integer](v T) (uint64, error) {
	neg, m := split(v)
	if neg {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return m, nil
}

// Int64 converts a non-negative v to int64, as used for RPC block heights.
func Int64[T Integer](v T) (int64, error) {
	neg, m := split(v)
	if neg || m > math.MaxInt64 {
		return 0, fmt.Errorf("value %d out of int64 range", v)
	}
	return int64(m), nil
}
