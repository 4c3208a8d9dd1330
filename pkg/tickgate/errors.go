package tickgate

import (
	"errors"

	"github.com/yourusername/tickgate/core"
)

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidKey is returned when the rate limit key is invalid or empty
	ErrInvalidKey = errors.New("rate limit key cannot be empty")

	// ErrKeyExtractionFailed is returned when key extraction from a request fails
	ErrKeyExtractionFailed = errors.New("failed to extract key from request")

	// ErrZeroPeriod is returned when a limiter is constructed with a zero
	// refill period
	ErrZeroPeriod = core.ErrZeroPeriod

	// ErrZeroCapacity is returned when a limiter is constructed with a zero
	// token capacity
	ErrZeroCapacity = core.ErrZeroCapacity
)
