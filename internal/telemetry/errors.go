package telemetry

import (
	"fmt"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

var (
	// ErrMissingDevice is returned when no device id is given.
	ErrMissingDevice = fmt.Errorf("%w: device id is required", auth.ErrInvalidInput)

	// ErrInvalidPayload is returned for a missing, null, malformed or
	// oversized payload.
	ErrInvalidPayload = fmt.Errorf("%w: data payload", auth.ErrInvalidInput)

	// ErrInvalidTimestamp is returned for a reading time the store cannot
	// represent (before 1677-09-21 or after 2262-04-11).
	ErrInvalidTimestamp = fmt.Errorf("%w: timestamp out of range", auth.ErrInvalidInput)

	// ErrInvalidRange is returned when From is after To.
	ErrInvalidRange = fmt.Errorf("%w: from is after to", auth.ErrInvalidInput)
)
