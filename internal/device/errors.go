package device

import (
	"fmt"

	"github.com/nerrad567/telemetry-core/internal/auth"
)

// Domain errors for the device package. Each wraps an auth error kind so
// callers can classify with errors.Is or auth.KindOf:
//
//	if errors.Is(err, auth.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = fmt.Errorf("device %w", auth.ErrNotFound)

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = fmt.Errorf("%w: device name", auth.ErrInvalidInput)

	// ErrInvalidLocation is returned when a location is empty or too long.
	ErrInvalidLocation = fmt.Errorf("%w: device location", auth.ErrInvalidInput)

	// ErrOwnerRequired is returned when a reassignment names no owner.
	ErrOwnerRequired = fmt.Errorf("%w: owner username is required", auth.ErrInvalidInput)

	// ErrUnknownOwner is returned when a reassignment names a missing user.
	ErrUnknownOwner = fmt.Errorf("%w: owner does not exist", auth.ErrInvalidInput)

	// ErrOwnershipChanged is returned when the device changed hands between
	// the permission check and the write.
	ErrOwnershipChanged = fmt.Errorf("%w: device owner changed", auth.ErrForbidden)
)
