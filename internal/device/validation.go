package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength     = 100
	maxLocationLength = 200
)

// ValidateName checks that a device name is present and bounded.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateLocation checks that a location is present and bounded.
func ValidateLocation(location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidLocation)
	}
	if len(location) > maxLocationLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidLocation, maxLocationLength)
	}
	return nil
}

// requireField dereferences an optional update field, treating nil and
// blank alike.
func requireField(v *string, validate func(string) error) (string, error) {
	if v == nil {
		return "", validate("")
	}
	if err := validate(*v); err != nil {
		return "", err
	}
	return strings.TrimSpace(*v), nil
}

// GenerateID returns a new device ID.
func GenerateID() string {
	return "dev-" + uuid.NewString()
}
