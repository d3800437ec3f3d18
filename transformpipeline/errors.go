package transformpipeline

import (
	"fmt"

	"github.com/drivescene/scapes/classes"
	"github.com/drivescene/scapes/rimage/transform"
)

// ConfigurationError reports options that cannot produce a valid output, such as a crop larger
// than the canvas or modalities of different sizes.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid transform configuration: " + e.Reason
}

// NewConfigurationError returns a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

type (
	// UnmappedLabelError is returned when a label map holds a value outside the raw ID domain.
	UnmappedLabelError = classes.UnmappedLabelError
	// MalformedCameraFileError is returned when the camera document lacks a required field.
	MalformedCameraFileError = transform.MalformedCameraFileError
)
