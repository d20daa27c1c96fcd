package dimensionspace

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("invalid dimension configuration")

// ErrPointNotFound is returned when a point is not part of the variation graph.
var ErrPointNotFound = errors.New("dimension space point not found")

// ConfigurationError reports a dimension configuration that cannot form a
// valid variation graph. No graph is returned alongside it.
type ConfigurationError struct {
	Dimension string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: dimension %q: %s", ErrConfiguration, e.Dimension, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(dimension, format string, args ...any) error {
	return &ConfigurationError{Dimension: dimension, Reason: fmt.Sprintf(format, args...)}
}
