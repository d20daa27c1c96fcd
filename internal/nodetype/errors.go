package nodetype

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel Errors
// ============================================================================

var (
	// ErrNodeTypeNotFound is returned when a node type name is not registered.
	ErrNodeTypeNotFound = errors.New("node type not found")

	// ErrConfiguration marks registry-level configuration failures such as
	// super type cycles.
	ErrConfiguration = errors.New("node type configuration invalid")

	// ErrNodeConfiguration marks a configuration failure attributable to a
	// single node type.
	ErrNodeConfiguration = errors.New("node configuration invalid")

	// ErrNodeTypeIsFinal is returned when a final type is used as super type.
	ErrNodeTypeIsFinal = errors.New("node type is final")
)

// ============================================================================
// Typed Errors
// ============================================================================

// ConfigurationError describes an invalid registry configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "node type configuration: " + e.Reason
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NodeConfigurationError describes an invalid configuration of one node type.
// Cause carries the underlying error, if any.
type NodeConfigurationError struct {
	NodeType Name
	Reason   string
	Cause    error
}

func (e *NodeConfigurationError) Error() string {
	msg := fmt.Sprintf("node type %q: %s", e.NodeType, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches ErrNodeConfiguration.
func (e *NodeConfigurationError) Is(target error) bool {
	return target == ErrNodeConfiguration
}

func (e *NodeConfigurationError) Unwrap() error {
	return e.Cause
}

// NodeTypeIsFinalError names the final type that was inherited from.
type NodeTypeIsFinalError struct {
	SuperType Name
}

func (e *NodeTypeIsFinalError) Error() string {
	return fmt.Sprintf("super type %q is final", e.SuperType)
}

// Is matches ErrNodeTypeIsFinal.
func (e *NodeTypeIsFinalError) Is(target error) bool {
	return target == ErrNodeTypeIsFinal
}

func nodeConfigErr(name Name, cause error, format string, args ...any) error {
	return &NodeConfigurationError{NodeType: name, Reason: fmt.Sprintf(format, args...), Cause: cause}
}
