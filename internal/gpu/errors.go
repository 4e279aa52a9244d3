package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized indicates use of a resource before construction or after release.
	ErrNotInitialized = errors.New("gpu: not initialized")

	// ErrFeedbackLoop indicates a pass that samples the texture it writes.
	ErrFeedbackLoop = errors.New("gpu: pass samples its own render target")

	// ErrUnknownResource indicates a texture, buffer or program handle the device does not own.
	ErrUnknownResource = errors.New("gpu: unknown resource handle")

	// ErrReleased indicates use of a device after Release.
	ErrReleased = errors.New("gpu: device released")
)

// CapabilityError reports a missing device capability. It is fatal at
// initialization and has no fallback.
type CapabilityError struct {
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("gpu: missing capability %s", e.Capability)
}

// ResourceError reports a program that failed to compile or link.
type ResourceError struct {
	Program string
	Err     error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gpu: program %q: %v", e.Program, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
