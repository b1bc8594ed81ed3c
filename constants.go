package ddtengine

import "github.com/jtronge/mpicd-ddtengine/internal/registry"

// Handle identifies a registered datatype descriptor.
type Handle = registry.Handle

// Re-exported reserved handles (spec.md section 3).
const (
	RawBytesHandle  = registry.RawBytesHandle
	FirstUserHandle = registry.FirstUserHandle
)
