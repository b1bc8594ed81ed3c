package ddtengine

import "github.com/jtronge/mpicd-ddtengine/internal/registry"

// Callback signatures a caller implements to describe its datatype
// (spec.md section 6). Type aliases, not new types, so a caller's own
// function values satisfy these without conversion.
type (
	StateInitFunc   = registry.StateInitFunc
	StateFreeFunc   = registry.StateFreeFunc
	QueryFunc       = registry.QueryFunc
	PackStepFunc    = registry.PackStepFunc
	UnpackStepFunc  = registry.UnpackStepFunc
	RegionCountFunc = registry.RegionCountFunc
	RegionListFunc  = registry.RegionListFunc
)

// CallbackSet groups the callbacks supplied at registration. Register
// infers the strategy (StreamCallbacks or MemoryRegions) from which fields
// are populated; see Engine.Register.
type CallbackSet = registry.CallbackSet

// Region describes one scattered memory span of a MemoryRegions transfer.
type Region = registry.Region
