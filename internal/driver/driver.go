// Package driver implements the per-strategy pack/unpack state machines that
// advance one user transfer a fragment at a time (spec.md section 4.2).
//
// A Driver is stateless across transfers; all mutable per-transfer data
// lives in a State value owned by the caller (the Transfer Controller).
// This mirrors how internal/queue/runner.go in the teacher repo keeps one
// TagState per in-flight tag rather than per Runner.
package driver

import (
	"errors"
	"fmt"

	"github.com/jtronge/mpicd-ddtengine/internal/registry"
)

// ErrStalledCallback is returned when a user pack-step reports zero bytes
// used before the transfer is actually complete (spec.md section 4.2.1).
var ErrStalledCallback = errors.New("pack-step produced zero bytes before completion")

// ErrInternal marks a failure that reflects a bug in the engine's own
// bookkeeping (an invariant the controller or a driver should have
// prevented from being reached) rather than bad user input, a misbehaving
// callback, or a transport problem (spec.md section 6's Internal code).
var ErrInternal = errors.New("driver: internal invariant violation")

// Direction distinguishes a pack (send) transfer from an unpack (receive)
// transfer.
type Direction int

const (
	Pack Direction = iota
	Unpack
)

func (d Direction) String() string {
	if d == Unpack {
		return "unpack"
	}
	return "pack"
}

// Kind enumerates the shapes a Step can report, mirroring spec.md's
// StepResult: Consumed(n), Done, NeedRegion(idx), or Fail(error) — Fail is
// reported via the ordinary Go error return instead of a variant tag.
type Kind int

const (
	// Consumed means the driver produced or consumed N bytes this step.
	Consumed Kind = iota
	// Done means there is nothing left to do; the caller must mark the
	// transfer complete.
	Done
	// NeedRegion means the transport must be handed the region at
	// RegionIndex directly instead of copying through a slot.
	NeedRegion
)

// Result is the outcome of a single driver Step.
type Result struct {
	Kind Kind
	// N is the byte count for Consumed, and the region's length for
	// NeedRegion (both represent forward progress of the cursor).
	N uint64
	// Region is populated only for NeedRegion.
	Region registry.Region
	// RegionIndex is populated only for NeedRegion.
	RegionIndex int
}

// State holds the mutable data one transfer contributes to its driver. The
// Transfer Controller owns exactly one State per transfer and never shares
// it across goroutines (spec.md section 5).
type State struct {
	Descriptor *registry.Descriptor
	Direction  Direction

	// Buf/Count describe the user's buffer: a borrowed slice and the
	// element count it was declared with. Count is always in elements of
	// the user-facing type, never bytes (spec.md section 9, Open Question 2).
	Buf   []byte
	Count uint64

	// UserState is the opaque value produced by state-init, or the raw
	// Context if no state-init callback was supplied (spec.md section 4.1).
	UserState        any
	UserStateReady   bool
	StateFreeInvoked bool

	// Cursor/Total track bytes produced (pack) or consumed (unpack) and
	// the declared total packed size. TotalKnown becomes true once Total
	// is computed, which for StreamCallbacks happens on the first Step and
	// for MemoryRegions happens once the region plan is built.
	Cursor     uint64
	Total      uint64
	TotalKnown bool

	// Regions backs the MemoryRegions driver's memoized plan.
	Regions    []registry.Region
	NextRegion int

	// ValidateRegionType is consulted by the MemoryRegions driver for every
	// region it plans, since the driver package itself has no registry
	// reference (spec.md section 4.2.2: each region's type must be the
	// raw-bytes handle or a previously-registered Primitive). Left nil,
	// no type validation is performed.
	ValidateRegionType func(registry.Handle) error
}

// Driver advances a State by one fragment. Implementations must never block
// and must perform at most one user callback invocation per Step call; Init
// may invoke several (state-init, query, region-count, region-list).
type Driver interface {
	// Init performs first-step setup: state-init and (for MemoryRegions)
	// region planning. It is called exactly once, before the first Step.
	Init(s *State) error
	// Step advances the transfer using the given slot. For Pack, dst is
	// the destination fragment to fill; for Unpack, dst is the source
	// fragment to consume. The same parameter name is used because the
	// two directions never execute in the same call.
	Step(s *State, slot []byte) (Result, error)
}

// For selects the driver implementation matching a descriptor's strategy.
func For(strategy registry.Strategy) (Driver, error) {
	switch strategy {
	case registry.StreamCallbacks:
		return callbackDriver{}, nil
	case registry.MemoryRegions:
		return regionDriver{}, nil
	case registry.Primitive:
		return primitiveDriver{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %v", ErrInternal, strategy)
	}
}
