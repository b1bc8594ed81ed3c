// Package registry implements the process-wide Type Registry: allocation of
// datatype handles, storage of immutable descriptors, and validation of
// registration parameters (spec.md section 4.1).
package registry

import (
	"fmt"
	"sync"

	"github.com/jtronge/mpicd-ddtengine/internal/telemetry"
)

// ErrInvalidArgument is returned when a registration violates the
// per-strategy callback constraints.
type ErrInvalidArgument struct {
	Reason string
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

// ErrUnknownHandle is returned by Lookup/Deregister for an unregistered
// or already-released handle.
type ErrUnknownHandle struct {
	Handle Handle
}

func (e *ErrUnknownHandle) Error() string {
	return fmt.Sprintf("unknown datatype handle %s", e.Handle)
}

// ErrInUse is returned by Deregister when a transfer still references the
// descriptor.
type ErrInUse struct {
	Handle Handle
}

func (e *ErrInUse) Error() string {
	return fmt.Sprintf("datatype %s still in use", e.Handle)
}

// ErrUnsupported is returned when a registration asks for a combination of
// callbacks no strategy can service, as opposed to a malformed subset of a
// single strategy's callbacks (spec.md section 4.1's table forbids mixing
// StreamCallbacks and MemoryRegions callbacks in one registration).
type ErrUnsupported struct {
	Reason string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported: %s", e.Reason)
}

// Registry is the process-wide table of registered datatype descriptors.
// Registration, lookup, and release are serialized behind a single
// reader-writer lock (spec.md section 5); descriptors themselves are
// immutable post-registration and may be read without synchronization
// once obtained from Lookup.
type Registry struct {
	mu          sync.RWMutex
	next        Handle
	descriptors map[Handle]*Descriptor
	refcounts   map[Handle]int
	logger      *telemetry.Logger
}

// New creates an empty registry with the raw-bytes primitive pre-seeded at
// handle 0 and the next free handle starting past the reserved range.
func New(logger *telemetry.Logger) *Registry {
	if logger == nil {
		logger = telemetry.Default()
	}
	r := &Registry{
		next:        FirstUserHandle,
		descriptors: make(map[Handle]*Descriptor),
		refcounts:   make(map[Handle]int),
		logger:      logger.With("registry"),
	}
	r.descriptors[RawBytesHandle] = &Descriptor{
		Handle:    RawBytesHandle,
		Strategy:  Primitive,
		ElemWidth: 1,
	}
	return r
}

// Register validates and stores a StreamCallbacks or MemoryRegions
// descriptor, returning its handle. Strategy is inferred from which
// callbacks are populated, per the table in spec.md section 4.1.
func (r *Registry) Register(cb CallbackSet, context any, inOrder bool) (Handle, error) {
	strategy, err := inferStrategy(cb)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.next
	r.next++
	r.descriptors[h] = &Descriptor{
		Handle:    h,
		Strategy:  strategy,
		Callbacks: cb,
		Context:   context,
		InOrder:   inOrder,
	}
	r.logger.Debug("registered datatype", "handle", h, "strategy", strategy, "in_order", inOrder)
	return h, nil
}

// RegisterPrimitive stores a fixed-width byte-run descriptor and returns its
// handle. elemWidth must be at least 1.
func (r *Registry) RegisterPrimitive(elemWidth uint64, context any) (Handle, error) {
	if elemWidth == 0 {
		return 0, &ErrInvalidArgument{Reason: "primitive element width must be non-zero"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.next
	r.next++
	r.descriptors[h] = &Descriptor{
		Handle:    h,
		Strategy:  Primitive,
		Context:   context,
		ElemWidth: elemWidth,
	}
	r.logger.Debug("registered primitive", "handle", h, "width", elemWidth)
	return h, nil
}

// Lookup returns the descriptor for h. The returned pointer is a borrowed
// reference valid until the descriptor is deregistered; descriptors outlive
// every transfer that references them (invariant I6) because Deregister
// refuses to remove a descriptor with outstanding references.
func (r *Registry) Lookup(h Handle) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[h]
	if !ok {
		return nil, &ErrUnknownHandle{Handle: h}
	}
	return d, nil
}

// Acquire records that a transfer now references h. Must be paired with a
// matching Release when the transfer reaches a terminal state.
func (r *Registry) Acquire(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.descriptors[h]; !ok {
		return &ErrUnknownHandle{Handle: h}
	}
	r.refcounts[h]++
	return nil
}

// Release drops one reference recorded by Acquire.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.refcounts[h] > 0 {
		r.refcounts[h]--
		if r.refcounts[h] == 0 {
			delete(r.refcounts, h)
		}
	}
}

// Deregister removes h from the registry. Fails with ErrInUse if any
// transfer still references the descriptor (via Acquire/Release).
func (r *Registry) Deregister(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.descriptors[h]; !ok {
		return &ErrUnknownHandle{Handle: h}
	}
	if r.refcounts[h] > 0 {
		return &ErrInUse{Handle: h}
	}
	delete(r.descriptors, h)
	r.logger.Debug("deregistered datatype", "handle", h)
	return nil
}

// inferStrategy validates the callback set against the constraint table in
// spec.md section 4.1 and returns the strategy it selects.
func inferStrategy(cb CallbackSet) (Strategy, error) {
	isStream := cb.Query != nil || cb.PackStep != nil || cb.UnpackStep != nil
	isRegion := cb.RegionCount != nil || cb.RegionList != nil

	switch {
	case isStream && isRegion:
		return 0, &ErrUnsupported{Reason: "cannot mix StreamCallbacks and MemoryRegions callbacks in one registration"}
	case isStream:
		if cb.Query == nil || cb.PackStep == nil || cb.UnpackStep == nil {
			return 0, &ErrInvalidArgument{Reason: "StreamCallbacks requires query, pack-step and unpack-step"}
		}
		return StreamCallbacks, nil
	case isRegion:
		if cb.RegionCount == nil || cb.RegionList == nil {
			return 0, &ErrInvalidArgument{Reason: "MemoryRegions requires region-count and region-list"}
		}
		return MemoryRegions, nil
	default:
		return 0, &ErrInvalidArgument{Reason: "no strategy callbacks supplied; use RegisterPrimitive for Primitive types"}
	}
}
