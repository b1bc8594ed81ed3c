package registry

import "fmt"

// Handle identifies a registered datatype descriptor. Handle 0 is reserved
// for the engine's raw-bytes primitive; handles 1-64 are reserved for
// built-in primitives registered ahead of user types.
type Handle uint64

// RawBytesHandle is the reserved handle for the byte-passthrough primitive.
const RawBytesHandle Handle = 0

// FirstUserHandle is the first handle available for user registrations.
const FirstUserHandle Handle = 65

func (h Handle) String() string {
	return fmt.Sprintf("handle(%d)", uint64(h))
}

// Strategy selects which pack/unpack driver services a descriptor.
type Strategy int

const (
	// StreamCallbacks drives the transfer through user pack-step/unpack-step
	// callbacks, one fragment at a time.
	StreamCallbacks Strategy = iota
	// MemoryRegions exposes a list of (base, length, element type) triples
	// describing scattered memory that the transport may move zero-copy.
	MemoryRegions
	// Primitive is a fixed-width byte run serviced by memcpy.
	Primitive
)

func (s Strategy) String() string {
	switch s {
	case StreamCallbacks:
		return "StreamCallbacks"
	case MemoryRegions:
		return "MemoryRegions"
	case Primitive:
		return "Primitive"
	default:
		return "Strategy(?)"
	}
}

// Region describes one scattered memory span of a MemoryRegions transfer.
// Data is a borrowed slice into the user's buffer; Type names the element
// type stored in that span (RawBytesHandle or a previously registered
// Primitive).
type Region struct {
	Data []byte
	Type Handle
}

// StateInitFunc allocates per-transfer user state. buf/count are the same
// values the transfer was created with; count is in elements of the
// user-facing type, never bytes.
type StateInitFunc func(context any, buf []byte, count uint64) (state any, err error)

// StateFreeFunc releases state produced by StateInitFunc. Called exactly
// once per transfer, on the first terminal transition.
type StateFreeFunc func(state any)

// QueryFunc reports the total packed size of a transfer, in bytes.
type QueryFunc func(state any, buf []byte, count uint64) (packedSize uint64, err error)

// PackStepFunc fills as much of dst as the callback has ready, returning the
// number of bytes written. offset is the cursor this call must continue
// from; it is strictly ascending across calls only when the descriptor's
// InOrder flag is set.
type PackStepFunc func(state any, buf []byte, count uint64, offset uint64, dst []byte) (used uint64, err error)

// UnpackStepFunc consumes all of src, which the engine guarantees is the
// transport's full incoming fragment.
type UnpackStepFunc func(state any, buf []byte, count uint64, offset uint64, src []byte) error

// RegionCountFunc returns the number of regions a MemoryRegions transfer
// will expose. Must return the same value on every call for one transfer.
type RegionCountFunc func(state any, buf []byte, count uint64) (n int, err error)

// RegionListFunc fills the region plan. Must return exactly n regions.
type RegionListFunc func(state any, buf []byte, count uint64, n int) ([]Region, error)

// CallbackSet is the callback table supplied at registration. Any subset
// appropriate to the inferred strategy may be nil; see Register.
type CallbackSet struct {
	StateInit   StateInitFunc
	StateFree   StateFreeFunc
	Query       QueryFunc
	PackStep    PackStepFunc
	UnpackStep  UnpackStepFunc
	RegionCount RegionCountFunc
	RegionList  RegionListFunc
}

// Descriptor is the immutable, post-registration record for one datatype.
type Descriptor struct {
	Handle    Handle
	Strategy  Strategy
	Callbacks CallbackSet
	Context   any
	InOrder   bool
	ElemWidth uint64 // valid only for Primitive
}
