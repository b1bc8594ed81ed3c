// Package transport declares the fragment-moving interface a real message
// layer implements against the Transfer Controller (spec.md section 6). The
// actual network/RDMA/shared-memory transport is an external collaborator
// the engine only consumes (spec.md section 1, Non-goals); this package
// holds that seam plus one concrete in-memory implementation for tests and
// the benchmark harness to drive against.
//
// Grounded on internal/uring/interface.go's Ring/Batch/Result split in the
// teacher repo: a small interface for issuing one operation at a time, a
// batch variant for submitting several without a syscall each, and a
// Result carrying the outcome.
package transport

import "github.com/jtronge/mpicd-ddtengine/internal/memregion"

// Slot is a reusable scratch buffer a Transport lends to a Controller's
// Progress call. Cap reports the usable capacity; a caller that wants to
// resize re-requests a slot rather than growing one in place, mirroring how
// a real NIC's fixed-size buffers work.
type Slot struct {
	Buf []byte
}

// Cap returns the slot's usable capacity.
func (s Slot) Cap() int {
	return len(s.Buf)
}

// RegionHandle is a transport-specific handle for a region previously
// registered with RegisterRegion, opaque to callers outside this package.
type RegionHandle = memregion.Key

// Transport moves fragments for one peer connection. Implementations must
// not block indefinitely inside NextSlot/Send/Recv; the cooperative
// progress model (spec.md section 5) requires every call to return quickly
// even if no data is ready yet, by returning a zero-length Slot.
type Transport interface {
	// NextSlot returns scratch space for the next Send or Recv call. A
	// zero-capacity Slot means no buffer is currently available; the
	// caller should retry on a later progress tick rather than block.
	NextSlot() Slot

	// Send enqueues n bytes of slot.Buf for transmission. Returns the
	// number of bytes actually accepted, which may be less than n if the
	// transport's outbound queue is momentarily full.
	Send(slot Slot, n int) (int, error)

	// Recv fills slot.Buf with up to its capacity of newly arrived bytes,
	// returning the number of bytes written. Zero with a nil error means
	// nothing has arrived yet.
	Recv(slot Slot) (int, error)

	// RegisterRegion pins base for zero-copy access, returning a handle
	// NeedRegion results should be matched against SendRegion/RecvRegion.
	// Transports that do not support zero-copy may implement this as a
	// no-op that always succeeds.
	RegisterRegion(base []byte) (RegionHandle, error)

	// UnregisterRegion releases a handle from RegisterRegion.
	UnregisterRegion(h RegionHandle) error

	// SendRegion transmits a previously registered region directly,
	// without a slot copy.
	SendRegion(h RegionHandle, region []byte) error

	// RecvRegion receives directly into a previously registered region.
	RecvRegion(h RegionHandle, region []byte) error

	// Close releases the transport's resources.
	Close() error
}
