//go:build linux

package memregion

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Key identifies a region previously registered with Registrar, standing in
// for the transport's RegionKey (spec.md section 6: "register_region(base,len)
// -> RegionKey").
type Key uint64

// Registrar simulates a NIC's eager memory registration: it pins the pages
// backing a region with mlock so the region plan can be handed to a
// zero-copy-capable transport before any slot is available (spec.md section
// 4.3). Grounded on internal/queue/runner.go's mmapQueues, trading the
// kernel-driver-specific mmap of a ublk char device for the generic
// "pin these bytes" operation any real RDMA/NIC registration needs.
type Registrar struct {
	mu     sync.Mutex
	next   Key
	pinned map[Key][]byte
}

// NewRegistrar creates an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{pinned: make(map[Key][]byte)}
}

// Register pins base in memory and returns a key the transport can later
// use to address it directly. Empty regions are accepted and return a key
// with no pinned pages.
func (r *Registrar) Register(base []byte) (Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(base) > 0 {
		if err := unix.Mlock(base); err != nil {
			return 0, fmt.Errorf("memregion: mlock failed: %w", err)
		}
	}
	r.next++
	k := r.next
	r.pinned[k] = base
	return k, nil
}

// Unregister unpins a previously registered region. It is safe to call on
// an already-unregistered or unknown key (matches the finalizer's
// "cancel any outstanding region registration" being unconditional,
// spec.md section 7).
func (r *Registrar) Unregister(k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base, ok := r.pinned[k]
	if !ok {
		return nil
	}
	delete(r.pinned, k)
	if len(base) > 0 {
		return unix.Munlock(base)
	}
	return nil
}
