//go:build !linux

package memregion

import "sync"

// Key identifies a region previously registered with Registrar.
type Key uint64

// Registrar is the non-Linux fallback: it tracks registered regions without
// attempting to pin memory, since mlock is a Linux-specific syscall in
// golang.org/x/sys/unix (mirrors internal/uring/iouring_stub.go's
// build-tag split in the teacher repo).
type Registrar struct {
	mu      sync.Mutex
	next    Key
	tracked map[Key][]byte
}

// NewRegistrar creates an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{tracked: make(map[Key][]byte)}
}

// Register records base without pinning it.
func (r *Registrar) Register(base []byte) (Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	k := r.next
	r.tracked[k] = base
	return k, nil
}

// Unregister drops a previously registered region.
func (r *Registrar) Unregister(k Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tracked, k)
	return nil
}
