package transport

import (
	"errors"
	"sync"

	"github.com/jtronge/mpicd-ddtengine/internal/memregion"
)

// DefaultSlotSize is the capacity NextSlot hands out when the caller does
// not request a specific size.
const DefaultSlotSize = 4096

type regionPayload struct {
	data []byte
}

// Loopback is an in-process reference Transport: Send appends to an
// internal FIFO byte queue and Recv drains it, simulating wire transfer
// without a network. It is the one concrete Transport the test suite and
// benchmark harness need to drive a Controller end to end (spec.md section
// 1 leaves the real transport external to this engine).
//
// Grounded on backend/mem.go's sharded in-memory store in the teacher
// repo, repurposed from a random-access ReadAt/WriteAt device into a FIFO
// byte queue plus a side-channel region queue for NeedRegion transfers.
type Loopback struct {
	slotSize int
	regr     *memregion.Registrar

	mu      sync.Mutex
	queue   []byte
	regions []regionPayload
}

// NewLoopback creates a Loopback transport that hands out slots of
// slotSize bytes (DefaultSlotSize if slotSize <= 0).
func NewLoopback(slotSize int) *Loopback {
	if slotSize <= 0 {
		slotSize = DefaultSlotSize
	}
	return &Loopback{
		slotSize: slotSize,
		regr:     memregion.NewRegistrar(),
	}
}

// NextSlot hands out a fresh, fixed-size scratch buffer.
func (l *Loopback) NextSlot() Slot {
	return Slot{Buf: make([]byte, l.slotSize)}
}

// Send appends the first n bytes of slot.Buf to the queue.
func (l *Loopback) Send(slot Slot, n int) (int, error) {
	if n > len(slot.Buf) {
		return 0, errors.New("transport: send length exceeds slot capacity")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, slot.Buf[:n]...)
	return n, nil
}

// Recv drains up to len(slot.Buf) queued bytes into slot.Buf.
func (l *Loopback) Recv(slot Slot) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := copy(slot.Buf, l.queue)
	l.queue = l.queue[n:]
	return n, nil
}

// RegisterRegion pins base via the shared memregion.Registrar.
func (l *Loopback) RegisterRegion(base []byte) (RegionHandle, error) {
	return l.regr.Register(base)
}

// UnregisterRegion releases a handle from RegisterRegion.
func (l *Loopback) UnregisterRegion(h RegionHandle) error {
	return l.regr.Unregister(h)
}

// SendRegion copies region into the loopback's region queue, simulating a
// zero-copy transmit by skipping the ordinary Send byte queue entirely.
func (l *Loopback) SendRegion(h RegionHandle, region []byte) error {
	cp := make([]byte, len(region))
	copy(cp, region)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.regions = append(l.regions, regionPayload{data: cp})
	return nil
}

// RecvRegion copies the next queued region payload into region. Returns an
// error if no payload is queued or the sizes disagree.
func (l *Loopback) RecvRegion(h RegionHandle, region []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.regions) == 0 {
		return errors.New("transport: no region payload queued")
	}
	payload := l.regions[0]
	l.regions = l.regions[1:]
	if len(payload.data) != len(region) {
		return errors.New("transport: region size mismatch on receive")
	}
	copy(region, payload.data)
	return nil
}

// Close is a no-op; Loopback owns no OS resources beyond its buffers.
func (l *Loopback) Close() error {
	return nil
}

var _ Transport = (*Loopback)(nil)
