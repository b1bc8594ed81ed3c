package ddtengine

import "sync"

// RecordingCallbacks wraps a StreamCallbacks CallbackSet and counts how
// many times each callback was invoked, for asserting call patterns in
// tests without reimplementing a datatype each time.
//
// Grounded on testing.go's MockBackend in the teacher repo: a
// call-count-tracking wrapper satisfying the same contract as the real
// thing, with Reset/CallCounts helpers for table-driven assertions.
type RecordingCallbacks struct {
	mu sync.Mutex

	stateInitCalls   int
	stateFreeCalls   int
	queryCalls       int
	packStepCalls    int
	unpackStepCalls  int
	regionCountCalls int
	regionListCalls  int

	inner CallbackSet
}

// NewRecordingCallbacks wraps inner, counting calls to whichever of its
// fields are non-nil and forwarding to them.
func NewRecordingCallbacks(inner CallbackSet) *RecordingCallbacks {
	return &RecordingCallbacks{inner: inner}
}

// Set returns a CallbackSet that routes through this recorder's counters,
// suitable for passing straight to Engine.Register.
func (r *RecordingCallbacks) Set() CallbackSet {
	cb := CallbackSet{}
	if r.inner.StateInit != nil {
		cb.StateInit = func(ctx any, buf []byte, count uint64) (any, error) {
			r.mu.Lock()
			r.stateInitCalls++
			r.mu.Unlock()
			return r.inner.StateInit(ctx, buf, count)
		}
	}
	if r.inner.StateFree != nil {
		cb.StateFree = func(state any) {
			r.mu.Lock()
			r.stateFreeCalls++
			r.mu.Unlock()
			r.inner.StateFree(state)
		}
	}
	if r.inner.Query != nil {
		cb.Query = func(state any, buf []byte, count uint64) (uint64, error) {
			r.mu.Lock()
			r.queryCalls++
			r.mu.Unlock()
			return r.inner.Query(state, buf, count)
		}
	}
	if r.inner.PackStep != nil {
		cb.PackStep = func(state any, buf []byte, count uint64, offset uint64, dst []byte) (uint64, error) {
			r.mu.Lock()
			r.packStepCalls++
			r.mu.Unlock()
			return r.inner.PackStep(state, buf, count, offset, dst)
		}
	}
	if r.inner.UnpackStep != nil {
		cb.UnpackStep = func(state any, buf []byte, count uint64, offset uint64, src []byte) error {
			r.mu.Lock()
			r.unpackStepCalls++
			r.mu.Unlock()
			return r.inner.UnpackStep(state, buf, count, offset, src)
		}
	}
	if r.inner.RegionCount != nil {
		cb.RegionCount = func(state any, buf []byte, count uint64) (int, error) {
			r.mu.Lock()
			r.regionCountCalls++
			r.mu.Unlock()
			return r.inner.RegionCount(state, buf, count)
		}
	}
	if r.inner.RegionList != nil {
		cb.RegionList = func(state any, buf []byte, count uint64, n int) ([]Region, error) {
			r.mu.Lock()
			r.regionListCalls++
			r.mu.Unlock()
			return r.inner.RegionList(state, buf, count, n)
		}
	}
	return cb
}

// CallCounts returns the number of times each callback has been invoked.
func (r *RecordingCallbacks) CallCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int{
		"state_init":   r.stateInitCalls,
		"state_free":   r.stateFreeCalls,
		"query":        r.queryCalls,
		"pack_step":    r.packStepCalls,
		"unpack_step":  r.unpackStepCalls,
		"region_count": r.regionCountCalls,
		"region_list":  r.regionListCalls,
	}
}

// Reset zeroes every call counter.
func (r *RecordingCallbacks) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateInitCalls = 0
	r.stateFreeCalls = 0
	r.queryCalls = 0
	r.packStepCalls = 0
	r.unpackStepCalls = 0
	r.regionCountCalls = 0
	r.regionListCalls = 0
}

// FlatBuffer is a minimal Primitive-like stand-in datatype for tests that
// just need a contiguous byte run without registering a real descriptor:
// NewFlatBufferCallbacks builds a StreamCallbacks CallbackSet that treats
// the whole buffer as one opaque blob of Count bytes.
func NewFlatBufferCallbacks() CallbackSet {
	return CallbackSet{
		Query: func(_ any, buf []byte, count uint64) (uint64, error) {
			return count, nil
		},
		PackStep: func(_ any, buf []byte, count uint64, offset uint64, dst []byte) (uint64, error) {
			remaining := count - offset
			n := uint64(len(dst))
			if n > remaining {
				n = remaining
			}
			copy(dst[:n], buf[offset:offset+n])
			return n, nil
		},
		UnpackStep: func(_ any, buf []byte, count uint64, offset uint64, src []byte) error {
			copy(buf[offset:offset+uint64(len(src))], src)
			return nil
		},
	}
}
