package ddtengine

import "testing"

func TestRecordingCallbacksCountsInvocations(t *testing.T) {
	rec := NewRecordingCallbacks(NewFlatBufferCallbacks())
	e := NewEngine(nil)
	h, err := e.Register(rec.Set(), nil, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	src := []byte("abcdefgh")
	xfer, err := e.Pack(h, src, uint64(len(src)))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	for {
		res, err := xfer.Progress(make([]byte, 3))
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if res.Kind == Done {
			break
		}
	}

	counts := rec.CallCounts()
	if counts["query"] != 1 {
		t.Errorf("query calls = %d, want 1", counts["query"])
	}
	if counts["pack_step"] == 0 {
		t.Errorf("pack_step calls = %d, want > 0", counts["pack_step"])
	}

	rec.Reset()
	counts = rec.CallCounts()
	if counts["query"] != 0 || counts["pack_step"] != 0 {
		t.Errorf("counts after Reset = %+v, want all zero", counts)
	}
}

func TestFlatBufferCallbacksRoundTrip(t *testing.T) {
	e := NewEngine(nil)
	h, err := e.Register(NewFlatBufferCallbacks(), nil, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	src := []byte("round trip me")
	dst := make([]byte, len(src))

	xfer, err := e.Pack(h, src, uint64(len(src)))
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	var wire []byte
	for {
		slot := make([]byte, 5)
		res, err := xfer.Progress(slot)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if res.Kind == Done {
			break
		}
		wire = append(wire, slot[:res.N]...)
	}

	uxfer, err := e.Unpack(h, dst, uint64(len(dst)))
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	off := 0
	for off < len(wire) {
		n := 5
		if off+n > len(wire) {
			n = len(wire) - off
		}
		res, err := uxfer.Progress(wire[off : off+n])
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		off += int(res.N)
	}

	if string(dst) != string(src) {
		t.Fatalf("round trip = %q, want %q", dst, src)
	}
}
