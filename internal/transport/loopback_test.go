package transport

import "testing"

func TestLoopbackSendRecvRoundTrip(t *testing.T) {
	lb := NewLoopback(8)
	send := lb.NextSlot()
	copy(send.Buf, []byte("hello"))
	n, err := lb.Send(send, 5)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n != 5 {
		t.Fatalf("Send returned %d, want 5", n)
	}

	recv := lb.NextSlot()
	n, err = lb.Recv(recv)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(recv.Buf[:n]) != "hello" {
		t.Fatalf("Recv = %q, want %q", recv.Buf[:n], "hello")
	}
}

func TestLoopbackSendRejectsOversizedLength(t *testing.T) {
	lb := NewLoopback(4)
	slot := lb.NextSlot()
	if _, err := lb.Send(slot, 100); err == nil {
		t.Fatal("expected error for n > slot capacity")
	}
}

func TestLoopbackRegionRoundTrip(t *testing.T) {
	lb := NewLoopback(0)
	region := []byte{1, 2, 3, 4}
	h, err := lb.RegisterRegion(region)
	if err != nil {
		t.Fatalf("RegisterRegion: %v", err)
	}
	if err := lb.SendRegion(h, region); err != nil {
		t.Fatalf("SendRegion: %v", err)
	}

	out := make([]byte, 4)
	if err := lb.RecvRegion(h, out); err != nil {
		t.Fatalf("RecvRegion: %v", err)
	}
	for i, b := range region {
		if out[i] != b {
			t.Errorf("out[%d] = %d, want %d", i, out[i], b)
		}
	}
	if err := lb.UnregisterRegion(h); err != nil {
		t.Fatalf("UnregisterRegion: %v", err)
	}
}

func TestLoopbackRecvRegionSizeMismatch(t *testing.T) {
	lb := NewLoopback(0)
	region := []byte{1, 2, 3, 4}
	h, _ := lb.RegisterRegion(region)
	_ = lb.SendRegion(h, region)

	if err := lb.RecvRegion(h, make([]byte, 2)); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestLoopbackRecvRegionEmptyQueue(t *testing.T) {
	lb := NewLoopback(0)
	if err := lb.RecvRegion(RegionHandle(1), make([]byte, 4)); err == nil {
		t.Fatal("expected error when no region payload is queued")
	}
}
