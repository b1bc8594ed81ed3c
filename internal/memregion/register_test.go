package memregion

import "testing"

func TestRegistrarRegisterUnregister(t *testing.T) {
	r := NewRegistrar()
	buf := make([]byte, 4096)

	k, err := r.Register(buf)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister(k); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
}

func TestRegistrarUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistrar()
	if err := r.Unregister(Key(12345)); err != nil {
		t.Fatalf("Unregister unknown key should be a no-op, got: %v", err)
	}
}

func TestRegistrarRegisterEmptyRegion(t *testing.T) {
	r := NewRegistrar()
	k, err := r.Register(nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister(k); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
}
