package server

import "testing"

func TestRegistryAllocateUnique(t *testing.T) {
	r := NewRegistry()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := r.Allocate()
		if seen[name] {
			t.Fatalf("duplicate name %q", name)
		}
		seen[name] = true
	}
	if got := len(r.Active()); got != 100 {
		t.Fatalf("active: want 100 got %d", got)
	}
}

func TestRegistryReserveAndRelease(t *testing.T) {
	r := NewRegistry()
	if !r.Reserve("control") {
		t.Fatalf("reserve of free name failed")
	}
	if r.Reserve("control") {
		t.Fatalf("double reserve succeeded")
	}
	r.Release("control")
	if !r.Reserve("control") {
		t.Fatalf("reserve after release failed")
	}
	// Releasing an unknown name is harmless.
	r.Release("never-allocated")
}
