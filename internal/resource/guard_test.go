package resource

import "testing"

func TestNewGuardDisabledSkipsProcessLookup(t *testing.T) {
	g, err := NewGuard(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Admit() {
		t.Fatal("disabled guard must always admit")
	}
}

func TestGuardAdmitsBeforeFirstSample(t *testing.T) {
	g, err := NewGuard(50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Admit() {
		t.Fatal("guard with no sample yet must admit (zero-value usage is below any positive threshold)")
	}
}

func TestGuardRejectsAboveMemoryThreshold(t *testing.T) {
	g, err := NewGuard(0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.sample()
	if g.Admit() {
		t.Fatal("expected rejection: process RSS should exceed a 1-byte threshold")
	}
}
