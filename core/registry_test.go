package core

import (
	"sync"
	"testing"
)

func TestSlotRegistryAdmitsOneSlotPerIdentity(t *testing.T) {
	registry := NewSlotRegistry()

	if _, err := registry.Acquire("447700900000", SlotPairing, nil, "/w"); err != nil {
		t.Fatalf("first acquire error = %v", err)
	}
	if _, err := registry.Acquire("447700900000", SlotLive, nil, "/w"); err == nil {
		t.Fatal("second acquire for the same identity must conflict")
	}
	if _, err := registry.Acquire("447700900001", SlotPairing, nil, "/w"); err != nil {
		t.Fatalf("acquire for another identity error = %v", err)
	}
}

func TestSlotRegistryConcurrentAcquireHasOneWinner(t *testing.T) {
	registry := NewSlotRegistry()

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.Acquire("447700900000", SlotPairing, nil, "/w"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if snapshot := registry.Snapshot(); len(snapshot) != 1 {
		t.Fatalf("slot count = %d, want 1", len(snapshot))
	}
}

func TestSlotRegistryPromoteChecksGeneration(t *testing.T) {
	registry := NewSlotRegistry()

	first, err := registry.Acquire("447700900000", SlotPairing, nil, "/w")
	if err != nil {
		t.Fatalf("acquire error = %v", err)
	}
	registry.Release("447700900000")
	second, err := registry.Acquire("447700900000", SlotPairing, nil, "/w")
	if err != nil {
		t.Fatalf("reacquire error = %v", err)
	}

	if _, ok := registry.Promote("447700900000", first.Generation); ok {
		t.Fatal("stale generation must not promote")
	}
	if registry.Live("447700900000") {
		t.Fatal("identity must not be live after a stale promote")
	}
	if _, ok := registry.Promote("447700900000", second.Generation); !ok {
		t.Fatal("current generation must promote")
	}
	if !registry.Live("447700900000") {
		t.Fatal("identity must be live after promotion")
	}
}

func TestSlotRegistryReleaseGenerationIgnoresStaleCallers(t *testing.T) {
	registry := NewSlotRegistry()

	first, err := registry.Acquire("447700900000", SlotPairing, nil, "/w")
	if err != nil {
		t.Fatalf("acquire error = %v", err)
	}
	registry.Release("447700900000")
	second, err := registry.Acquire("447700900000", SlotPairing, nil, "/w")
	if err != nil {
		t.Fatalf("reacquire error = %v", err)
	}

	if _, ok := registry.ReleaseGeneration("447700900000", first.Generation); ok {
		t.Fatal("stale generation must not release the successor")
	}
	if _, ok := registry.Get("447700900000"); !ok {
		t.Fatal("successor slot must survive a stale release")
	}
	if _, ok := registry.ReleaseGeneration("447700900000", second.Generation); !ok {
		t.Fatal("owning generation must release its slot")
	}
	if _, ok := registry.Get("447700900000"); ok {
		t.Fatal("slot must be gone after release")
	}
}
