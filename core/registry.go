package core

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// SlotRegistry is the in-memory authoritative map of which identities hold
// a live connection or an in-flight pairing attempt. Registry methods are
// short critical sections; operation-length exclusion per identity comes
// from the IdentityLocker, not from holding the registry mutex.
type SlotRegistry struct {
	mu         sync.RWMutex
	slots      map[string]*Slot
	generation uint64
	nowFn      func() time.Time
}

func NewSlotRegistry() *SlotRegistry {
	return &SlotRegistry{
		slots: make(map[string]*Slot),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Acquire places the identity into a Pairing or Live slot. It fails with
// ErrSlotConflict while any slot exists for the identity; the caller decides
// whether to tear the existing slot down first.
func (r *SlotRegistry) Acquire(number string, kind SlotKind, conn Connection, workspacePath string) (*Slot, error) {
	if r == nil {
		return nil, fmt.Errorf("core: slot registry is not configured")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("core: identity is required for slot acquisition")
	}
	if kind != SlotPairing && kind != SlotLive {
		return nil, fmt.Errorf("core: unknown slot kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.slots[number]; ok {
		return nil, fmt.Errorf("%w: %q holds a %s slot", ErrSlotConflict, number, existing.Kind)
	}
	r.generation++
	slot := &Slot{
		Number:        number,
		Kind:          kind,
		Conn:          conn,
		WorkspacePath: workspacePath,
		Generation:    r.generation,
		CreatedAt:     r.nowFn(),
	}
	r.slots[number] = slot
	return slot, nil
}

// Promote moves an identity's Pairing slot to Live, keeping its generation.
// Promoting an already-Live slot is a no-op; a missing slot reports false.
func (r *SlotRegistry) Promote(number string, generation uint64) (*Slot, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[strings.TrimSpace(number)]
	if !ok || slot.Generation != generation {
		return nil, false
	}
	slot.Kind = SlotLive
	return slot, true
}

// Release removes the identity's slot unconditionally. The second return
// reports whether a slot existed.
func (r *SlotRegistry) Release(number string) (*Slot, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	number = strings.TrimSpace(number)
	slot, ok := r.slots[number]
	if ok {
		delete(r.slots, number)
	}
	return slot, ok
}

// ReleaseGeneration removes the slot only when it still belongs to the
// given generation, so a stale event pump cannot evict its successor.
func (r *SlotRegistry) ReleaseGeneration(number string, generation uint64) (*Slot, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	number = strings.TrimSpace(number)
	slot, ok := r.slots[number]
	if !ok || slot.Generation != generation {
		return nil, false
	}
	delete(r.slots, number)
	return slot, true
}

func (r *SlotRegistry) Get(number string) (*Slot, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[strings.TrimSpace(number)]
	return slot, ok
}

// Live reports whether the identity currently holds a Live slot.
func (r *SlotRegistry) Live(number string) bool {
	slot, ok := r.Get(number)
	return ok && slot.Kind == SlotLive
}

func (r *SlotRegistry) Snapshot() map[string]SlotKind {
	if r == nil {
		return map[string]SlotKind{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]SlotKind, len(r.slots))
	for number, slot := range r.slots {
		out[number] = slot.Kind
	}
	return out
}
