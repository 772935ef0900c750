// Package arena stores values behind generational handles. Every value has
// an owner; releasing an owner frees all of its values at once and bumps the
// generation of their slots so old handles are detected instead of aliasing
// whatever reuses the slot.
package arena

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var ErrStale = errors.New("arena: stale handle")

// Owner groups values for bulk release.
type Owner uint64

// Global owns values that live as long as the store.
const Global Owner = math.MaxUint64

// Handle is a copyable reference to a stored value. The zero Handle is never
// valid because generations start at 1.
type Handle struct {
	index      uint32
	generation uint32
	owner      Owner
}

func (h Handle) Index() uint32      { return h.index }
func (h Handle) Generation() uint32 { return h.generation }
func (h Handle) Owner() Owner       { return h.owner }
func (h Handle) IsZero() bool       { return h.generation == 0 }

func (h Handle) String() string {
	if h.owner == Global {
		return fmt.Sprintf("Handle(%d:%d@global)", h.index, h.generation)
	}
	return fmt.Sprintf("Handle(%d:%d@%d)", h.index, h.generation, h.owner)
}

type slot[V any] struct {
	generation uint32
	live       bool
	owner      Owner
	value      V
}

// Store is a generational slot store with a free list, safe for concurrent use.
type Store[V any] struct {
	mu       sync.RWMutex
	slots    []slot[V]
	freeList []uint32
	owned    map[Owner][]uint32
}

func New[V any]() *Store[V] {
	return &Store[V]{
		slots:    make([]slot[V], 0, 256),
		freeList: make([]uint32, 0, 64),
		owned:    make(map[Owner][]uint32),
	}
}

// Insert stores v under owner and returns its handle.
func (s *Store[V]) Insert(owner Owner, v V) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx uint32
	if n := len(s.freeList); n > 0 {
		idx = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	} else {
		if len(s.slots) == math.MaxUint32 {
			panic("arena: slot index overflow")
		}
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot[V]{generation: 1})
	}

	sl := &s.slots[idx]
	sl.live = true
	sl.owner = owner
	sl.value = v
	s.owned[owner] = append(s.owned[owner], idx)

	return Handle{index: idx, generation: sl.generation, owner: owner}
}

// Get returns the value behind h, or ErrStale if it was released.
func (s *Store[V]) Get(h Handle) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero V
	if !s.validLocked(h) {
		return zero, fmt.Errorf("%w: %s", ErrStale, h)
	}
	return s.slots[h.index].value, nil
}

func (s *Store[V]) Alive(h Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked(h)
}

func (s *Store[V]) validLocked(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(s.slots) {
		return false
	}
	sl := &s.slots[h.index]
	return sl.live && sl.generation == h.generation
}

// Release frees every value held by owner and returns how many were freed.
func (s *Store[V]) Release(owner Owner) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := s.owned[owner]
	delete(s.owned, owner)

	var zero V
	freed := 0
	for _, idx := range indices {
		sl := &s.slots[idx]
		if !sl.live || sl.owner != owner {
			continue
		}
		sl.live = false
		sl.value = zero
		sl.generation++
		if sl.generation == 0 {
			// wrapped; skip 0 so zero handles stay invalid
			sl.generation = 1
		}
		s.freeList = append(s.freeList, idx)
		freed++
	}
	return freed
}

// Len returns the number of live values.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots) - len(s.freeList)
}

// OwnerLen returns the number of live values held by owner.
func (s *Store[V]) OwnerLen(owner Owner) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.owned[owner])
}

// Owners returns the owners that currently hold at least one value.
func (s *Store[V]) Owners() []Owner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]Owner, 0, len(s.owned))
	for o := range s.owned {
		owners = append(owners, o)
	}
	return owners
}
