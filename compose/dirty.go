package compose

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// DirtySet holds the scopes awaiting recomposition.
type DirtySet struct {
	mu  sync.Mutex
	set mapset.Set[ScopeID]
}

func NewDirtySet() *DirtySet {
	return &DirtySet{set: mapset.NewThreadUnsafeSet[ScopeID]()}
}

// Mark schedules s for the next frame. The lock is held only for the insert.
func (d *DirtySet) Mark(s ScopeID) {
	d.mu.Lock()
	d.set.Add(s)
	d.mu.Unlock()
}

// Drain empties the set and returns what it held, sorted by id. Marks made
// after Drain returns accumulate for the next call.
func (d *DirtySet) Drain() []ScopeID {
	d.mu.Lock()
	drained := d.set
	d.set = mapset.NewThreadUnsafeSet[ScopeID]()
	d.mu.Unlock()

	ids := drained.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *DirtySet) NonEmpty() bool {
	return d.Len() > 0
}

func (d *DirtySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.set.Cardinality()
}

func (d *DirtySet) Contains(s ScopeID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.set.Contains(s)
}
