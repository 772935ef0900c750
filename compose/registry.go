package compose

import (
	"sort"
	"sync"
)

// ScopeInfo is a snapshot of a registry entry.
type ScopeInfo struct {
	ID      ScopeID
	Content func()
	Parent  ScopeID
	// HasParent is false only for scopes registered with an empty scope stack
	// (the root scope).
	HasParent  bool
	RootEntity EntityID
	// Owned lists entities emitted while this scope was topmost, in emission
	// order. The root entity, when set, is always first.
	Owned []EntityID
}

type scopeEntry struct {
	ScopeInfo
	cleanups []func()
}

// Registry maps scope ids to the data needed to replay them.
type Registry struct {
	mu      sync.RWMutex
	scopes  map[ScopeID]*scopeEntry
	release func(ScopeID)
}

// NewRegistry creates a registry. release, if non-nil, is called for every
// unregistered scope after its entry is removed; the runtime uses it to drop
// the scope's state arena.
func NewRegistry(release func(ScopeID)) *Registry {
	return &Registry{
		scopes:  make(map[ScopeID]*scopeEntry),
		release: release,
	}
}

// Register installs a scope. Registering an existing id refreshes its
// content and keeps its first parent.
func (r *Registry) Register(id ScopeID, content func(), parent ScopeID, hasParent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.scopes[id]; ok {
		e.Content = content
		return
	}
	r.scopes[id] = &scopeEntry{
		ScopeInfo: ScopeInfo{
			ID:        id,
			Content:   content,
			Parent:    parent,
			HasParent: hasParent,
		},
	}
}

func (r *Registry) SetRootEntity(id ScopeID, e EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.scopes[id]
	if !ok {
		return
	}
	entry.RootEntity = e
	for _, owned := range entry.Owned {
		if owned == e {
			return
		}
	}
	entry.Owned = append([]EntityID{e}, entry.Owned...)
}

func (r *Registry) Get(id ScopeID) (ScopeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.scopes[id]
	if !ok {
		return ScopeInfo{}, false
	}
	s := entry.ScopeInfo
	s.Owned = append([]EntityID(nil), entry.Owned...)
	return s, true
}

func (r *Registry) Has(id ScopeID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scopes[id]
	return ok
}

// Own appends e to the owned entities of id.
func (r *Registry) Own(id ScopeID, e EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.scopes[id]; ok {
		entry.Owned = append(entry.Owned, e)
	}
}

// ClearOwned forgets the owned entities of id except its root entity.
func (r *Registry) ClearOwned(id ScopeID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.scopes[id]
	if !ok {
		return
	}
	entry.Owned = entry.Owned[:0]
	if !entry.RootEntity.IsZero() {
		entry.Owned = append(entry.Owned, entry.RootEntity)
	}
}

// AddCleanup registers fn to run when id is unregistered.
func (r *Registry) AddCleanup(id ScopeID, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.scopes[id]
	if !ok {
		return false
	}
	entry.cleanups = append(entry.cleanups, fn)
	return true
}

// runCleanups runs and forgets the cleanups of id without unregistering it.
func (r *Registry) runCleanups(id ScopeID) {
	r.mu.Lock()
	entry, ok := r.scopes[id]
	var cleanups []func()
	if ok {
		cleanups = entry.cleanups
		entry.cleanups = nil
	}
	r.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Unregister removes id, runs its cleanups in reverse registration order and
// calls the release hook. It reports whether the scope existed.
func (r *Registry) Unregister(id ScopeID) bool {
	r.mu.Lock()
	entry, ok := r.scopes[id]
	delete(r.scopes, id)
	r.mu.Unlock()
	if !ok {
		return false
	}

	for i := len(entry.cleanups) - 1; i >= 0; i-- {
		entry.cleanups[i]()
	}
	if r.release != nil {
		r.release(id)
	}
	return true
}

// Children returns the ids of scopes whose parent is id, sorted.
func (r *Registry) Children(id ScopeID) []ScopeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var children []ScopeID
	for cid, entry := range r.scopes {
		if entry.HasParent && entry.Parent == id && cid != id {
			children = append(children, cid)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	return children
}

// Depth counts registered ancestors of id. Unknown scopes have depth -1.
func (r *Registry) Depth(id ScopeID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.scopes[id]
	if !ok {
		return -1
	}
	depth := 0
	for entry.HasParent && entry.Parent != entry.ID {
		parent, ok := r.scopes[entry.Parent]
		if !ok {
			break
		}
		depth++
		entry = parent
	}
	return depth
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// IDs returns every registered id, sorted.
func (r *Registry) IDs() []ScopeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ScopeID, 0, len(r.scopes))
	for id := range r.scopes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
