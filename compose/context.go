package compose

import (
	"fmt"
	"sync/atomic"
)

// composition is the ambient state of a pass. Only the goroutine driving the
// runtime touches it.
type composition struct {
	parents  []EntityID
	scopes   []ScopeID
	renderer Renderer // nil outside a pass
}

// active is the runtime currently composing. Composables find their context
// through it, so at most one runtime composes at a time.
var active atomic.Pointer[Runtime]

// Current returns the composing runtime. It panics outside a pass.
func Current() *Runtime {
	rt := active.Load()
	if rt == nil {
		panic(ErrNoComposition)
	}
	return rt
}

// CurrentScope returns the topmost scope of the composing runtime.
func CurrentScope() (ScopeID, bool) {
	rt := active.Load()
	if rt == nil {
		return Root, false
	}
	return rt.CurrentScope()
}

// Begin starts a pass with empty stacks.
func (rt *Runtime) Begin() {
	rt.begin(false)
}

// BeginIncremental starts a pass that expects the stacks to already be empty.
func (rt *Runtime) BeginIncremental() {
	rt.begin(true)
}

func (rt *Runtime) begin(incremental bool) {
	if rt.composing.Load() || rt.handling.Load() > 0 {
		panic(fmt.Errorf("%w: pass started during composition or input dispatch", ErrReentrant))
	}
	if incremental && (len(rt.ctx.parents) != 0 || len(rt.ctx.scopes) != 0) {
		panic(fmt.Errorf("%w: incremental pass found %d parents and %d scopes",
			ErrUnbalanced, len(rt.ctx.parents), len(rt.ctx.scopes)))
	}
	if !active.CompareAndSwap(nil, rt) {
		panic(ErrConcurrentComposition)
	}
	rt.composing.Store(true)
	rt.ctx.parents = rt.ctx.parents[:0]
	rt.ctx.scopes = rt.ctx.scopes[:0]
	rt.ctx.renderer = rt.renderer
}

// End clears the stacks and closes the pass. It is safe to call on every
// exit path, including after a panic.
func (rt *Runtime) End() {
	rt.ctx.parents = rt.ctx.parents[:0]
	rt.ctx.scopes = rt.ctx.scopes[:0]
	rt.ctx.renderer = nil
	rt.composing.Store(false)
	active.CompareAndSwap(rt, nil)
}

// Composing reports whether a pass is open.
func (rt *Runtime) Composing() bool {
	return rt.composing.Load()
}

func (rt *Runtime) PushParent(e EntityID) {
	rt.mustCompose()
	rt.ctx.parents = append(rt.ctx.parents, e)
}

func (rt *Runtime) PopParent() {
	n := len(rt.ctx.parents)
	if n == 0 {
		panic(fmt.Errorf("%w: pop of empty parent stack", ErrUnbalanced))
	}
	rt.ctx.parents = rt.ctx.parents[:n-1]
}

func (rt *Runtime) EnterScope(s ScopeID) {
	rt.mustCompose()
	rt.ctx.scopes = append(rt.ctx.scopes, s)
}

func (rt *Runtime) ExitScope() {
	n := len(rt.ctx.scopes)
	if n == 0 {
		panic(fmt.Errorf("%w: exit of empty scope stack", ErrUnbalanced))
	}
	rt.ctx.scopes = rt.ctx.scopes[:n-1]
}

// CurrentScope returns the topmost scope, if a pass has entered one.
func (rt *Runtime) CurrentScope() (ScopeID, bool) {
	if n := len(rt.ctx.scopes); n > 0 {
		return rt.ctx.scopes[n-1], true
	}
	return Root, false
}

// CurrentParent returns the structural parent for the next spawn.
func (rt *Runtime) CurrentParent() (EntityID, bool) {
	if n := len(rt.ctx.parents); n > 0 {
		return rt.ctx.parents[n-1], true
	}
	return 0, false
}

// StackDepth returns the sizes of the parent and scope stacks.
func (rt *Runtime) StackDepth() (parents, scopes int) {
	return len(rt.ctx.parents), len(rt.ctx.scopes)
}

// SpawnChild spawns an entity under the current parent, or tags it as a
// composition root when there is none, and records it as owned by the
// current scope.
func (rt *Runtime) SpawnChild(bundle Bundle) EntityID {
	r := rt.mustCompose()
	e := r.Spawn(bundle)
	if parent, ok := rt.CurrentParent(); ok {
		r.SetParent(parent, e)
	} else {
		r.Attach(e, CompositionRoot{})
	}
	if s, ok := rt.CurrentScope(); ok {
		rt.registry.Own(s, e)
	}
	rt.statsMu.Lock()
	rt.stats.EntitiesSpawned++
	rt.statsMu.Unlock()
	return e
}

func (rt *Runtime) mustCompose() Renderer {
	if rt.ctx.renderer == nil {
		panic(ErrNoComposition)
	}
	return rt.ctx.renderer
}

// invoke runs fn and panics if it left either stack at a different depth.
func (rt *Runtime) invoke(fn func()) {
	parents, scopes := rt.StackDepth()
	fn()
	gotParents, gotScopes := rt.StackDepth()
	if gotParents != parents || gotScopes != scopes {
		panic(fmt.Errorf("%w: parents %d -> %d, scopes %d -> %d",
			ErrUnbalanced, parents, gotParents, scopes, gotScopes))
	}
}

// pass runs fn inside Begin/End. End runs even if fn panics.
func (rt *Runtime) pass(incremental bool, fn func()) {
	rt.begin(incremental)
	defer rt.End()
	fn()
}
