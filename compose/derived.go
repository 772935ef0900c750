package compose

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// observable is a state cell as seen by a derived value.
type observable interface {
	subscriber
	subscribe(s ScopeID) bool
	version() uint64
}

// recorder collects the cells read while a derived value computes.
type recorder struct {
	cells mapset.Set[observable]
}

func (r *recorder) add(c observable) {
	r.cells.Add(c)
}

type dependency struct {
	cell    observable
	version uint64
}

// Derived caches a value computed from states. It recomputes on the first
// Get after any input was written, and reading it subscribes the current
// scope to the inputs of the last computation, so the scope is dirtied
// exactly as if it had read them itself.
//
// Example:
//
//	total := compose.DerivedOf(func() int { return a.Get() + b.Get() })
//	compose.Text(fmt.Sprint(total.Get()), compose.Body)
type Derived[T any] struct {
	rt   *Runtime
	calc func() T

	mu    sync.Mutex
	value T
	valid bool
	deps  []dependency
}

// DerivedOf creates a derived value on the composing or default runtime.
func DerivedOf[T any](calc func() T) *Derived[T] {
	rt := active.Load()
	if rt == nil {
		rt = Default()
	}
	if rt == nil {
		panic("compose.DerivedOf requires an active or default runtime; call SetDefault or use DerivedFor")
	}
	return DerivedFor(rt, calc)
}

func DerivedFor[T any](rt *Runtime, calc func() T) *Derived[T] {
	if rt == nil || calc == nil {
		panic("compose: DerivedFor needs a runtime and a function")
	}
	return &Derived[T]{rt: rt, calc: calc}
}

// Get returns the cached value, recomputing it first when an input changed.
func (d *Derived[T]) Get() T {
	d.mu.Lock()
	if !d.valid || d.stale() {
		d.compute()
	}
	value, deps := d.value, d.deps
	d.mu.Unlock()

	rt := d.rt
	for _, dep := range deps {
		if n := len(rt.recorders); n > 0 {
			rt.recorders[n-1].add(dep.cell)
		}
		if !rt.composing.Load() {
			continue
		}
		if scope, ok := rt.CurrentScope(); ok && dep.cell.subscribe(scope) {
			rt.track(scope, dep.cell)
		}
	}
	return value
}

// Invalidate forces the next Get to recompute.
func (d *Derived[T]) Invalidate() {
	d.mu.Lock()
	d.valid = false
	d.mu.Unlock()
}

// Deps returns how many states the last computation read.
func (d *Derived[T]) Deps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deps)
}

func (d *Derived[T]) stale() bool {
	for _, dep := range d.deps {
		if dep.cell.version() != dep.version {
			return true
		}
	}
	return false
}

func (d *Derived[T]) compute() {
	rt := d.rt
	rec := &recorder{cells: mapset.NewThreadUnsafeSet[observable]()}
	rt.recorders = append(rt.recorders, rec)
	defer func() {
		rt.recorders = rt.recorders[:len(rt.recorders)-1]
	}()

	d.value = d.calc()
	d.deps = d.deps[:0]
	for _, c := range rec.cells.ToSlice() {
		d.deps = append(d.deps, dependency{cell: c, version: c.version()})
	}
	d.valid = true
}
