package compose

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/delaneyj/recompose/arena"
)

// cell holds a state value and the scopes that read it. The value and the
// subscriber set have separate locks, and neither is held while scopes are
// marked dirty.
type cell[T any] struct {
	mu      sync.RWMutex
	value   T
	written atomic.Uint64

	subMu sync.Mutex
	subs  mapset.Set[ScopeID]
}

func (c *cell[T]) subscribe(s ScopeID) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.subs.Add(s)
}

func (c *cell[T]) unsubscribe(s ScopeID) {
	c.subMu.Lock()
	c.subs.Remove(s)
	c.subMu.Unlock()
}

func (c *cell[T]) snapshot() []ScopeID {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.subs.ToSlice()
}

func (c *cell[T]) version() uint64 {
	return c.written.Load()
}

func (c *cell[T]) store(v T) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	c.written.Add(1)
}

func (c *cell[T]) load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// State is a reactive value. It is a small copyable handle; the runtime's
// arena owns the value. A State created while a scope is composing dies with
// that scope, after which Get and Set panic and Load and TrySet return
// ErrScopeDropped.
//
// No equality check is made on write: every Set notifies.
type State[T any] struct {
	rt     *Runtime
	handle arena.Handle
}

// NewState creates a state on the composing runtime, or on the default
// runtime outside a pass.
//
// Example:
//
//	count := compose.NewState(0)           // State[int]
//	name := compose.NewState("hello")      // State[string]
//	items := compose.NewState([]string{})  // State[[]string]
func NewState[T any](initial T) State[T] {
	rt := active.Load()
	if rt == nil {
		rt = Default()
	}
	if rt == nil {
		panic("compose.NewState requires an active or default runtime; call SetDefault or use NewStateFor")
	}
	return NewStateFor(rt, initial)
}

// NewStateFor creates a state on rt. Inside a pass it belongs to the current
// scope, otherwise it lives as long as rt.
func NewStateFor[T any](rt *Runtime, initial T) State[T] {
	if rt == nil {
		panic("compose: nil runtime in NewStateFor")
	}
	c := &cell[T]{
		value: initial,
		subs:  mapset.NewThreadUnsafeSet[ScopeID](),
	}
	return State[T]{rt: rt, handle: rt.cells.Insert(rt.currentOwner(), c)}
}

// Handle returns the arena handle backing s.
func (s State[T]) Handle() arena.Handle {
	return s.handle
}

// Alive reports whether the owning scope still exists.
func (s State[T]) Alive() bool {
	return s.rt != nil && s.rt.cells.Alive(s.handle)
}

func (s State[T]) cell() (*cell[T], error) {
	if s.rt == nil {
		return nil, fmt.Errorf("%w: zero State", ErrScopeDropped)
	}
	v, err := s.rt.cells.Get(s.handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScopeDropped, err)
	}
	c, ok := v.(*cell[T])
	if !ok {
		panic(fmt.Sprintf("compose: state %s holds %T", s.handle, v))
	}
	return c, nil
}

func (s State[T]) mustCell() *cell[T] {
	c, err := s.cell()
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the value and subscribes the current scope to it.
func (s State[T]) Get() T {
	c := s.mustCell()
	s.observe(c)
	return c.load()
}

// Load is Get that reports a dropped scope instead of panicking.
func (s State[T]) Load() (T, error) {
	c, err := s.cell()
	if err != nil {
		var zero T
		return zero, err
	}
	s.observe(c)
	return c.load(), nil
}

func (s State[T]) observe(c *cell[T]) {
	rt := s.rt
	if n := len(rt.recorders); n > 0 {
		rt.recorders[n-1].add(c)
	}
	if !rt.composing.Load() {
		return
	}
	if scope, ok := rt.CurrentScope(); ok {
		if c.subscribe(scope) {
			rt.track(scope, c)
		}
	}
}

// GetUntracked returns the value without subscribing. Event handlers use it
// so their enclosing scope does not start depending on what they read. It
// is safe from any goroutine.
func (s State[T]) GetUntracked() T {
	return s.mustCell().load()
}

// Set replaces the value and marks every subscriber dirty, or the root scope
// when nothing subscribed.
func (s State[T]) Set(v T) {
	c := s.mustCell()
	c.store(v)
	s.rt.notify(c.snapshot())
}

// TrySet is Set that reports a dropped scope instead of panicking.
func (s State[T]) TrySet(v T) error {
	c, err := s.cell()
	if err != nil {
		return err
	}
	c.store(v)
	s.rt.notify(c.snapshot())
	return nil
}

// Update stores fn applied to the current value and notifies like Set. No
// lock is held while fn runs, so fn may read the state itself.
//
// Example:
//
//	count.Update(func(v int) int { return v + 1 })
func (s State[T]) Update(fn func(T) T) {
	c := s.mustCell()
	c.store(fn(c.load()))
	s.rt.notify(c.snapshot())
}

// SetSilent replaces the value without notifying anyone. Pair it with
// Runtime.MarkDirty for bulk updates.
func (s State[T]) SetSilent(v T) {
	s.mustCell().store(v)
}

// SetAsync queues a Set for the runtime's next frame. It is the only write
// allowed from other goroutines.
func (s State[T]) SetAsync(ctx context.Context, v T) error {
	return s.rt.Post(ctx, func() {
		if err := s.TrySet(v); err != nil {
			s.rt.log.Debug("dropped async write",
				zap.Stringer("state", s.handle),
				zap.Error(err),
			)
		}
	})
}

// ClearSubscribers forgets every subscriber.
func (s State[T]) ClearSubscribers() {
	c := s.mustCell()
	for _, scope := range c.snapshot() {
		c.unsubscribe(scope)
	}
}

// Subscribers returns the subscribed scopes in ascending order.
func (s State[T]) Subscribers() []ScopeID {
	subs := s.mustCell().snapshot()
	sort.Slice(subs, func(i, j int) bool { return subs[i] < subs[j] })
	return subs
}

func (s State[T]) String() string {
	c, err := s.cell()
	if err != nil {
		return "State(dropped)"
	}
	return fmt.Sprintf("State(%v)", c.load())
}

type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func Increment[T Number](s State[T]) {
	s.Update(func(v T) T { return v + 1 })
}

func Decrement[T Number](s State[T]) {
	s.Update(func(v T) T { return v - 1 })
}
