// Package compose is a reactive composition runtime with scoped
// recomposition.
//
// Authoring code describes UI as nested calls to composables (Column, Text,
// Button, ...). Every container registers a scope holding its content
// closure. State values remember which scopes read them; writing a State
// marks exactly those scopes dirty and the next Frame rebuilds only their
// subtrees, or the whole tree when the root scope is dirty.
//
// Example usage:
//
//	world := headless.New()
//	rt := compose.New(world)
//	count := compose.NewStateFor(rt, 0)
//	rt.Start(func() {
//	    compose.Column(compose.Style{}, func() {
//	        compose.Text(fmt.Sprint(count.Get()), compose.Body)
//	        compose.Button("+1", compose.Style{}, func() {
//	            count.Set(count.GetUntracked() + 1)
//	        })
//	    })
//	})
//	// per frame
//	rt.Frame()
//
// Thread Safety Rules:
//   - Start, Frame, Dispatch and every composable run on one goroutine
//   - State.GetUntracked is safe from any goroutine
//   - Writes from other goroutines go through State.SetAsync or Runtime.Post
package compose

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/delaneyj/recompose/arena"
)

const DefaultQueueSize = 256

// subscriber is the untyped side of a state cell.
type subscriber interface {
	unsubscribe(s ScopeID)
}

// Stats are cumulative counters since New.
type Stats struct {
	Frames             uint64
	IdleFrames         uint64
	FullRecompositions uint64
	ScopeRebuilds      uint64
	AppInvocations     uint64
	ScopesDropped      uint64
	EntitiesSpawned    uint64
	Dispatches         uint64
	Posted             uint64
}

// FrameReport describes what one call to Frame did.
type FrameReport struct {
	Full           bool
	Drained        []ScopeID
	Rebuilt        []ScopeID
	Skipped        []ScopeID
	Dropped        []ScopeID
	AppInvocations int
	Posted         int
	Duration       time.Duration
}

// Idle reports whether the frame did no composition work.
func (r FrameReport) Idle() bool {
	return len(r.Drained) == 0
}

// Runtime owns the scope registry, the dirty set, the state arenas and the
// composition context for one entity tree.
type Runtime struct {
	renderer Renderer
	log      *zap.Logger

	registry *Registry
	dirty    *DirtySet
	cells    *arena.Store[subscriber]

	depsMu sync.Mutex
	deps   map[ScopeID]mapset.Set[subscriber]

	ctx       composition
	recorders []*recorder

	content     func()
	initialized bool
	composing   atomic.Bool
	framing     atomic.Bool
	handling    atomic.Int32

	queue  chan func()
	closed atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

type Option func(*Runtime)

// WithLogger sets the logger used for frame and lifecycle events.
func WithLogger(log *zap.Logger) Option {
	return func(rt *Runtime) {
		if log != nil {
			rt.log = log
		}
	}
}

// WithQueueSize bounds the cross-goroutine write queue.
func WithQueueSize(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.queue = make(chan func(), n)
		}
	}
}

func New(renderer Renderer, opts ...Option) *Runtime {
	if renderer == nil {
		panic("compose: nil renderer")
	}
	rt := &Runtime{
		renderer: renderer,
		log:      zap.NewNop(),
		dirty:    NewDirtySet(),
		cells:    arena.New[subscriber](),
		deps:     make(map[ScopeID]mapset.Set[subscriber]),
		queue:    make(chan func(), DefaultQueueSize),
	}
	rt.registry = NewRegistry(rt.releaseScope)
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

var defaultRuntime atomic.Pointer[Runtime]

// SetDefault installs the runtime used by NewState outside a pass.
func SetDefault(rt *Runtime) {
	defaultRuntime.Store(rt)
}

// Default returns the runtime installed with SetDefault, or nil.
func Default() *Runtime {
	return defaultRuntime.Load()
}

func (rt *Runtime) Renderer() Renderer  { return rt.renderer }
func (rt *Runtime) Registry() *Registry { return rt.registry }
func (rt *Runtime) Dirty() *DirtySet    { return rt.dirty }
func (rt *Runtime) Logger() *zap.Logger { return rt.log }
func (rt *Runtime) Initialized() bool   { return rt.initialized }
func (rt *Runtime) StateCount() int     { return rt.cells.Len() }
func (rt *Runtime) MarkDirty(s ScopeID) { rt.dirty.Mark(s) }
func (rt *Runtime) Scope(s ScopeID) (ScopeInfo, bool) {
	return rt.registry.Get(s)
}

// ScopeStateCount returns the number of live states owned by s.
func (rt *Runtime) ScopeStateCount(s ScopeID) int {
	return rt.cells.OwnerLen(arena.Owner(s))
}

func (rt *Runtime) Stats() Stats {
	rt.statsMu.Lock()
	defer rt.statsMu.Unlock()
	return rt.stats
}

// Invalidate marks the root scope of the composing or default runtime dirty,
// forcing a full recomposition on the next frame.
func Invalidate() {
	rt := active.Load()
	if rt == nil {
		rt = Default()
	}
	if rt == nil {
		panic("compose.Invalidate requires an active or default runtime")
	}
	rt.MarkDirty(Root)
}

// Start runs the initial composition of content under the root scope.
func (rt *Runtime) Start(content func()) error {
	if rt.initialized {
		return ErrAlreadyStarted
	}
	if content == nil {
		return errors.New("compose: nil content")
	}
	start := time.Now()
	rt.content = content
	rt.registry.Register(Root, content, Root, false)
	// the first pass reads current values, so earlier writes need no frame
	rt.dirty.Drain()

	rt.pass(false, func() {
		rt.EnterScope(Root)
		rt.invoke(content)
		rt.ExitScope()
	})
	rt.initialized = true

	rt.statsMu.Lock()
	rt.stats.AppInvocations++
	rt.statsMu.Unlock()

	rt.log.Debug("initial composition",
		zap.Int("scopes", rt.registry.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Frame runs one frame: queued work first, then recomposition of whatever is
// dirty. A drain containing the root scope rebuilds everything once; any
// other drain rebuilds each dirty scope's subtree, parents before children.
func (rt *Runtime) Frame() FrameReport {
	if rt.composing.Load() || rt.handling.Load() > 0 {
		panic(fmt.Errorf("%w: frame requested during composition or input dispatch", ErrReentrant))
	}
	if !rt.framing.CompareAndSwap(false, true) {
		panic(fmt.Errorf("%w: frame requested during frame", ErrReentrant))
	}
	defer rt.framing.Store(false)

	start := time.Now()
	var report FrameReport
	report.Posted = rt.drainQueue()

	if !rt.initialized || !rt.dirty.NonEmpty() {
		report.Duration = time.Since(start)
		rt.record(report)
		return report
	}

	report.Drained = rt.dirty.Drain()
	defer func() {
		if r := recover(); r != nil {
			rt.requeue(&report)
			panic(r)
		}
	}()
	if containsScope(report.Drained, Root) {
		rt.recomposeAll(&report)
	} else {
		rt.recomposeScopes(&report)
	}
	report.Duration = time.Since(start)
	rt.record(report)

	rt.log.Debug("frame",
		zap.Bool("full", report.Full),
		zap.Int("drained", len(report.Drained)),
		zap.Int("rebuilt", len(report.Rebuilt)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("dropped", len(report.Dropped)),
		zap.Duration("took", report.Duration),
	)
	return report
}

// requeue marks again every drained scope the frame did not finish, so a
// host that recovers from a panicking content function converges on the
// next frame.
func (rt *Runtime) requeue(report *FrameReport) {
	if containsScope(report.Drained, Root) {
		rt.dirty.Mark(Root)
		rt.log.Warn("full recomposition panicked, root marked dirty again")
		return
	}
	var requeued []ScopeID
	for _, s := range report.Drained {
		if containsScope(report.Rebuilt, s) || containsScope(report.Skipped, s) {
			continue
		}
		if !rt.registry.Has(s) {
			continue
		}
		rt.dirty.Mark(s)
		requeued = append(requeued, s)
	}
	rt.log.Warn("scope recomposition panicked, unfinished scopes marked dirty again",
		zap.Int("requeued", len(requeued)),
	)
}

func (rt *Runtime) recomposeAll(report *FrameReport) {
	for _, e := range rt.renderer.Query(CompositionRoot{}) {
		rt.renderer.Despawn(e)
	}
	for _, s := range report.Drained {
		rt.registry.ClearOwned(s)
	}
	rt.resetScope(Root)

	rt.pass(true, func() {
		rt.EnterScope(Root)
		rt.invoke(rt.content)
		rt.ExitScope()
	})

	report.Full = true
	report.AppInvocations = 1
	report.Rebuilt = append(report.Rebuilt, Root)
	report.Dropped = append(report.Dropped, rt.reap(Root)...)
}

func (rt *Runtime) recomposeScopes(report *FrameReport) {
	type pending struct {
		id    ScopeID
		depth int
	}
	order := make([]pending, 0, len(report.Drained))
	for _, s := range report.Drained {
		depth := rt.registry.Depth(s)
		if depth < 0 {
			report.Skipped = append(report.Skipped, s)
			continue
		}
		order = append(order, pending{id: s, depth: depth})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].depth != order[j].depth {
			return order[i].depth < order[j].depth
		}
		return order[i].id < order[j].id
	})

	for _, p := range order {
		sc, ok := rt.registry.Get(p.id)
		if !ok {
			// dropped by an ancestor's rebuild earlier in this frame
			report.Skipped = append(report.Skipped, p.id)
			continue
		}
		if sc.RootEntity.IsZero() || !rt.renderer.Alive(sc.RootEntity) {
			rt.log.Warn("dirty scope lost its root entity", zap.Stringer("scope", p.id))
			rt.registry.Unregister(p.id)
			report.Dropped = append(report.Dropped, p.id)
			report.Dropped = append(report.Dropped, rt.reap(p.id)...)
			report.Skipped = append(report.Skipped, p.id)
			continue
		}

		rt.renderer.DespawnChildren(sc.RootEntity)
		rt.registry.ClearOwned(p.id)
		rt.resetScope(p.id)

		rt.pass(true, func() {
			rt.PushParent(sc.RootEntity)
			rt.EnterScope(p.id)
			rt.invoke(sc.Content)
			rt.ExitScope()
			rt.PopParent()
		})

		report.Rebuilt = append(report.Rebuilt, p.id)
		report.Dropped = append(report.Dropped, rt.reap(p.id)...)
	}
}

// reap unregisters every child scope of parent whose root entity is gone,
// and recursively their children. It returns the dropped ids.
func (rt *Runtime) reap(parent ScopeID) []ScopeID {
	var dropped []ScopeID
	for _, child := range rt.registry.Children(parent) {
		sc, ok := rt.registry.Get(child)
		if !ok {
			continue
		}
		if !sc.RootEntity.IsZero() && rt.renderer.Alive(sc.RootEntity) {
			continue
		}
		rt.registry.Unregister(child)
		dropped = append(dropped, child)
		dropped = append(dropped, rt.reap(child)...)
	}
	return dropped
}

// resetScope forgets what the previous pass of s created: its subscriptions,
// its states and its cleanups.
func (rt *Runtime) resetScope(s ScopeID) {
	rt.registry.runCleanups(s)
	rt.releaseDeps(s)
	rt.cells.Release(arena.Owner(s))
}

// releaseScope is the registry's release hook for unregistered scopes.
func (rt *Runtime) releaseScope(s ScopeID) {
	rt.releaseDeps(s)
	freed := rt.cells.Release(arena.Owner(s))
	rt.log.Debug("scope dropped", zap.Stringer("scope", s), zap.Int("states", freed))
}

func (rt *Runtime) track(s ScopeID, c subscriber) {
	rt.depsMu.Lock()
	defer rt.depsMu.Unlock()
	set, ok := rt.deps[s]
	if !ok {
		set = mapset.NewThreadUnsafeSet[subscriber]()
		rt.deps[s] = set
	}
	set.Add(c)
}

// releaseDeps removes s from the subscriber set of every cell it read.
func (rt *Runtime) releaseDeps(s ScopeID) {
	rt.depsMu.Lock()
	set, ok := rt.deps[s]
	delete(rt.deps, s)
	rt.depsMu.Unlock()
	if !ok {
		return
	}
	for _, c := range set.ToSlice() {
		c.unsubscribe(s)
	}
}

// notify marks subscribers dirty, or the root scope when there are none.
// Callers must not hold any cell lock.
func (rt *Runtime) notify(subs []ScopeID) {
	if len(subs) == 0 {
		rt.dirty.Mark(Root)
		return
	}
	for _, s := range subs {
		rt.dirty.Mark(s)
	}
}

// currentOwner is the arena owner for a state created right now.
func (rt *Runtime) currentOwner() arena.Owner {
	if rt.composing.Load() {
		if s, ok := rt.CurrentScope(); ok {
			return arena.Owner(s)
		}
	}
	return arena.Global
}

// Post queues fn to run on the runtime's goroutine at the start of the next
// frame. It blocks while the queue is full, except while an input handler,
// a queued function or a composition pass is running: the queue cannot drain
// until that returns, so Post fails with ErrQueueFull instead. Code on the
// runtime's goroutine should prefer State.Set.
func (rt *Runtime) Post(ctx context.Context, fn func()) error {
	if rt.closed.Load() {
		return ErrQueueClosed
	}
	if rt.composing.Load() || rt.handling.Load() > 0 {
		select {
		case rt.queue <- fn:
			return nil
		default:
			return ErrQueueFull
		}
	}
	select {
	case rt.queue <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further posts. Work already queued still runs.
func (rt *Runtime) Close() {
	rt.closed.Store(true)
}

// drainQueue runs what was queued when the frame started; work posted by
// queued functions waits for the next frame.
func (rt *Runtime) drainQueue() int {
	rt.handling.Add(1)
	defer rt.handling.Add(-1)
	n := len(rt.queue)
	for i := 0; i < n; i++ {
		fn := <-rt.queue
		fn()
	}
	return n
}

// Dispatch delivers a click to e, or to its nearest ancestor with a
// Clickable. Handlers run synchronously and must not start a frame.
func (rt *Runtime) Dispatch(e EntityID) error {
	if rt.composing.Load() {
		panic(fmt.Errorf("%w: dispatch during composition", ErrReentrant))
	}
	for cur := e; ; {
		if c, ok := rt.renderer.Get(cur, Clickable{}); ok {
			if click, ok := c.(Clickable); ok && click.OnClick != nil {
				rt.handle(click.OnClick)
				return nil
			}
		}
		parent, ok := rt.renderer.Parent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	return fmt.Errorf("%w: %s", ErrNoHandler, e)
}

func (rt *Runtime) handle(fn func()) {
	rt.handling.Add(1)
	defer rt.handling.Add(-1)
	fn()

	rt.statsMu.Lock()
	rt.stats.Dispatches++
	rt.statsMu.Unlock()
}

func (rt *Runtime) record(report FrameReport) {
	rt.statsMu.Lock()
	defer rt.statsMu.Unlock()
	rt.stats.Frames++
	rt.stats.Posted += uint64(report.Posted)
	if report.Idle() {
		rt.stats.IdleFrames++
		return
	}
	if report.Full {
		rt.stats.FullRecompositions++
	}
	rt.stats.AppInvocations += uint64(report.AppInvocations)
	rt.stats.ScopeRebuilds += uint64(len(report.Rebuilt))
	rt.stats.ScopesDropped += uint64(len(report.Dropped))
}

func containsScope(ids []ScopeID, s ScopeID) bool {
	for _, id := range ids {
		if id == s {
			return true
		}
	}
	return false
}
