package compose_test

import (
	"testing"

	"github.com/delaneyj/recompose/arena"
	"github.com/delaneyj/recompose/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoIndependentCounters(t *testing.T) {
	rt, world := newRuntime(t)
	a := compose.NewStateFor(rt, 0)
	b := compose.NewStateFor(rt, 0)

	var colA, colB compose.ScopeID
	calls := map[string]int{}
	start(t, rt, func() {
		colA = compose.Column(compose.Style{}, func() {
			calls["A"]++
			showInt(a)
		})
		colB = compose.Column(compose.Style{}, func() {
			calls["B"]++
			showInt(b)
		})
	})

	a.Set(1)
	report := rt.Frame()

	assert.False(t, report.Full)
	assert.Equal(t, []compose.ScopeID{colA}, report.Drained)
	assert.Equal(t, []compose.ScopeID{colA}, report.Rebuilt)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, calls)
	assert.Equal(t, []string{"1", "0"}, world.Texts())
	assert.NotContains(t, b.Subscribers(), colA)
	assert.Equal(t, []compose.ScopeID{colB}, b.Subscribers())
}

func TestUntrackedReadInHandler(t *testing.T) {
	rt, world := newRuntime(t)
	a := compose.NewStateFor(rt, 0)

	var display, controls compose.ScopeID
	start(t, rt, func() {
		display = compose.Column(compose.Style{}, func() { showInt(a) })
		controls = compose.Row(compose.Style{}, func() {
			compose.Button("+1", compose.Style{}, func() {
				a.Set(a.GetUntracked() + 1)
			})
		})
	})

	require.NoError(t, world.Click(rt, "+1"))
	assert.Equal(t, []compose.ScopeID{display}, a.Subscribers())
	assert.False(t, rt.Dirty().Contains(controls))

	report := rt.Frame()
	assert.Equal(t, []compose.ScopeID{display}, report.Rebuilt)
	assert.Equal(t, []string{"1", "+1"}, world.Texts())
}

func TestConditionalSubtree(t *testing.T) {
	rt, world := newRuntime(t)
	flag := compose.NewStateFor(rt, false)
	a := compose.NewStateFor(rt, 7)

	var col compose.ScopeID
	start(t, rt, func() {
		col = compose.Column(compose.Style{}, func() {
			compose.If(flag.Get(), func() { showInt(a) })
		})
	})
	assert.Empty(t, a.Subscribers())
	assert.Equal(t, []compose.ScopeID{col}, flag.Subscribers())
	assert.Empty(t, world.Texts())

	flag.Set(true)
	report := rt.Frame()
	assert.Equal(t, []compose.ScopeID{col}, report.Rebuilt)
	assert.Equal(t, []compose.ScopeID{col}, a.Subscribers())
	assert.Equal(t, []string{"7"}, world.Texts())

	flag.Set(false)
	rt.Frame()
	assert.Empty(t, a.Subscribers())
	assert.Empty(t, world.Texts())
	info, ok := rt.Scope(col)
	require.True(t, ok)
	assert.Equal(t, []compose.EntityID{info.RootEntity}, info.Owned)
}

func TestForEachReconciliation(t *testing.T) {
	rt, world := newRuntime(t)
	items := compose.NewStateFor(rt, []int{1, 2, 3})

	var list compose.ScopeID
	start(t, rt, func() {
		list = compose.Column(compose.Style{}, func() {
			compose.ForEach(items.Get(), func(i int) {
				compose.Text(itoa(i), compose.Body)
			})
		})
	})
	before, ok := rt.Scope(list)
	require.True(t, ok)
	assert.Len(t, world.Children(before.RootEntity), 3)

	items.Set([]int{1, 3})
	rt.Frame()

	after, ok := rt.Scope(list)
	require.True(t, ok)
	assert.Equal(t, before.RootEntity, after.RootEntity)
	assert.True(t, world.Alive(after.RootEntity))
	for _, old := range world.Children(before.RootEntity) {
		assert.NotContains(t, before.Owned, old, "every child is new")
	}

	children := world.Children(after.RootEntity)
	require.Len(t, children, 2)
	assert.Equal(t, append([]compose.EntityID{after.RootEntity}, children...), after.Owned)
	assert.Equal(t, []string{"1", "3"}, world.Texts())
}

func TestRootDirtySubsumesGranular(t *testing.T) {
	rt, world := newRuntime(t)
	a := compose.NewStateFor(rt, 0)
	b := compose.NewStateFor(rt, 0)

	appCalls, colCalls := 0, 0
	var colA, colB compose.ScopeID
	start(t, rt, func() {
		appCalls++
		colA = compose.Column(compose.Style{}, func() {
			colCalls++
			showInt(a)
		})
		colB = compose.Column(compose.Style{}, func() {
			colCalls++
			showInt(b)
		})
	})
	oldA, oldB := colA, colB

	a.Set(1)
	b.Set(2)
	rt.MarkDirty(compose.Root)
	report := rt.Frame()

	assert.True(t, report.Full)
	assert.ElementsMatch(t, []compose.ScopeID{compose.Root, oldA, oldB}, report.Drained)
	assert.Equal(t, 1, report.AppInvocations)
	assert.Equal(t, []compose.ScopeID{compose.Root}, report.Rebuilt)
	assert.Equal(t, 2, appCalls)
	assert.Equal(t, 4, colCalls, "each column ran once in the full pass")
	assert.ElementsMatch(t, []compose.ScopeID{oldA, oldB}, report.Dropped)
	assert.Equal(t, []string{"1", "2"}, world.Texts())

	stats := rt.Stats()
	assert.Equal(t, uint64(1), stats.FullRecompositions)
	assert.Equal(t, uint64(2), stats.AppInvocations)
}

func TestScopeDeathFreesState(t *testing.T) {
	rt, _ := newRuntime(t)
	visible := compose.NewStateFor(rt, true)

	var parent, child compose.ScopeID
	var captured compose.State[int]
	start(t, rt, func() {
		parent = compose.Column(compose.Style{}, func() {
			compose.If(visible.Get(), func() {
				child = compose.Column(compose.Style{}, func() {
					captured = compose.NewState(5)
					showInt(captured)
				})
			})
		})
	})
	require.Equal(t, 1, rt.ScopeStateCount(child))
	assert.Equal(t, arena.Owner(child), captured.Handle().Owner())

	visible.Set(false)
	report := rt.Frame()
	assert.Equal(t, []compose.ScopeID{parent}, report.Rebuilt)
	assert.Equal(t, []compose.ScopeID{child}, report.Dropped)

	_, ok := rt.Scope(child)
	assert.False(t, ok)
	assert.Zero(t, rt.ScopeStateCount(child))
	assert.False(t, captured.Alive())

	_, err := captured.Load()
	assert.ErrorIs(t, err, compose.ErrScopeDropped)
	assert.ErrorIs(t, captured.TrySet(1), compose.ErrScopeDropped)
	assert.ErrorIs(t, panicErr(t, func() { captured.Get() }), compose.ErrScopeDropped)
	assert.ErrorIs(t, panicErr(t, func() { captured.Set(1) }), compose.ErrScopeDropped)
}

func TestPanickingRebuildKeepsScopesDirty(t *testing.T) {
	rt, world := newRuntime(t)
	a := compose.NewStateFor(rt, 0)
	b := compose.NewStateFor(rt, 0)

	fail := false
	var colA, colB compose.ScopeID
	start(t, rt, func() {
		colA = compose.Column(compose.Style{}, func() {
			if fail {
				fail = false
				panic("boom")
			}
			showInt(a)
		})
		colB = compose.Column(compose.Style{}, func() { showInt(b) })
	})

	fail = true
	a.Set(1)
	b.Set(1)
	assert.PanicsWithValue(t, "boom", func() { rt.Frame() })
	assert.True(t, rt.Dirty().Contains(colA), "the scope that panicked is rebuilt again")
	assert.True(t, rt.Dirty().Contains(colB), "scopes the frame never reached stay dirty")

	report := rt.Frame()
	assert.Equal(t, []compose.ScopeID{colA, colB}, report.Rebuilt)
	assert.Equal(t, []string{"1", "1"}, world.Texts())
	parents, scopes := rt.StackDepth()
	assert.Zero(t, parents)
	assert.Zero(t, scopes)
}

func TestPanickingFullRecompositionKeepsRootDirty(t *testing.T) {
	rt, world := newRuntime(t)
	a := compose.NewStateFor(rt, 0)

	fail := false
	start(t, rt, func() {
		compose.Column(compose.Style{}, func() { showInt(a) })
		if fail {
			fail = false
			panic("boom")
		}
	})

	fail = true
	a.Set(5)
	rt.MarkDirty(compose.Root)
	assert.PanicsWithValue(t, "boom", func() { rt.Frame() })
	assert.True(t, rt.Dirty().Contains(compose.Root))

	report := rt.Frame()
	assert.True(t, report.Full)
	assert.Equal(t, []string{"5"}, world.Texts())
	assert.Equal(t, 2, rt.Registry().Len(), "columns from the failed pass are reaped")
}

func TestDirtyChildDroppedByParentIsSkipped(t *testing.T) {
	rt, world := newRuntime(t)
	visible := compose.NewStateFor(rt, true)
	a := compose.NewStateFor(rt, 0)

	var parent, child compose.ScopeID
	start(t, rt, func() {
		parent = compose.Column(compose.Style{}, func() {
			compose.If(visible.Get(), func() {
				child = compose.Column(compose.Style{}, func() { showInt(a) })
			})
		})
	})
	old := child

	a.Set(1)
	visible.Set(false)
	var report compose.FrameReport
	require.NotPanics(t, func() { report = rt.Frame() })
	assert.Equal(t, []compose.ScopeID{parent}, report.Rebuilt)
	assert.Equal(t, []compose.ScopeID{old}, report.Skipped)
	assert.Equal(t, []compose.ScopeID{old}, report.Dropped)
	assert.Empty(t, world.Texts())
	assert.Empty(t, a.Subscribers())

	rt.MarkDirty(old)
	require.NotPanics(t, func() { report = rt.Frame() })
	assert.False(t, report.Idle())
	assert.Empty(t, report.Rebuilt)
	assert.Empty(t, report.Dropped)
	assert.Equal(t, []compose.ScopeID{old}, report.Skipped, "a late mark for a dropped scope is absorbed")
}

func TestDirtyScopeWithDeadRootIsDropped(t *testing.T) {
	rt, world := newRuntime(t)
	a := compose.NewStateFor(rt, 0)

	var col, inner compose.ScopeID
	start(t, rt, func() {
		col = compose.Column(compose.Style{}, func() {
			showInt(a)
			inner = compose.Scope(func() { compose.Text("inner", compose.Body) })
		})
	})
	info, ok := rt.Scope(col)
	require.True(t, ok)
	world.Despawn(info.RootEntity)

	a.Set(1)
	report := rt.Frame()
	assert.Empty(t, report.Rebuilt)
	assert.Equal(t, []compose.ScopeID{col}, report.Skipped)
	assert.Equal(t, []compose.ScopeID{col, inner}, report.Dropped)
	_, ok = rt.Scope(col)
	assert.False(t, ok)
	_, ok = rt.Scope(inner)
	assert.False(t, ok)
	assert.Empty(t, a.Subscribers())
}
