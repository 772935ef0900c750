package headless_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delaneyj/recompose/compose"
	"github.com/delaneyj/recompose/headless"
)

func label(s string) compose.Bundle {
	return compose.Bundle{compose.Label{Text: s, Style: compose.Body}}
}

func TestSpawnParentDespawn(t *testing.T) {
	w := headless.New()
	root := w.Spawn(compose.Bundle{compose.Node{Kind: compose.KindColumn}})
	a := w.Spawn(label("a"))
	b := w.Spawn(label("b"))
	w.SetParent(root, a)
	w.SetParent(root, b)
	grandchild := w.Spawn(label("c"))
	w.SetParent(a, grandchild)

	assert.False(t, root.IsZero())
	assert.Equal(t, []compose.EntityID{root}, w.Roots())
	assert.Equal(t, []compose.EntityID{a, b}, w.Children(root))
	parent, ok := w.Parent(grandchild)
	require.True(t, ok)
	assert.Equal(t, a, parent)
	assert.Equal(t, 4, w.Len())

	w.Despawn(a)
	assert.False(t, w.Alive(a))
	assert.False(t, w.Alive(grandchild), "despawn is recursive")
	assert.Equal(t, []compose.EntityID{b}, w.Children(root))

	w.DespawnChildren(root)
	assert.True(t, w.Alive(root))
	assert.Empty(t, w.Children(root))
	assert.Equal(t, 1, w.Len())

	spawned, despawned := w.Churn()
	assert.Equal(t, uint64(4), spawned)
	assert.Equal(t, uint64(3), despawned)
}

func TestStaleIDsAreNotAlive(t *testing.T) {
	w := headless.New()
	old := w.Spawn(label("old"))
	w.Despawn(old)
	fresh := w.Spawn(label("fresh"))

	assert.NotEqual(t, old, fresh)
	assert.False(t, w.Alive(old))
	assert.True(t, w.Alive(fresh))
	assert.False(t, w.Alive(0))

	_, ok := w.Get(old, compose.Label{})
	assert.False(t, ok)
	w.Despawn(old)
	assert.True(t, w.Alive(fresh), "despawning a stale id is a no-op")
}

func TestComponents(t *testing.T) {
	w := headless.New()
	e := w.Spawn(label("x"))
	w.Attach(e, compose.CompositionRoot{})
	w.Attach(e, compose.Label{Text: "y"})

	got, ok := w.Get(e, compose.Label{})
	require.True(t, ok)
	assert.Equal(t, "y", got.(compose.Label).Text, "attach replaces a component of the same type")
	assert.Equal(t, []compose.EntityID{e}, w.Query(compose.CompositionRoot{}))

	w.Detach(e, compose.CompositionRoot{})
	assert.Empty(t, w.Query(compose.CompositionRoot{}))
}

func TestConfigureWindow(t *testing.T) {
	w := headless.New()
	var _ compose.WindowConfigurer = w
	w.ConfigureWindow("demo", 320, 200, false)
	assert.Equal(t, headless.Window{Title: "demo", Width: 320, Height: 200}, w.Window())
}

func composeSample(w *headless.World, value string) *compose.Runtime {
	rt := compose.New(w)
	if err := rt.Start(func() {
		compose.Column(compose.Style{}, func() {
			compose.Text(value, compose.Title)
			compose.Button("go", compose.Style{}, func() {})
			compose.FixedSpacer(4)
		})
	}); err != nil {
		panic(err)
	}
	return rt
}

func TestSnapshot(t *testing.T) {
	w := headless.New()
	composeSample(w, "hello")

	want := []headless.NodeSnapshot{{
		Kind:   "column",
		Scoped: true,
		Children: []headless.NodeSnapshot{
			{Kind: "text", Text: "hello"},
			{Kind: "button", Clickable: true, Children: []headless.NodeSnapshot{
				{Kind: "text", Text: "go"},
			}},
			{Kind: "spacer", Size: 4},
		},
	}}
	if diff := cmp.Diff(want, w.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"hello", "go"}, w.Texts())
}

func TestFingerprint(t *testing.T) {
	a, b, c := headless.New(), headless.New(), headless.New()
	composeSample(a, "same")
	composeSample(b, "same")
	composeSample(c, "different")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestDump(t *testing.T) {
	w := headless.New()
	composeSample(w, `say "hi"`)

	var buf bytes.Buffer
	w.Dump(&buf)
	want := "column [scope]\n" +
		"  text \"say \\\"hi\\\"\"\n" +
		"  button [click]\n" +
		"    text \"go\"\n" +
		"  spacer size=4\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, want, w.String())
}

func TestClick(t *testing.T) {
	w := headless.New()
	rt := compose.New(w)
	clicks := 0
	require.NoError(t, rt.Start(func() {
		compose.Button("press", compose.Style{}, func() { clicks++ })
	}))

	require.NoError(t, w.Click(rt, "press"))
	assert.Equal(t, 1, clicks)
	assert.ErrorIs(t, w.Click(rt, "missing"), headless.ErrNotFound)
}
