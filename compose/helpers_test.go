package compose_test

import (
	"strconv"
	"testing"

	"github.com/delaneyj/recompose/compose"
	"github.com/delaneyj/recompose/headless"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T) (*compose.Runtime, *headless.World) {
	t.Helper()
	world := headless.New()
	rt := compose.New(world)
	t.Cleanup(func() {
		require.False(t, rt.Composing(), "test left a pass open")
	})
	return rt, world
}

func start(t *testing.T, rt *compose.Runtime, content func()) {
	t.Helper()
	require.NoError(t, rt.Start(content))
}

// panicErr runs fn and returns the error it panicked with.
func panicErr(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(error)
		require.Truef(t, ok, "panic value %v is not an error", r)
		err = e
	}()
	fn()
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func showInt(s compose.State[int]) {
	compose.Text(itoa(s.Get()), compose.Body)
}
