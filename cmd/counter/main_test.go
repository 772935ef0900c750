package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delaneyj/recompose/app"
	"github.com/delaneyj/recompose/compose"
	"github.com/delaneyj/recompose/headless"
)

func TestStepAlternatesCounters(t *testing.T) {
	world := headless.New()
	var left, right compose.State[int]
	a, err := app.New(nil, func() { counters("demo", left, right) }, app.WithRenderer(world))
	require.NoError(t, err)
	left = compose.NewStateFor(a.Runtime(), 0)
	right = compose.NewStateFor(a.Runtime(), 0)

	require.NoError(t, step(a, world, 3))

	assert.Equal(t, 2, left.GetUntracked())
	assert.Equal(t, 1, right.GetUntracked())
	assert.Equal(t, []string{"demo", "A: 2", "even", "+A", "B: 1", "odd", "+B"}, world.Texts())

	stats := a.Runtime().Stats()
	assert.Zero(t, stats.FullRecompositions, "each click rebuilds only its counter")
	assert.Equal(t, uint64(3), stats.ScopeRebuilds)
}

func TestDefaultLogFormat(t *testing.T) {
	tests := map[string]struct {
		file     string
		terminal bool
		want     string
	}{
		"unset on a terminal":     {file: "[window]\ntitle = \"x\"\n", terminal: true, want: "console"},
		"unset when redirected":   {file: "[window]\ntitle = \"x\"\n", terminal: false, want: "json"},
		"file wins on a terminal": {file: "[logging]\nformat = \"json\"\n", terminal: true, want: "json"},
		"file wins when redirected": {
			file:     "[logging]\nformat = \"console\"\n",
			terminal: false,
			want:     "console",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "counter.toml")
			require.NoError(t, os.WriteFile(path, []byte(tc.file), 0o644))
			cfg, err := app.LoadConfig(path)
			require.NoError(t, err)

			defaultLogFormat(cfg, tc.terminal)
			assert.Equal(t, tc.want, cfg.Logging.Format)
		})
	}
}
