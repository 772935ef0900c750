package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/delaneyj/recompose/compose"
	"github.com/delaneyj/recompose/headless"
)

var (
	ww    = []int{1, 10, 100}
	hh    = []int{1, 10, 50}
	iters = flag.Int("iters", 100, "frames measured per topology")
	prof  = flag.String("cpuprofile", "", "write a cpu profile to this file")
)

func main() {
	flag.Parse()

	if *prof != "" {
		f, err := os.Create(*prof)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	benchmarkRebuild("granular", granular, false)
	benchmarkRebuild("full", full, false)

	benchmarkRebuild("granular", granular, true)
	benchmarkRebuild("full", full, true)
}

// topology is w columns, each h scopes deep, with one state read at the
// bottom of every column.
type topology struct {
	rt     *compose.Runtime
	world  *headless.World
	states []compose.State[int]
}

func build(w, h int) *topology {
	world := headless.New()
	rt := compose.New(world)
	t := &topology{rt: rt, world: world}
	for i := 0; i < w; i++ {
		t.states = append(t.states, compose.NewStateFor(rt, 0))
	}

	var nest func(depth int, s compose.State[int])
	nest = func(depth int, s compose.State[int]) {
		if depth == 0 {
			compose.Text(strconv.Itoa(s.Get()), compose.Body)
			return
		}
		compose.Scope(func() { nest(depth-1, s) })
	}
	if err := rt.Start(func() {
		compose.Row(compose.Style{}, func() {
			for _, s := range t.states {
				compose.Column(compose.Style{}, func() { nest(h, s) })
			}
		})
	}); err != nil {
		log.Fatal(err)
	}
	return t
}

func granular(t *topology, i int) {
	s := t.states[i%len(t.states)]
	s.Set(s.GetUntracked() + 1)
}

func full(t *topology, _ int) {
	t.rt.MarkDirty(compose.Root)
}

func benchmarkRebuild(name string, dirty func(*topology, int), shouldRender bool) {
	tbl := table.NewWriter()
	tbl.SetTitle("Recomposition: " + name)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"topology", "entities", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			t := build(w, h)
			tach := tachymeter.New(&tachymeter.Config{Size: *iters})

			for i := 0; i < *iters; i++ {
				dirty(t, i)
				start := time.Now()
				t.rt.Frame()
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRow(table.Row{
				fmt.Sprintf("%d * %d", w, h),
				t.world.Len(),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}
