package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/delaneyj/recompose/app"
	"github.com/delaneyj/recompose/compose"
	"github.com/delaneyj/recompose/headless"
)

const (
	configKey    = "config"
	titleKey     = "title"
	widthKey     = "width"
	heightKey    = "height"
	resizableKey = "resizable"
	framesKey    = "frames"
	logLevelKey  = "log-level"
	dumpKey      = "dump"
)

func main() {
	cmd := &cli.Command{
		Name:  "counter",
		Usage: "Two independent counters recomposed one scope at a time",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "TOML or YAML config file",
			},
			&cli.StringFlag{
				Name:  titleKey,
				Usage: "Window title",
			},
			&cli.UintFlag{
				Name:  widthKey,
				Usage: "Window width",
			},
			&cli.UintFlag{
				Name:  heightKey,
				Usage: "Window height",
			},
			&cli.BoolFlag{
				Name:  resizableKey,
				Usage: "Allow the window to be resized",
				Value: true,
			},
			&cli.UintFlag{
				Name:  framesKey,
				Usage: "Step this many frames headlessly, clicking a counter each frame, then exit; 0 runs until interrupted",
			},
			&cli.StringFlag{
				Name:  logLevelKey,
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  dumpKey,
				Usage: "Print the entity tree on exit",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cmd *cli.Command) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if path := cmd.String(configKey); path != "" {
		loaded, err := app.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.IsSet(titleKey) {
		cfg.Window.Title = cmd.String(titleKey)
	}
	if cmd.IsSet(widthKey) {
		cfg.Window.Width = uint32(cmd.Uint(widthKey))
	}
	if cmd.IsSet(heightKey) {
		cfg.Window.Height = uint32(cmd.Uint(heightKey))
	}
	if cmd.IsSet(resizableKey) {
		cfg.Window.Resizable = cmd.Bool(resizableKey)
	}
	if cmd.IsSet(logLevelKey) {
		cfg.Logging.Level = cmd.String(logLevelKey)
	}
	fd := os.Stderr.Fd()
	defaultLogFormat(cfg, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
	return cfg, cfg.Validate()
}

// defaultLogFormat picks json for redirected stderr unless the config file
// chose a format.
func defaultLogFormat(cfg *app.Config, terminal bool) {
	if cfg.Logging.Format != "" {
		return
	}
	if terminal {
		cfg.Logging.Format = "console"
	} else {
		cfg.Logging.Format = "json"
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	world := headless.New()
	var left, right compose.State[int]
	a, err := app.New(cfg, func() { counters(cfg.Window.Title, left, right) },
		app.WithRenderer(world),
		app.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	left = compose.NewStateFor(a.Runtime(), 0)
	right = compose.NewStateFor(a.Runtime(), 0)

	start := time.Now()
	if frames := int(cmd.Uint(framesKey)); frames > 0 {
		if err := step(a, world, frames); err != nil {
			return err
		}
	} else {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		if err := a.Run(ctx); err != nil {
			return err
		}
	}

	logger.Info("done",
		zap.Int("left", left.GetUntracked()),
		zap.Int("right", right.GetUntracked()),
		zap.Duration("took", time.Since(start)),
	)
	if cmd.Bool(dumpKey) {
		world.Dump(os.Stdout)
	}
	printStats(a.Runtime().Stats(), world)
	return nil
}

// step alternates clicks between the two counters, one per frame.
func step(a *app.App, world *headless.World, frames int) error {
	if _, err := a.Frames(0); err != nil {
		return err
	}
	labels := [...]string{"+A", "+B"}
	for i := 0; i < frames; i++ {
		if err := world.Click(a.Runtime(), labels[i%len(labels)]); err != nil {
			return err
		}
		if _, err := a.Frames(1); err != nil {
			return err
		}
	}
	return nil
}

func counters(title string, left, right compose.State[int]) {
	compose.Column(compose.Style{Padding: 16, Gap: 8, FillMaxSize: true}, func() {
		compose.Text(title, compose.Title)
		compose.Row(compose.Style{Gap: 16}, func() {
			counter("A", left)
			counter("B", right)
		})
	})
}

func counter(name string, count compose.State[int]) {
	compose.Column(compose.Style{Padding: 8, Gap: 4, Background: "#202020"}, func() {
		n := count.Get()
		compose.Text(fmt.Sprintf("%s: %d", name, n), compose.Body)
		compose.IfElse(n%2 == 0,
			func() { compose.Text("even", compose.Body) },
			func() { compose.Text("odd", compose.Body) },
		)
		compose.Button("+"+name, compose.Style{}, func() { compose.Increment(count) })
	})
}

func printStats(stats compose.Stats, world *headless.World) {
	spawned, despawned := world.Churn()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"stat", "value"})
	table.AppendBulk([][]string{
		{"frames", humanize.Comma(int64(stats.Frames))},
		{"idle frames", humanize.Comma(int64(stats.IdleFrames))},
		{"full recompositions", humanize.Comma(int64(stats.FullRecompositions))},
		{"scope rebuilds", humanize.Comma(int64(stats.ScopeRebuilds))},
		{"scopes dropped", humanize.Comma(int64(stats.ScopesDropped))},
		{"dispatches", humanize.Comma(int64(stats.Dispatches))},
		{"entities spawned", humanize.Comma(int64(spawned))},
		{"entities despawned", humanize.Comma(int64(despawned))},
		{"live entities", humanize.Comma(int64(world.Len()))},
	})
	table.Render()
}
