// Package app wires a compose runtime to a renderer, a logger and a frame
// loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/delaneyj/recompose/compose"
	"github.com/delaneyj/recompose/headless"
)

// ErrInitialComposition wraps a panic raised while composing the first frame.
var ErrInitialComposition = errors.New("app: initial composition failed")

type App struct {
	cfg      *Config
	content  func()
	renderer compose.Renderer
	log      *zap.Logger
	rt       *compose.Runtime

	stopOnce sync.Once
	stopCh   chan struct{}
}

type Option func(*App)

// WithRenderer replaces the default headless world.
func WithRenderer(r compose.Renderer) Option {
	return func(a *App) {
		if r != nil {
			a.renderer = r
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// New validates cfg and builds the runtime. A nil cfg means DefaultConfig.
func New(cfg *Config, content func(), opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.New("app: nil content")
	}
	a := &App{
		cfg:     cfg,
		content: content,
		log:     zap.NewNop(),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.renderer == nil {
		a.renderer = headless.New()
	}
	a.rt = compose.New(a.renderer,
		compose.WithLogger(a.log.Named("compose")),
		compose.WithQueueSize(cfg.Frame.QueueSize),
	)
	return a, nil
}

func (a *App) Runtime() *compose.Runtime  { return a.rt }
func (a *App) Renderer() compose.Renderer { return a.renderer }
func (a *App) Config() *Config            { return a.cfg }

// start configures the window and runs the initial composition, turning a
// panic into ErrInitialComposition.
func (a *App) start() (err error) {
	if a.rt.Initialized() {
		return nil
	}
	if wc, ok := a.renderer.(compose.WindowConfigurer); ok {
		w := a.cfg.Window
		wc.ConfigureWindow(w.Title, w.Width, w.Height, w.Resizable)
	}
	compose.SetDefault(a.rt)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInitialComposition, r)
		}
	}()
	if err := a.rt.Start(a.content); err != nil {
		return fmt.Errorf("%w: %w", ErrInitialComposition, err)
	}
	a.log.Info("composition started",
		zap.String("title", a.cfg.Window.Title),
		zap.Int("entities", entityCount(a.renderer)),
	)
	return nil
}

// Run composes the first frame and then runs one frame per interval until
// ctx is done or Stop is called.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(); err != nil {
		return err
	}
	defer a.rt.Close()

	interval := a.cfg.Frame.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("stopping", zap.Error(ctx.Err()))
			return nil
		case <-a.stopCh:
			a.log.Info("stopped")
			return nil
		case <-ticker.C:
			report := a.rt.Frame()
			if report.Duration > interval {
				a.log.Warn("slow frame",
					zap.Duration("took", report.Duration),
					zap.Duration("budget", interval),
				)
			}
		}
	}
}

// Frames composes the first frame if needed and then steps n frames on the
// calling goroutine. It must not be used while Run is active.
func (a *App) Frames(n int) ([]compose.FrameReport, error) {
	if err := a.start(); err != nil {
		return nil, err
	}
	reports := make([]compose.FrameReport, 0, n)
	for i := 0; i < n; i++ {
		reports = append(reports, a.rt.Frame())
	}
	return reports, nil
}

// Click queues a click on e for the next frame. Safe from any goroutine.
func (a *App) Click(ctx context.Context, e compose.EntityID) error {
	return a.rt.Post(ctx, func() {
		if err := a.rt.Dispatch(e); err != nil {
			a.log.Debug("click ignored", zap.Stringer("entity", e), zap.Error(err))
		}
	})
}

// Stop ends Run. It is idempotent.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
}

// Main runs content until interrupted and returns a process exit code.
func Main(cfg *Config, content func(), opts ...Option) int {
	if cfg == nil {
		cfg = defaults()
	}
	log, err := NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer log.Sync()

	a, err := New(cfg, content, append([]Option{WithLogger(log)}, opts...)...)
	if err != nil {
		log.Error("configure", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := a.Run(ctx); err != nil {
		log.Error("run", zap.Error(err))
		return 1
	}
	return 0
}

func entityCount(r compose.Renderer) int {
	if l, ok := r.(interface{ Len() int }); ok {
		return l.Len()
	}
	return -1
}
