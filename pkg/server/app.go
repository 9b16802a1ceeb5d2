package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	applogger "EthTicker/pkg/logger"
)

// Runner is a long-lived component that blocks until ctx ends or it fails.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// App runs a set of components until SIGINT/SIGTERM or the first failure, then
// releases its resources in reverse order.
type App struct {
	name    string
	l       *applogger.Logger
	runners []Runner
	closers []io.Closer
	signals []os.Signal
}

// New creates an App named name.
func New(name string, l *applogger.Logger) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{name: name, l: l, signals: []os.Signal{os.Interrupt, syscall.SIGTERM}}
}

// Add registers a component. Nil runners are skipped.
func (a *App) Add(r Runner) *App {
	if r != nil {
		a.runners = append(a.runners, r)
	}
	return a
}

// OnClose registers a resource released after every component has returned.
func (a *App) OnClose(c io.Closer) *App {
	if c != nil {
		a.closers = append(a.closers, c)
	}
	return a
}

// Run blocks until interrupted, ctx ends or a component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, a.signals...)
	defer stop()

	a.l.Info("app starting", applogger.String("app", a.name), applogger.Int("components", len(a.runners)))

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range a.runners {
		g.Go(func() error { return r.Run(gctx) })
	}
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.l.Error("app component failed", applogger.String("app", a.name), applogger.Error(err))
	} else {
		err = nil
		a.l.Info("shutdown signal received", applogger.String("app", a.name))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil {
			a.l.Warn("close error", applogger.String("app", a.name), applogger.Error(cerr))
		}
	}
	a.l.Info("shutdown complete", applogger.String("app", a.name))
	return err
}
