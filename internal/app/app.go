package app

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
)

// App runs the duel runner with optional side tasks (telemetry, metrics)
// that share its lifetime but not its state.
type App struct {
	srv        Runner
	background []func(ctx context.Context)
}

func New(srv Runner, background ...func(ctx context.Context)) *App {
	return &App{srv: srv, background: background}
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext returns when the runner does; side tasks are cancelled and
// awaited first.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, task := range a.background {
		wg.Go(func() { task(ctx) })
	}

	err := a.srv.Run(ctx)
	cancel()
	wg.Wait()
	return err
}
