package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math"
	"net"
	"os"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"

	"github.com/dayanaadylkhanova/pow-duel/internal/adapter/metrics"
	"github.com/dayanaadylkhanova/pow-duel/internal/adapter/telemetry"
	"github.com/dayanaadylkhanova/pow-duel/internal/adapter/transport/tcp"
	"github.com/dayanaadylkhanova/pow-duel/internal/app"
	"github.com/dayanaadylkhanova/pow-duel/internal/duel"
	"github.com/dayanaadylkhanova/pow-duel/internal/service"
	"github.com/dayanaadylkhanova/pow-duel/pkg/config"
	"github.com/dayanaadylkhanova/pow-duel/pkg/logger"
)

func provideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[config.Config](i)
	return logger.NewJSON(logger.ParseLevel(cfg.LogLevel)), nil
}

func provideRegistry(i do.Injector) (*service.Registry, error) {
	cfg := do.MustInvoke[config.Config](i)
	withDummy := do.MustInvokeNamed[bool](i, "with-dummy")

	solvers := []service.Solver{service.NewPoW(
		service.WithLabel(cfg.PoWLabel),
		service.WithMaxAttempts(cfg.PoWMaxAttempts),
		service.WithWorkers(cfg.PoWWorkers),
	)}
	if withDummy {
		solvers = append(solvers, service.NewDummy())
	}
	return service.NewRegistry(solvers...)
}

func provideCollector(_ do.Injector) (*metrics.Collector, error) {
	return metrics.New(), nil
}

func provideEngine(i do.Injector) (*duel.Engine, error) {
	cfg := do.MustInvoke[config.Config](i)
	reg, err := do.Invoke[*service.Registry](i)
	if err != nil {
		return nil, err
	}
	if _, err := reg.Get(cfg.StartSolver); err != nil {
		return nil, fmt.Errorf("start solver (have %v): %w", reg.Names(), err)
	}
	return duel.New(
		do.MustInvoke[*slog.Logger](i),
		reg,
		duel.Config{StartSolver: cfg.StartSolver, StartDifficulty: cfg.StartDifficulty},
		do.MustInvoke[*metrics.Collector](i),
	), nil
}

// configFrom applies command flags on top of the environment config.
func configFrom(cmd *cli.Command, cfg config.Config) (config.Config, error) {
	d := cmd.Int("difficulty")
	if d < 0 || int64(d) > math.MaxUint32 {
		return config.Config{}, fmt.Errorf("difficulty %d out of range", d)
	}
	cfg.Addr = cmd.String("addr")
	cfg.StartSolver = cmd.String("solver")
	cfg.StartDifficulty = uint32(d)
	cfg.LogLevel = cmd.String("log-level")
	cfg.MetricsAddr = cmd.String("metrics-addr")
	return cfg, nil
}

func background(ctx context.Context, i do.Injector, cfg config.Config) ([]func(context.Context), error) {
	lg := do.MustInvoke[*slog.Logger](i)
	var tasks []func(context.Context)

	if cfg.TelemetryInterval > 0 {
		sampler, err := telemetry.NewProcSampler(ctx)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		tasks = append(tasks, telemetry.NewReporter(lg, cfg.TelemetryInterval, sampler).Run)
	}

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return nil, fmt.Errorf("metrics listen %s: %w", cfg.MetricsAddr, err)
		}
		coll := do.MustInvoke[*metrics.Collector](i)
		lg.Info("metrics listening", "addr", ln.Addr().String())
		tasks = append(tasks, func(ctx context.Context) {
			if err := coll.Serve(ctx, ln); err != nil {
				lg.Error("metrics server stopped", slog.Any("err", err))
			}
		})
	}
	return tasks, nil
}

func runDuel(base config.Config) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		role, err := duel.ParseRole(cmd.Name)
		if err != nil {
			return err
		}
		cfg, err := configFrom(cmd, base)
		if err != nil {
			return err
		}

		i := do.New()
		do.ProvideValue(i, cfg)
		do.ProvideNamedValue(i, "with-dummy", cmd.Bool("with-dummy"))
		do.Provide(i, provideLogger)
		do.Provide(i, provideRegistry)
		do.Provide(i, provideCollector)
		do.Provide(i, provideEngine)

		engine, err := do.Invoke[*duel.Engine](i)
		if err != nil {
			return fmt.Errorf("failed to create duel engine: %w", err)
		}
		lg := do.MustInvoke[*slog.Logger](i)

		var runner app.Runner
		switch role {
		case duel.RoleResponder:
			runner = tcp.NewServer(lg, cfg.Addr, cfg.ShutdownWait, engine, !cmd.Bool("multi"))
		default:
			runner = tcp.NewDialer(lg, cfg.Addr, cfg.DialTimeout, engine)
		}

		tasks, err := background(ctx, i, cfg)
		if err != nil {
			return err
		}
		if err := app.New(runner, tasks...).Run(); err != nil {
			lg.Error("duel stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	}
}

func commonFlags(cfg config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "address to listen on or dial",
			Value: cfg.Addr,
		},
		&cli.IntFlag{
			Name:  "difficulty",
			Usage: "difficulty of the first challenge sent",
			Value: int(cfg.StartDifficulty),
		},
		&cli.StringFlag{
			Name:  "solver",
			Usage: "solver used for the first challenge sent",
			Value: cfg.StartSolver,
		},
		&cli.BoolFlag{
			Name:  "with-dummy",
			Usage: "register the dummy solver",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: cfg.LogLevel,
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve /metrics on this address",
			Value: cfg.MetricsAddr,
		},
	}
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Parse()
	if err != nil {
		log.Fatal(err)
	}

	//nolint:exhaustruct
	cmd := &cli.Command{
		Name:  "duel",
		Usage: "escalating proof-of-work duel between two peers",
		Commands: []*cli.Command{
			{
				Name:  "listen",
				Usage: "wait for an opponent and answer its challenges",
				Flags: append(commonFlags(cfg), &cli.BoolFlag{
					Name:  "multi",
					Usage: "keep accepting opponents after the first duel",
				}),
				Action: runDuel(cfg),
			},
			{
				Name:   "challenge",
				Usage:  "dial an opponent and send the first challenge",
				Flags:  commonFlags(cfg),
				Action: runDuel(cfg),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
