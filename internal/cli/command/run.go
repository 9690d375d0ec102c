package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/herdsman/internal/infra/confloader"
	"github.com/yndnr/herdsman/internal/infra/shutdown"
	"github.com/yndnr/herdsman/internal/master"
	"github.com/yndnr/herdsman/internal/server/httpserver"
	"github.com/yndnr/herdsman/internal/storage"
	"github.com/yndnr/herdsman/internal/telemetry/metric"
)

// RunCommand keeps the configuration applied until the process is told to
// stop.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Apply the configuration and reload it on SIGHUP, file change or POST /reload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "http-addr",
				Aliases: []string{"metrics-addr"},
				Usage:   "Address serving /metrics, /status, /history and /reload; empty disables",
				Value:   "127.0.0.1:9464",
			},
			&cli.StringFlag{
				Name:  "state-dir",
				Usage: "Directory keeping the history of applied generations; empty disables",
			},
			&cli.IntFlag{
				Name:  "history-retain",
				Usage: "Number of generations kept in the history",
				Value: storage.DefaultConfig("").Retain,
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload when the configuration script changes",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "watch-interval",
				Usage: "Shortest gap between watcher-triggered reloads",
				Value: confloader.DefaultMinInterval,
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Time allowed for shutdown and reload hooks",
				Value: 10 * time.Second,
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	log := GetLogger(c)

	cfg, err := newConfigurator(c)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(c.Duration("shutdown-timeout"))
	h.SetLogger(log)

	reg := metric.NewRegistry()
	opts := []master.Option{master.WithMetrics(reg), master.WithLogger(log)}

	if dir := c.String("state-dir"); dir != "" {
		storeCfg := storage.DefaultConfig(dir)
		storeCfg.Retain = c.Int("history-retain")
		store, err := storage.Open(storeCfg, log)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		if err := store.RegisterMetrics(reg.Registerer()); err != nil {
			store.Close()
			return err
		}
		// Registered first so it closes last, after every reload source.
		h.OnShutdown(func(context.Context) error {
			return store.Close()
		})
		opts = append(opts, master.WithHistory(store))
	}

	m := master.New(cfg, opts...)
	if err := m.Start(); err != nil {
		h.Shutdown()
		return err
	}

	h.OnReload(func(ctx context.Context) error {
		return m.Reload(master.TriggerSignal)
	})
	h.OnShutdown(func(ctx context.Context) error {
		if l := m.Logger(); l != nil {
			return l.Close()
		}
		return nil
	})

	if addr := c.String("http-addr"); addr != "" {
		routerCfg := httpserver.DefaultRouterConfig()
		routerCfg.Master = m
		routerCfg.Metrics = reg.Handler()
		routerCfg.Logger = log

		srv := httpserver.New(addr, httpserver.NewRouter(routerCfg), log)
		if err := srv.Start(); err != nil {
			h.Shutdown()
			return err
		}
		h.OnShutdown(srv.Shutdown)
	}

	if c.Bool("watch") && cfg.ConfigFile() != "" {
		w, err := confloader.NewWatcher(
			confloader.WithWatcherLogger(log),
			confloader.WithMinInterval(c.Duration("watch-interval")),
		)
		if err != nil {
			h.Shutdown()
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Watch(cfg.ConfigFile()); err != nil {
			w.Stop()
			h.Shutdown()
			return fmt.Errorf("watch %s: %w", cfg.ConfigFile(), err)
		}
		w.OnChange(func(string) {
			if _, err := m.ReloadIfChanged(master.TriggerWatch); err != nil {
				log.Error("reload failed", "trigger", master.TriggerWatch, "error", err)
			}
		})
		w.StartAsync()
		h.OnShutdown(func(context.Context) error {
			return w.Stop()
		})
	}

	s := m.Snapshot()
	log.Info("herdsman running",
		"generation", s.Generation,
		"worker_processes", s.WorkerProcesses,
		"listeners", s.Listeners,
	)

	if err := h.WaitContext(c.Context); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("herdsman stopped")
	return nil
}
