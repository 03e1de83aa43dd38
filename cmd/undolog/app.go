package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/config"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/aretw0/undolog/internal/logging"
	httpAdapter "github.com/aretw0/undolog/pkg/adapters/http"
	"github.com/aretw0/undolog/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/undolog/pkg/adapters/redis"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/aretw0/undolog/pkg/observability"
	"github.com/aretw0/undolog/pkg/ports"
	"github.com/aretw0/undolog/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app holds everything a command needs, built from config and flags.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	journal  ports.Journal
	streams  *httpAdapter.StreamManager
	sessions *session.Manager[*demo.Session]
	closers  []func() error
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Log.Format)),
		registry: prometheus.NewRegistry(),
	}
	a.streams = httpAdapter.NewStreamManager(a.logger)

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(a.registry, cfg.Metrics.Namespace)
	if err != nil {
		return nil, err
	}

	sessionOpts := []session.Option{
		session.WithLogger(a.logger),
		session.WithOnDelete(metrics.Forget),
	}

	switch cfg.Journal.Driver {
	case config.DriverMemory:
		a.journal = memory.NewJournal(int(cfg.Journal.MaxLen))
	case config.DriverRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Journal.Addr,
			Password: cfg.Journal.Password,
			DB:       cfg.Journal.DB,
		})
		journal := redisAdapter.NewFromClient(client,
			redisAdapter.WithPrefix(cfg.Journal.Prefix),
			redisAdapter.WithMaxLen(cfg.Journal.MaxLen),
		)
		if err := journal.Ping(cmd.Context()); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis journal at %s: %w", cfg.Journal.Addr, err)
		}
		a.journal = journal
		a.closers = append(a.closers, client.Close)
		if cfg.Journal.Lock {
			sessionOpts = append(sessionOpts, session.WithLocker(redisAdapter.NewLocker(client)))
		}
		a.logger.Info("Journal connected", "driver", "redis", "addr", cfg.Journal.Addr)
	}

	hooks := []domain.LifecycleHooks{metrics.Hooks(), a.streams.Hooks()}
	if a.journal != nil {
		hooks = append(hooks, observability.JournalHooks(a.journal, a.logger))
	}
	logOpts := []undolog.Option{
		undolog.WithLogger(a.logger),
		undolog.WithLifecycleHooks(domain.CombineHooks(hooks...)),
	}

	a.sessions = session.NewManager(func(id string) (*demo.Session, error) {
		return demo.NewSession(id, logOpts...), nil
	}, sessionOpts...)
	return a, nil
}

// Close finalizes every session and releases backend connections.
func (a *app) Close(ctx context.Context) error {
	errs := []error{a.sessions.Close(ctx)}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
