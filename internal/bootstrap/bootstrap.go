// Package bootstrap wires configuration, the backing store, caching and
// locking into the services the binaries run.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/config"
	"github.com/farhaan/fletes-reconcile-system/internal/dashboard"
	"github.com/farhaan/fletes-reconcile-system/internal/dataset"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/auth"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/cache"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/csv"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/lock"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/sheets"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/store"
	"github.com/farhaan/fletes-reconcile-system/internal/infrastructure/xlsx"
	"github.com/farhaan/fletes-reconcile-system/internal/metrics"
)

type Services struct {
	Config    config.Config
	Logger    *logrus.Logger
	Metrics   *metrics.Registry
	Loader    *dataset.Loader
	App       *app.App
	Dashboard *dashboard.Service

	redis *redis.Client
}

// Close releases the connections opened by New.
func (s *Services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
}

// New loads the configuration from the environment and builds every service.
func New(ctx context.Context) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg config.Config) (*Services, error) {
	logger := config.NewLogger(cfg.LogLevel)
	s := &Services{Config: cfg, Logger: logger, Metrics: metrics.NewRegistry()}

	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		c      cache.Cache
		locker lock.Locker = lock.Noop{}
	)
	if cfg.RedisAddress != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddress)
		if err != nil {
			return nil, err
		}
		s.redis = client
		c = cache.NewRedis(client, cfg.CacheTTL)
		locker = lock.NewRedis(client, cfg.LockTTL)
	} else {
		c = cache.NewMemory(cfg.CacheTTL)
	}

	s.Loader = dataset.NewLoader(st, cfg, c, s.Metrics, logger)
	s.App = app.New(s.Loader, locker, s.Metrics, logger)
	s.Dashboard = dashboard.NewService(s.Loader, logger)
	logger.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"redis":   cfg.RedisAddress != "",
		"dry_run": cfg.DryRun,
	}).Info("services ready")
	return s, nil
}

// OpenStore returns the store selected by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		if cfg.CredentialFile != "" {
			return sheets.NewServiceAccountStore(ctx, cfg.CredentialFile, logger)
		}
		creds, err := auth.Load(cfg.TokenJSON, cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		return sheets.NewStore(ctx, creds.TokenSource(ctx, logger), logger)
	case config.BackendXLSX:
		return xlsx.NewStore(cfg.StorePath), nil
	case config.BackendCSV:
		return csv.NewStore(cfg.StorePath, logger), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
