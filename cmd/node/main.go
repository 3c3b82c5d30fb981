package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/crypto-node/cryptonode/internal/bandwidth"
	"github.com/crypto-node/cryptonode/internal/config"
	"github.com/crypto-node/cryptonode/internal/infra"
	"github.com/crypto-node/cryptonode/internal/ledger"
	"github.com/crypto-node/cryptonode/internal/logging"
	"github.com/crypto-node/cryptonode/internal/server"
	"github.com/crypto-node/cryptonode/internal/settings"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// The device settings document, when configured, overrides the engine
	// tunables taken from the environment.
	if cfg.SettingsPath != "" {
		mgr, err := settings.Open(cfg.SettingsPath)
		if err != nil {
			logger.Error("open settings", "path", cfg.SettingsPath, "error", err)
			os.Exit(1)
		}
		s := mgr.Get()
		cfg.Currency = s.Currency
		cfg.RewardRate = s.RewardRate
		cfg.MinBandwidth = s.MinBandwidth
		cfg.MeasurementInterval = time.Duration(s.IntervalSeconds) * time.Second
		logger.Info("settings loaded", "path", mgr.Path(), "device", s.DeviceName)
	}

	var store ledger.Store
	if cfg.DatabaseURL != "" {
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = ledger.NewPostgres(db)
	} else {
		store = ledger.NewMemory()
		logger.Info("no DATABASE_URL set, using in-memory store")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	monitor, err := bandwidth.NewMonitor(bandwidth.Config{
		Logger:       logger,
		Store:        store,
		Interval:     cfg.MeasurementInterval,
		RewardRate:   cfg.RewardRate,
		MinBandwidth: cfg.MinBandwidth,
	})
	if err != nil {
		logger.Error("build monitor", "error", err)
		os.Exit(1)
	}
	defer monitor.Close()

	if err := bootstrapWallet(ctx, cfg, store, monitor, logger); err != nil {
		logger.Error("bootstrap wallet", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, store, monitor, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("node exited cleanly")
}

// bootstrapWallet creates a default wallet when the store is empty, then
// starts bandwidth monitoring for every wallet.
func bootstrapWallet(ctx context.Context, cfg config.Config, store ledger.Store, monitor *bandwidth.Monitor, logger *slog.Logger) error {
	wallets, err := store.ListWallets(ctx)
	if err != nil {
		return err
	}

	if len(wallets) == 0 {
		wallet, err := store.CreateWallet(ctx, ledger.Currency(cfg.Currency))
		if err != nil {
			return err
		}
		logger.Info("created default wallet", "wallet_id", wallet.ID, "address", wallet.Address)
		wallets = append(wallets, wallet)
	}

	for _, w := range wallets {
		if err := monitor.StartMonitoring(ctx, w.ID); err != nil {
			return err
		}
	}
	return nil
}
