package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenhq/sentinel/pkg/config"
	"github.com/lumenhq/sentinel/pkg/detect"
	"github.com/lumenhq/sentinel/pkg/limits"
	"github.com/lumenhq/sentinel/pkg/limits/storage"
	"github.com/lumenhq/sentinel/pkg/monitor"
	"github.com/lumenhq/sentinel/pkg/monitor/leader"
	"github.com/lumenhq/sentinel/pkg/proxy"
	"github.com/lumenhq/sentinel/pkg/server"
	"github.com/lumenhq/sentinel/pkg/telemetry/logging"
	"github.com/lumenhq/sentinel/pkg/telemetry/metrics"
	"github.com/lumenhq/sentinel/pkg/tokens"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway with the specified configuration.

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Override listen address
  sentinel run --listen 0.0.0.0:8080

  # Validate config without starting
  sentinel run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store := config.NewStore(cfg)

	// Watch the config file so rate limit changes apply live.
	if _, err := os.Stat(cfgFile); err == nil {
		watcher, err := config.NewWatcher(cfgFile, store, logger)
		if err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("config watcher stopped", slog.Any("error", err))
			}
		}()
		defer watcher.Stop()
	}

	backend, err := newQuotaBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("quota backend: %w", err)
	}
	defer backend.Close()

	tokenStore, err := tokens.NewStore(cfg.Tokens.DBPath)
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	defer tokenStore.Close()

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	limiterMetrics := limits.NewMetrics(cfg.Telemetry.Metrics.Namespace, collector.Registry())
	limiter := limits.NewLimiter(store, backend, tokenStore, limiterMetrics, logger)

	detector := detect.NewClient(detect.ClientConfig{
		BaseURL: cfg.Detector.BaseURL,
		Timeout: cfg.Detector.Timeout.Std(),
	})

	netdataProxy, err := proxy.New(proxy.Config{
		UpstreamBaseURL: cfg.Netdata.BaseURL,
		MountPrefix:     cfg.Netdata.MountPrefix,
		Timeout:         cfg.Netdata.Timeout.Std(),
		Metrics:         proxy.NewMetrics(cfg.Telemetry.Metrics.Namespace, collector.Registry()),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("netdata proxy: %w", err)
	}

	monitorMetrics := monitor.NewMetrics(cfg.Telemetry.Metrics.Namespace, collector.Registry())
	stopMonitor := startMonitor(ctx, cfg, monitorMetrics, logger)
	defer stopMonitor()

	srv := server.NewServer(store, server.Dependencies{
		Limiter:      limiter,
		Tokens:       tokenStore,
		Detector:     detector,
		Collector:    collector,
		NetdataProxy: netdataProxy,
		Logger:       logger,
	})
	return srv.Start(ctx)
}

func newQuotaBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Limits.Backend {
	case "redis":
		return storage.NewRedisBackend(ctx, storage.RedisBackendConfig{
			Addr:     cfg.Limits.Redis.Addr,
			Password: cfg.Limits.Redis.Password,
			DB:       cfg.Limits.Redis.DB,
		})
	default:
		return storage.NewMemoryBackendWithConfig(storage.MemoryBackendConfig{
			Retention:     cfg.Limits.Memory.IdleEviction.Std(),
			SweepSchedule: cfg.Limits.Memory.SweepSchedule,
		})
	}
}

// startMonitor launches the stress monitor when configured, guarded by
// the host-wide leader lock so only one process per machine polls and
// notifies. Losing the election is normal when several instances share
// a host. The returned stop function cancels the loop, waits for it to
// finish, and releases the lock; it must run before process exit.
func startMonitor(ctx context.Context, cfg *config.Config, monitorMetrics *monitor.Metrics, logger *slog.Logger) func() {
	if !cfg.Monitor.Enabled || cfg.Monitor.NotifyURL == "" {
		return func() {}
	}

	lock, err := leader.TryAcquire(cfg.Monitor.LockPath)
	if err != nil {
		if errors.Is(err, leader.ErrNotLeader) {
			logger.Info("monitor leadership held by another process",
				slog.String("lock_path", cfg.Monitor.LockPath))
		} else {
			logger.Error("monitor leader lock", slog.Any("error", err))
		}
		return func() {}
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m := monitor.New(cfg.Monitor, cfg.Netdata.BaseURL, monitorMetrics, logger)
	go func() {
		defer close(done)
		m.Run(monitorCtx)
	}()

	return func() {
		cancel()
		<-done
		if err := lock.Release(); err != nil {
			logger.Error("release monitor leader lock", slog.Any("error", err))
		}
	}
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		// No config file is fine; defaults plus env overrides apply.
		cfg := config.NewDefault()
		config.ApplyEnvOverrides(cfg)
		return cfg, nil
	}
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	return cfg, nil
}
