package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/streak/internal/config"
	"github.com/goodtune/streak/internal/metrics"
	"github.com/goodtune/streak/internal/systemd"
	"github.com/goodtune/streak/internal/timer"
	"github.com/goodtune/streak/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the streak server",
	Long:  `Start the streak timer with its web page, JSON API and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting streak")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var observers []func(timer.Change)
	if cfg.Server.MetricsEnabled {
		observers = append(observers, metrics.ObserveChange)
	}

	counter, err := mountWidget(ctx, cfg, logger, metrics.PersistObserver{}, observers...)
	if err != nil {
		return fmt.Errorf("failed to initialize timer: %w", err)
	}

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Str("reset_policy", cfg.Timer.ResetPolicy).
		Bool("autostart", cfg.Timer.Autostart).
		Dur("tick_interval", cfg.Timer.Interval()).
		Msg("Timer mounted")

	// Initialize Web Server
	webConfig := web.Config{
		ListenAddr:     fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.HTTPPort),
		RateLimit:      cfg.Server.RateLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	webServer, err := web.NewServer(webConfig, counter, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize web server: %w", err)
	}

	// Use systemd socket-activated listener if available
	if sdListeners.Activated && sdListeners.HTTP != nil {
		webServer.SetListener(sdListeners.HTTP)
	}

	if err := webServer.Start(); err != nil {
		return fmt.Errorf("failed to start web server: %w", err)
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Server.MetricsEnabled {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}
	}

	logger.Info().Msg("streak startup complete")
	logger.Info().Msgf("Web UI: http://%s", webConfig.ListenAddr)
	if metricsServer != nil {
		logger.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	}

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	go runWatchdog(ctx, logger)

	// Wait for signals (shutdown or reload)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		sig := <-sigChan

		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, reloading log level...")
			reloadLogLevel(logger)
			continue
		}

		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if err := webServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping web server")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	unmountCtx, unmountCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer unmountCancel()

	final := counter.Snapshot()
	if err := counter.Unmount(unmountCtx); err != nil {
		logger.Error().Err(err).Msg("Error flushing timer to storage")
	}

	logger.Info().Int64("seconds", final.Seconds).Msg("streak stopped")

	return nil
}

// reloadLogLevel re-reads the configuration file and applies its log level.
// Other settings need a restart.
func reloadLogLevel(logger zerolog.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reload configuration")
		return
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Logging.Level))
	logger.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
}

// runWatchdog pings the systemd watchdog until ctx is done.
func runWatchdog(ctx context.Context, logger zerolog.Logger) {
	interval, err := systemd.WatchdogInterval()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read systemd watchdog settings")
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := systemd.NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Failed to send systemd watchdog notification")
			}
		}
	}
}
