package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/overhead/internal/display"
	"github.com/unklstewy/overhead/internal/flow"
	"github.com/unklstewy/overhead/internal/logging"
	"github.com/unklstewy/overhead/pkg/config"
)

// overhead periodically looks up where it is, asks the OpenSky Network which
// aircraft are flying nearby and shows them on the enabled displays.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file (.json, .yaml)")
	envPath := flag.String("env", ".env", "Path to .env file with credentials")
	once := flag.Bool("once", false, "Run a single poll cycle and exit")
	writePath := flag.String("write-config", "", "Write the effective configuration (without credentials) to this path and exit")
	flag.Parse()

	if err := run(*configPath, *envPath, *writePath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "overhead: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath, writePath string, once bool) error {
	if err := config.LoadDotEnv(envPath); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if writePath != "" {
		if err := writeConfig(cfg, writePath); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", writePath)
		return nil
	}

	// The terminal UI owns the screen; logs then go to the log file only.
	var console io.Writer = os.Stderr
	if cfg.Display.TUI.Enabled {
		console = io.Discard
	}
	log, err := logging.NewWithWriter(cfg.Log, console)
	if err != nil {
		return err
	}
	defer log.Close()
	logger := log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	locator, err := newLocator(cfg.Location, logger)
	if err != nil {
		return fmt.Errorf("failed to create location provider: %w", err)
	}

	client := newClient(cfg.OpenSky, logger)
	if !client.Authenticated() {
		logger.Warn().Msg("No OpenSky credentials; using anonymous access")
	}

	sinks, err := newSinks(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create displays: %w", err)
	}
	defer func() {
		if err := display.CloseAll(sinks.sinks); err != nil {
			logger.Error().Err(err).Msg("Failed to close displays")
		}
	}()

	job := &flow.Job{
		Locator:    locator,
		Client:     client,
		HalfSideKm: cfg.Area.HalfSideKilometers(),
		Sinks:      sinks.sinks,
		Interval:   time.Duration(cfg.Poll.IntervalSeconds) * time.Second,
		Retry:      retryConfig(cfg.OpenSky.Retry),
		Logger:     logger,
	}

	logger.Info().
		Str("config", configPath).
		Str("provider", cfg.Location.Provider).
		Float64("half_side_km", job.HalfSideKm).
		Bool("authenticated", client.Authenticated()).
		Dur("rate_limit", client.StatesInterval()).
		Int("sinks", len(sinks.sinks)).
		Msg("Starting overhead")

	if once {
		_, err := job.RunOnce(ctx)
		return err
	}

	if sinks.quit != nil {
		go func() {
			select {
			case <-sinks.quit:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	err = job.Run(ctx)
	logger.Info().Msg("Shut down")
	return err
}
