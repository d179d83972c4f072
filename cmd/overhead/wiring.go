package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/internal/db"
	"github.com/unklstewy/overhead/internal/display"
	"github.com/unklstewy/overhead/internal/display/tui"
	"github.com/unklstewy/overhead/internal/display/web"
	"github.com/unklstewy/overhead/pkg/config"
	"github.com/unklstewy/overhead/pkg/geo"
	"github.com/unklstewy/overhead/pkg/location"
	"github.com/unklstewy/overhead/pkg/opensky"
)

// newLocator builds the configured location provider, cached when
// cache_minutes is positive.
func newLocator(cfg config.LocationConfig, logger zerolog.Logger) (location.Provider, error) {
	var p location.Provider
	switch cfg.Provider {
	case config.ProviderStatic:
		s, err := location.NewStatic(geo.Position{Latitude: cfg.Latitude, Longitude: cfg.Longitude})
		if err != nil {
			return nil, err
		}
		// A fixed position needs no cache.
		return s, nil
	case config.ProviderIP:
		p = location.NewIPProvider(cfg.IPLookupURL, logger)
	case config.ProviderGoogle:
		g, err := location.NewGoogleProvider(cfg.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		p = g
	case config.ProviderGPS:
		p = location.NewGPSProvider(cfg.GPSPort, cfg.GPSBaud)
	default:
		return nil, fmt.Errorf("unknown location provider %q", cfg.Provider)
	}

	if cfg.CacheMinutes > 0 {
		p = location.NewCached(p, time.Duration(cfg.CacheMinutes)*time.Minute, logger)
	}
	return p, nil
}

// newClient builds the OpenSky client.
func newClient(cfg config.OpenSkyConfig, logger zerolog.Logger) *opensky.Client {
	return opensky.NewClient(opensky.Config{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, logger)
}

// retryConfig returns the retry policy, or nil when retries are disabled.
func retryConfig(cfg config.RetryConfig) *opensky.RetryConfig {
	if !cfg.Enabled {
		return nil
	}
	rc := opensky.DefaultRetryConfig()
	rc.MaxRetries = cfg.MaxRetries
	if cfg.InitialDelaySeconds > 0 {
		rc.InitialDelay = time.Duration(cfg.InitialDelaySeconds * float64(time.Second))
	}
	if cfg.MaxDelaySeconds > 0 {
		rc.MaxDelay = time.Duration(cfg.MaxDelaySeconds * float64(time.Second))
	}
	return &rc
}

// writeConfig saves cfg to path without credentials.
func writeConfig(cfg *config.Config, path string) error {
	if err := cfg.WithoutSecrets().Save(path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

// sinkSet is the set of enabled sinks. quit is closed when the terminal UI
// exits and is nil without one.
type sinkSet struct {
	sinks []display.Sink
	quit  <-chan struct{}
}

// newSinks builds every enabled sink. Sinks built before a failure are closed.
func newSinks(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sinkSet, error) {
	set := &sinkSet{}
	fail := func(err error) (*sinkSet, error) {
		display.CloseAll(set.sinks)
		return nil, err
	}

	// Read side of the database, served by the web display.
	var history *db.History

	if cfg.Display.Log.Enabled {
		set.sinks = append(set.sinks, display.NewLogSink(logger))
	}

	if cfg.Display.Archive.Enabled {
		a, err := display.NewArchiveSink(cfg.Display.Archive.Dir, logger)
		if err != nil {
			return fail(err)
		}
		set.sinks = append(set.sinks, a)
	}

	if cfg.Display.MQTT.Enabled {
		m, err := display.NewMQTTSink(cfg.Display.MQTT, logger)
		if err != nil {
			return fail(err)
		}
		set.sinks = append(set.sinks, m)
	}

	if cfg.Database.Enabled {
		database, err := db.ConnectWithRetry(ctx, cfg.Database, 5, 2*time.Second, logger)
		if err != nil {
			return fail(err)
		}
		if err := database.InitSchema(ctx); err != nil {
			database.Close()
			return fail(err)
		}
		retention := time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour
		set.sinks = append(set.sinks, db.NewHistorySink(database, retention, logger))
		history = db.NewHistory(database)
	}

	if cfg.Display.Web.Enabled {
		w := web.New(cfg.Display.Web, logger)
		if history != nil {
			w.SetHistory(history)
		}
		if err := w.Start(); err != nil {
			return fail(err)
		}
		set.sinks = append(set.sinks, w)
	}

	// Started last so a failure above does not leave the terminal in raw mode.
	if cfg.Display.TUI.Enabled {
		t := tui.New()
		set.sinks = append(set.sinks, t)
		set.quit = t.Done()
	}

	return set, nil
}
