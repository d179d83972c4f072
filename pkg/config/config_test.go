package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/overhead/pkg/geo"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://opensky-network.org/api", cfg.OpenSky.BaseURL)
	assert.Equal(t, 15, cfg.OpenSky.TimeoutSeconds)
	assert.False(t, cfg.OpenSky.Retry.Enabled)
	assert.Empty(t, cfg.OpenSky.Username)

	assert.Equal(t, ProviderIP, cfg.Location.Provider)
	assert.Equal(t, 9600, cfg.Location.GPSBaud)
	assert.Equal(t, 10.0, cfg.Area.HalfSideKilometers())
	assert.Equal(t, 15, cfg.Poll.IntervalSeconds)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.True(t, cfg.Display.Log.Enabled)
	assert.False(t, cfg.Display.TUI.Enabled)
	assert.False(t, cfg.Display.Web.Enabled)
	assert.Equal(t, "8080", cfg.Display.Web.Port)
	assert.Equal(t, "overhead/aircraft", cfg.Display.MQTT.Topic)

	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30, cfg.Database.RetentionDays)

	assert.NoError(t, cfg.Validate())
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultConfig().Area, cfg.Area)
}

// TestLoadJSON tests loading a JSON file over the defaults.
func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"location": {"provider": "static", "latitude": 40.0, "longitude": -75.0},
		"area": {"half_side_km": 25},
		"poll": {"interval_seconds": 60}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderStatic, cfg.Location.Provider)
	assert.Equal(t, 40.0, cfg.Location.Latitude)
	assert.Equal(t, -75.0, cfg.Location.Longitude)
	assert.Equal(t, 25.0, cfg.Area.HalfSideKilometers())
	assert.Equal(t, 60, cfg.Poll.IntervalSeconds)

	// Unspecified sections keep their defaults.
	assert.Equal(t, 15, cfg.OpenSky.TimeoutSeconds)
	assert.NoError(t, cfg.Validate())
}

// TestLoadYAML tests loading a YAML file.
func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
opensky:
  retry:
    enabled: true
    max_retries: 5
area:
  half_side_km: 0
  half_side_nm: 10
display:
  mqtt:
    enabled: true
    broker: tcp://localhost:1883
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.OpenSky.Retry.Enabled)
	assert.Equal(t, 5, cfg.OpenSky.Retry.MaxRetries)
	assert.InDelta(t, 18.52, cfg.Area.HalfSideKilometers(), 1e-9)
	assert.True(t, cfg.Display.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.Display.MQTT.Broker)
	assert.Equal(t, "overhead/aircraft", cfg.Display.MQTT.Topic)
}

// TestLoadInvalidJSON tests error handling for malformed config.
func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte("{invalid json"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestSaveConfig tests the Save/Load round trip for both formats.
func TestSaveConfig(t *testing.T) {
	for _, name := range []string{"nested/dir/config.json", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := DefaultConfig()
			cfg.Location.Provider = ProviderStatic
			cfg.Location.Latitude = 51.5
			cfg.Location.Longitude = -0.12
			cfg.Display.Web.Enabled = true

			require.NoError(t, cfg.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Location, loaded.Location)
			assert.True(t, loaded.Display.Web.Enabled)
		})
	}
}

func TestWithoutSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenSky.Username = "user"
	cfg.OpenSky.Password = "pass"
	cfg.Location.GoogleAPIKey = "key"
	cfg.Database.Password = "dbpass"
	cfg.Display.MQTT.Username = "mqtt-user"
	cfg.Display.MQTT.Password = "mqtt-pass"

	clean := cfg.WithoutSecrets()
	assert.Empty(t, clean.OpenSky.Username)
	assert.Empty(t, clean.OpenSky.Password)
	assert.Empty(t, clean.Location.GoogleAPIKey)
	assert.Empty(t, clean.Database.Password)
	assert.Empty(t, clean.Display.MQTT.Password)
	assert.Equal(t, "mqtt-user", clean.Display.MQTT.Username)
	assert.Equal(t, cfg.Poll, clean.Poll)

	// The original is untouched
	assert.Equal(t, "pass", cfg.OpenSky.Password)
	clean.Display.Web.AllowedOrigins[0] = "http://changed"
	assert.Equal(t, "*", cfg.Display.Web.AllowedOrigins[0])
}

// TestEnvironmentOverrides tests that environment variables override config values.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENSKY_USERNAME", "env-user")
	t.Setenv("OPENSKY_PASSWORD", "env-pass")
	t.Setenv("OVERHEAD_GOOGLE_API_KEY", "env-google")
	t.Setenv("OVERHEAD_DB_PASSWORD", "env-db")
	t.Setenv("OVERHEAD_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("OVERHEAD_LOG_LEVEL", "debug")

	cfg, err := Load("/nonexistent/config.json")
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.OpenSky.Username)
	assert.Equal(t, "env-pass", cfg.OpenSky.Password)
	assert.Equal(t, "env-google", cfg.Location.GoogleAPIKey)
	assert.Equal(t, "env-db", cfg.Database.Password)
	assert.Equal(t, "tcp://env:1883", cfg.Display.MQTT.Broker)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// TestLoadDotEnv tests loading credentials from a .env file.
func TestLoadDotEnv(t *testing.T) {
	// Register cleanup for the variable before godotenv sets it.
	t.Setenv("OPENSKY_USERNAME", "")
	os.Unsetenv("OPENSKY_USERNAME")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENSKY_USERNAME=dotenv-user\n"), 0600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "dotenv-user", os.Getenv("OPENSKY_USERNAME"))
}

// TestValidate covers the configuration checks.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Unknown provider", func(c *Config) { c.Location.Provider = "astrolabe" }, "unknown location provider"},
		{"Static out of range", func(c *Config) {
			c.Location.Provider = ProviderStatic
			c.Location.Latitude = 95
		}, "invalid latitude"},
		{"Google without key", func(c *Config) { c.Location.Provider = ProviderGoogle }, "google_api_key"},
		{"GPS without port", func(c *Config) { c.Location.Provider = ProviderGPS }, "gps_port"},
		{"Zero radius", func(c *Config) { c.Area.HalfSideKm = 0 }, "half side"},
		{"Zero interval", func(c *Config) { c.Poll.IntervalSeconds = 0 }, "interval_seconds"},
		{"MQTT without broker", func(c *Config) { c.Display.MQTT.Enabled = true }, "broker"},
		{"MQTT bad qos", func(c *Config) {
			c.Display.MQTT.Enabled = true
			c.Display.MQTT.Broker = "tcp://localhost:1883"
			c.Display.MQTT.QoS = 3
		}, "qos"},
		{"Archive without dir", func(c *Config) {
			c.Display.Archive.Enabled = true
			c.Display.Archive.Dir = ""
		}, "archive.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("Zero radius wraps ErrInvalidRadius", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Area.HalfSideKm = -1
		assert.ErrorIs(t, cfg.Validate(), geo.ErrInvalidRadius)
	})
}
