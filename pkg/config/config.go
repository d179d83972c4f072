package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/unklstewy/overhead/pkg/geo"
)

// Config represents the complete application configuration.
// Configuration is loaded from a JSON or YAML file; secrets are normally
// supplied through the environment.
type Config struct {
	OpenSky  OpenSkyConfig  `json:"opensky" yaml:"opensky"`
	Location LocationConfig `json:"location" yaml:"location"`
	Area     AreaConfig     `json:"area" yaml:"area"`
	Poll     PollConfig     `json:"poll" yaml:"poll"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Display  DisplayConfig  `json:"display" yaml:"display"`
	Database DatabaseConfig `json:"database" yaml:"database"`
}

// OpenSkyConfig contains OpenSky Network API settings.
type OpenSkyConfig struct {
	// BaseURL is the API base URL (default: https://opensky-network.org/api)
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Username for authenticated access (should be loaded from environment)
	// Leaving either Username or Password empty selects anonymous mode,
	// which has a 10 second instead of 5 second rate limit.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`

	// Password for authenticated access (should be loaded from environment)
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// TimeoutSeconds bounds each request (default: 15)
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`

	// Retry configures the optional retry policy around each poll
	Retry RetryConfig `json:"retry" yaml:"retry"`
}

// RetryConfig controls retries of failed OpenSky requests.
// Only timeouts, 429 and 5xx responses are retried.
type RetryConfig struct {
	Enabled             bool    `json:"enabled" yaml:"enabled"`
	MaxRetries          int     `json:"max_retries" yaml:"max_retries"`
	InitialDelaySeconds float64 `json:"initial_delay_seconds" yaml:"initial_delay_seconds"`
	MaxDelaySeconds     float64 `json:"max_delay_seconds" yaml:"max_delay_seconds"`
}

// LocationConfig selects how the observer position is determined.
type LocationConfig struct {
	// Provider is one of "ip", "static", "google" or "gps"
	Provider string `json:"provider" yaml:"provider"`

	// Latitude/Longitude are used by the static provider, in decimal degrees
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`

	// IPLookupURL is the IP geolocation endpoint (default: http://ip-api.com/json/)
	IPLookupURL string `json:"ip_lookup_url" yaml:"ip_lookup_url"`

	// GoogleAPIKey is the Google Maps Geolocation API key
	GoogleAPIKey string `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty"`

	// GPSPort is the serial device of an NMEA GPS receiver (e.g., "/dev/ttyUSB0")
	GPSPort string `json:"gps_port" yaml:"gps_port"`

	// GPSBaud is the serial baud rate (default: 9600)
	GPSBaud int `json:"gps_baud" yaml:"gps_baud"`

	// CacheMinutes keeps a resolved position for this long (0 = no caching)
	CacheMinutes int `json:"cache_minutes" yaml:"cache_minutes"`
}

// AreaConfig defines the size of the bounding box around the observer.
type AreaConfig struct {
	// HalfSideKm is the distance from the center to each edge in kilometers
	HalfSideKm float64 `json:"half_side_km" yaml:"half_side_km"`

	// HalfSideNM is used instead when HalfSideKm is 0
	HalfSideNM float64 `json:"half_side_nm,omitempty" yaml:"half_side_nm,omitempty"`
}

// HalfSideKilometers returns the effective half side in kilometers.
func (a AreaConfig) HalfSideKilometers() float64 {
	if a.HalfSideKm > 0 {
		return a.HalfSideKm
	}
	return geo.NauticalMilesToKm(a.HalfSideNM)
}

// PollConfig controls how often the job runs.
type PollConfig struct {
	// IntervalSeconds between polls; values below the API rate limit simply
	// produce rate-limited cycles
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is "console" (human readable) or "json"
	Format string `json:"format" yaml:"format"`

	// File optionally mirrors logs to a rotated file
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// DisplayConfig enables the display sinks.
type DisplayConfig struct {
	Log     LogDisplayConfig     `json:"log" yaml:"log"`
	TUI     TUIDisplayConfig     `json:"tui" yaml:"tui"`
	Web     WebDisplayConfig     `json:"web" yaml:"web"`
	MQTT    MQTTDisplayConfig    `json:"mqtt" yaml:"mqtt"`
	Archive ArchiveDisplayConfig `json:"archive" yaml:"archive"`
}

// LogDisplayConfig writes each snapshot to the application log.
type LogDisplayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// TUIDisplayConfig renders snapshots in the terminal.
type TUIDisplayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// WebDisplayConfig serves snapshots over HTTP and WebSocket.
type WebDisplayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Host is the bind address (default: "0.0.0.0")
	Host string `json:"host" yaml:"host"`

	// Port is the HTTP port (default: 8080)
	Port string `json:"port" yaml:"port"`

	// AllowedOrigins for CORS (default: ["*"])
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// MQTTDisplayConfig publishes snapshots to an MQTT broker for remote displays.
type MQTTDisplayConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Broker   string `json:"broker" yaml:"broker"`
	ClientID string `json:"client_id" yaml:"client_id"`
	Topic    string `json:"topic" yaml:"topic"`
	QoS      int    `json:"qos" yaml:"qos"`
	Retained bool   `json:"retained" yaml:"retained"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// ArchiveDisplayConfig writes each snapshot to disk as zstd-compressed msgpack.
type ArchiveDisplayConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Dir     string `json:"dir" yaml:"dir"`
}

// DatabaseConfig contains database connection settings for sighting history.
type DatabaseConfig struct {
	// Enabled stores every snapshot in PostgreSQL
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Host is the database server hostname
	Host string `json:"host" yaml:"host"`

	// Port is the database server port
	Port int `json:"port" yaml:"port"`

	// Database is the database name
	Database string `json:"database" yaml:"database"`

	// Username for database authentication
	Username string `json:"username" yaml:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" yaml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`

	// RetentionDays prunes history older than this many days (0 = keep all)
	RetentionDays int `json:"retention_days" yaml:"retention_days"`
}

// Location provider names.
const (
	ProviderIP     = "ip"
	ProviderStatic = "static"
	ProviderGoogle = "google"
	ProviderGPS    = "gps"
)

// Load reads configuration from a JSON or YAML file, chosen by extension.
// If the file doesn't exist, the default configuration is used.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Save writes the configuration to a JSON or YAML file, chosen by extension.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WithoutSecrets returns a copy of c with credentials cleared, suitable for
// writing to disk. Secrets are expected to come from the environment.
func (c *Config) WithoutSecrets() *Config {
	out := *c
	out.OpenSky.Username = ""
	out.OpenSky.Password = ""
	out.Location.GoogleAPIKey = ""
	out.Database.Password = ""
	out.Display.MQTT.Password = ""
	out.Display.Web.AllowedOrigins = append([]string(nil), c.Display.Web.AllowedOrigins...)
	return &out
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OpenSky: OpenSkyConfig{
			BaseURL:        "https://opensky-network.org/api",
			TimeoutSeconds: 15,
			Retry: RetryConfig{
				Enabled:             false,
				MaxRetries:          3,
				InitialDelaySeconds: 2,
				MaxDelaySeconds:     30,
			},
		},
		Location: LocationConfig{
			Provider:     ProviderIP,
			IPLookupURL:  "http://ip-api.com/json/",
			GPSBaud:      9600,
			CacheMinutes: 30,
		},
		Area: AreaConfig{
			HalfSideKm: 10.0,
		},
		Poll: PollConfig{
			IntervalSeconds: 15, // above the 10s anonymous rate limit
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  32,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Display: DisplayConfig{
			Log: LogDisplayConfig{Enabled: true},
			Web: WebDisplayConfig{
				Host:           "0.0.0.0",
				Port:           "8080",
				AllowedOrigins: []string{"*"},
			},
			MQTT: MQTTDisplayConfig{
				ClientID: "overhead",
				Topic:    "overhead/aircraft",
				QoS:      1,
				Retained: true,
			},
			Archive: ArchiveDisplayConfig{
				Dir: "snapshots",
			},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "overhead",
			Username:      "overhead",
			SSLMode:       "disable",
			MaxOpenConns:  10,
			MaxIdleConns:  2,
			RetentionDays: 30,
		},
	}
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	switch c.Location.Provider {
	case ProviderIP:
		if c.Location.IPLookupURL == "" {
			return errors.New("location.ip_lookup_url is required for the ip provider")
		}
	case ProviderStatic:
		p := geo.Position{Latitude: c.Location.Latitude, Longitude: c.Location.Longitude}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("location: %w", err)
		}
	case ProviderGoogle:
		if c.Location.GoogleAPIKey == "" {
			return errors.New("location.google_api_key is required for the google provider")
		}
	case ProviderGPS:
		if c.Location.GPSPort == "" {
			return errors.New("location.gps_port is required for the gps provider")
		}
	default:
		return fmt.Errorf("unknown location provider %q", c.Location.Provider)
	}

	if km := c.Area.HalfSideKilometers(); km <= 0 {
		return fmt.Errorf("area: %w: half side must be positive", geo.ErrInvalidRadius)
	}
	if c.Poll.IntervalSeconds <= 0 {
		return errors.New("poll.interval_seconds must be positive")
	}
	if c.Display.MQTT.Enabled {
		if c.Display.MQTT.Broker == "" {
			return errors.New("display.mqtt.broker is required when mqtt is enabled")
		}
		if c.Display.MQTT.QoS < 0 || c.Display.MQTT.QoS > 2 {
			return fmt.Errorf("display.mqtt.qos %d must be 0, 1 or 2", c.Display.MQTT.QoS)
		}
	}
	if c.Display.Archive.Enabled && c.Display.Archive.Dir == "" {
		return errors.New("display.archive.dir is required when the archive is enabled")
	}

	return nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows credentials to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if user := os.Getenv("OPENSKY_USERNAME"); user != "" {
		c.OpenSky.Username = user
	}
	if pass := os.Getenv("OPENSKY_PASSWORD"); pass != "" {
		c.OpenSky.Password = pass
	}
	if key := os.Getenv("OVERHEAD_GOOGLE_API_KEY"); key != "" {
		c.Location.GoogleAPIKey = key
	}
	if dbPassword := os.Getenv("OVERHEAD_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if broker := os.Getenv("OVERHEAD_MQTT_BROKER"); broker != "" {
		c.Display.MQTT.Broker = broker
	}
	if level := os.Getenv("OVERHEAD_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}
