package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/recera/patchview/internal/logging"
	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/explorer"
	"github.com/recera/patchview/pkg/json"
	"github.com/recera/patchview/pkg/position"
)

// Candidate file names, in lookup order
var FileNames = []string{"patchview.yaml", "patchview.yml", "patchview.json"}

// Throttle bounds accepted by Validate
const (
	MinThrottle = 100 * time.Millisecond
	MaxThrottle = 200 * time.Millisecond
)

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid configuration")

// Config represents the patchview configuration file
type Config struct {
	// Explorer configuration
	Explorer *ExplorerConfig `yaml:"explorer,omitempty" json:"explorer,omitempty"`

	// Signal data configuration
	Data *DataConfig `yaml:"data,omitempty" json:"data,omitempty"`

	// Server configuration
	Server *ServerConfig `yaml:"server,omitempty" json:"server,omitempty"`

	// Logging configuration
	Log *LogConfig `yaml:"log,omitempty" json:"log,omitempty"`
}

// ExplorerConfig mirrors explorer.Options
type ExplorerConfig struct {
	// Pointer source element IDs
	Elements []string `yaml:"elements,omitempty" json:"elements,omitempty"`

	// Element holding the serialized position
	SinkID string `yaml:"sinkId,omitempty" json:"sinkId,omitempty"`

	// Minimum gap between processed moves, 100ms to 200ms
	Throttle Duration `yaml:"throttle,omitempty" json:"throttle,omitempty"`

	// Number of signal channels to chart
	Channels int `yaml:"channels,omitempty" json:"channels,omitempty"`

	// Whether to correct for non-square elements
	Centered *bool `yaml:"centered,omitempty" json:"centered,omitempty"`

	// Initial position: "center" or "unset"
	Sentinel string `yaml:"sentinel,omitempty" json:"sentinel,omitempty"`

	// Samples dropped from the start of each window
	LeadingSkip int `yaml:"leadingSkip,omitempty" json:"leadingSkip,omitempty"`

	Marker *MarkerConfig `yaml:"marker,omitempty" json:"marker,omitempty"`
}

// MarkerConfig styles the position marker
type MarkerConfig struct {
	Radius float64 `yaml:"radius,omitempty" json:"radius,omitempty"`
	Color  string  `yaml:"color,omitempty" json:"color,omitempty"`
}

// DataConfig locates the signal data
type DataConfig struct {
	// Serialized signal buffer
	Buffer string `yaml:"buffer,omitempty" json:"buffer,omitempty"`

	// Serialized file metadata
	Metadata string `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// Period of the timed refresh cycle
	RefreshInterval Duration `yaml:"refreshInterval,omitempty" json:"refreshInterval,omitempty"`

	// Whether to reload the files when they change
	Watch *bool `yaml:"watch,omitempty" json:"watch,omitempty"`
}

// ServerConfig contains live server configuration
type ServerConfig struct {
	// Server host
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Server port
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Live session mount prefix
	LivePath string `yaml:"livePath,omitempty" json:"livePath,omitempty"`

	// Metrics endpoint; empty disables it
	MetricsPath string `yaml:"metricsPath,omitempty" json:"metricsPath,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Load loads configuration from the first candidate file found in dir
func Load(dir string) (*Config, string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			return cfg, path, err
		}
	}
	// Return default config if no file exists
	return DefaultConfig(), "", nil
}

// LoadFile loads configuration from path; the format follows the extension
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isJSON(path) {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// Save writes cfg to path; the format follows the extension
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	centered := true
	watch := true
	return &Config{
		Explorer: &ExplorerConfig{
			Elements: append([]string(nil), explorer.DefaultElements...),
			SinkID:   explorer.DefaultSinkID,
			Throttle: Duration(drag.DefaultThrottle),
			Channels: 2,
			Centered: &centered,
			Sentinel: string(position.SentinelCenter),
			Marker: &MarkerConfig{
				Radius: 2,
				Color:  "red",
			},
		},
		Data: &DataConfig{
			Buffer:          "data/signal.json",
			Metadata:        "data/metadata.json",
			RefreshInterval: Duration(time.Second),
			Watch:           &watch,
		},
		Server: &ServerConfig{
			Host:        "localhost",
			Port:        8080,
			LivePath:    "/patchview/live/",
			MetricsPath: "/metrics",
		},
		Log: &LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	// Apply explorer defaults
	if config.Explorer == nil {
		config.Explorer = defaults.Explorer
	} else {
		ex, def := config.Explorer, defaults.Explorer
		if len(ex.Elements) == 0 {
			ex.Elements = def.Elements
		}
		if ex.SinkID == "" {
			ex.SinkID = def.SinkID
		}
		if ex.Throttle == 0 {
			ex.Throttle = def.Throttle
		}
		if ex.Channels == 0 {
			ex.Channels = def.Channels
		}
		if ex.Centered == nil {
			ex.Centered = def.Centered
		}
		if ex.Sentinel == "" {
			ex.Sentinel = def.Sentinel
		}
		if ex.Marker == nil {
			ex.Marker = def.Marker
		} else {
			if ex.Marker.Radius == 0 {
				ex.Marker.Radius = def.Marker.Radius
			}
			if ex.Marker.Color == "" {
				ex.Marker.Color = def.Marker.Color
			}
		}
	}

	// Apply data defaults
	if config.Data == nil {
		config.Data = defaults.Data
	} else {
		if config.Data.Buffer == "" {
			config.Data.Buffer = defaults.Data.Buffer
		}
		if config.Data.Metadata == "" {
			config.Data.Metadata = defaults.Data.Metadata
		}
		if config.Data.RefreshInterval == 0 {
			config.Data.RefreshInterval = defaults.Data.RefreshInterval
		}
		if config.Data.Watch == nil {
			config.Data.Watch = defaults.Data.Watch
		}
	}

	// Apply server defaults
	if config.Server == nil {
		config.Server = defaults.Server
	} else {
		if config.Server.Host == "" {
			config.Server.Host = defaults.Server.Host
		}
		if config.Server.Port == 0 {
			config.Server.Port = defaults.Server.Port
		}
		if config.Server.LivePath == "" {
			config.Server.LivePath = defaults.Server.LivePath
		}
	}

	// Apply log defaults
	if config.Log == nil {
		config.Log = defaults.Log
	} else {
		if config.Log.Level == "" {
			config.Log.Level = defaults.Log.Level
		}
		if config.Log.Format == "" {
			config.Log.Format = defaults.Log.Format
		}
	}
}

// Validate validates the configuration. Call it on a config that went
// through Load or DefaultConfig.
func (c *Config) Validate() error {
	ex := c.Explorer
	if ex == nil || c.Data == nil || c.Server == nil || c.Log == nil {
		return fmt.Errorf("%w: missing section", ErrInvalid)
	}

	if t := time.Duration(ex.Throttle); t < MinThrottle || t > MaxThrottle {
		return fmt.Errorf("%w: explorer.throttle %s outside [%s, %s]", ErrInvalid, t, MinThrottle, MaxThrottle)
	}
	if ex.Channels < 1 || ex.Channels > 16 {
		return fmt.Errorf("%w: explorer.channels %d outside [1, 16]", ErrInvalid, ex.Channels)
	}
	if !position.Sentinel(ex.Sentinel).Valid() {
		return fmt.Errorf("%w: explorer.sentinel %q is not center or unset", ErrInvalid, ex.Sentinel)
	}
	if ex.LeadingSkip < 0 {
		return fmt.Errorf("%w: explorer.leadingSkip must not be negative", ErrInvalid)
	}
	for _, id := range ex.Elements {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: explorer.elements contains an empty ID", ErrInvalid)
		}
	}
	if ex.Marker != nil && ex.Marker.Radius <= 0 {
		return fmt.Errorf("%w: explorer.marker.radius must be positive", ErrInvalid)
	}

	if c.Data.RefreshInterval < 0 {
		return fmt.Errorf("%w: data.refreshInterval must not be negative", ErrInvalid)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalid, c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.LivePath, "/") {
		return fmt.Errorf("%w: server.livePath must start with /", ErrInvalid)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// ExplorerOptions converts the explorer section
func (c *Config) ExplorerOptions() explorer.Options {
	ex := c.Explorer
	opts := explorer.Options{
		Elements:         ex.Elements,
		SinkID:           ex.SinkID,
		ThrottleInterval: time.Duration(ex.Throttle),
		Channels:         ex.Channels,
		Uncentered:       ex.Centered != nil && !*ex.Centered,
		Sentinel:         position.Sentinel(ex.Sentinel),
		LeadingSkip:      ex.LeadingSkip,
	}
	if ex.Marker != nil {
		opts.MarkerRadius = ex.Marker.Radius
		opts.MarkerColor = ex.Marker.Color
	}
	return opts
}

// LoggingConfig converts the log section
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Duration is a time.Duration written as a string ("150ms") in both formats
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// bare numbers are milliseconds
		var ms float64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("duration must be a string or milliseconds: %s", data)
		}
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
