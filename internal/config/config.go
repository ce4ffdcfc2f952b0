package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/force"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// Config is the persistent application configuration
type Config struct {
	Data     DataConfig     `toml:"data"`
	Playback PlaybackConfig `toml:"playback"`
	Force    ForceConfig    `toml:"force"`
	UI       UIConfig       `toml:"ui"`
	Server   ServerConfig   `toml:"server"`
}

// DataConfig selects where datasets come from
type DataConfig struct {
	Dir           string  `toml:"dir"`             // local data root (index.json + <type>/<name>.json)
	URL           string  `toml:"url"`             // web root; takes precedence over Dir
	Type          string  `toml:"type"`            // initial dataset type
	Name          string  `toml:"name"`            // initial dataset name, first in index if empty
	CachePath     string  `toml:"cache_path"`      // sqlite cache, "" disables caching
	CacheTTLHours int     `toml:"cache_ttl_hours"` // 0 = never expire
	RateLimit     float64 `toml:"rate_limit"`      // requests per second against URL
	Prefetch      bool    `toml:"prefetch"`        // warm the cache with every dataset of Type on start
}

// PlaybackConfig holds frame playback settings
type PlaybackConfig struct {
	IntervalMS int  `toml:"interval_ms"`
	Autoplay   bool `toml:"autoplay"`
}

// ForceConfig holds the initial force tuning
type ForceConfig struct {
	Charge       float64            `toml:"charge"`
	LinkStrength float64            `toml:"link_strength"`
	Normalize    bool               `toml:"normalize"`
	Weights      map[string]float64 `toml:"weights,omitempty"` // per-category overrides
}

// UIConfig holds TUI preferences
type UIConfig struct {
	FPS      int  `toml:"fps"`
	ShowHelp bool `toml:"show_help"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns sensible defaults
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:           "data",
			Type:          "content",
			CachePath:     filepath.Join(Dir(), "cache.db"),
			CacheTTLHours: 24,
			RateLimit:     4,
		},
		Playback: PlaybackConfig{
			IntervalMS: int(anim.DefaultInterval / time.Millisecond),
			Autoplay:   true,
		},
		Force: ForceConfig{
			Charge:       force.DefaultCharge,
			LinkStrength: force.DefaultLinkStrength,
			Normalize:    true,
		},
		UI: UIConfig{
			FPS:      30,
			ShowHelp: false,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8088",
		},
	}
}

// Dir returns the per-user state directory (~/.emograph)
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".emograph")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads config from ConfigPath, or returns defaults when it does not exist.
// Environment overrides are applied in both cases.
func Load() (*Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.AutoPopulateFromEnv()
		return cfg, nil
	}
	return cfg, err
}

// LoadFile reads a TOML config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to ConfigPath
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path, creating the directory if needed
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// AutoPopulateFromEnv applies EMOGRAPH_* overrides
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("EMOGRAPH_DATA_URL"); v != "" {
		c.Data.URL = v
	}
	if v := os.Getenv("EMOGRAPH_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
}

// Validate checks ranges. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Data.Dir == "" && c.Data.URL == "" {
		bad("data.dir or data.url must be set")
	}
	if c.Data.CacheTTLHours < 0 {
		bad("data.cache_ttl_hours must be >= 0, got %d", c.Data.CacheTTLHours)
	}
	if c.Data.RateLimit < 0 {
		bad("data.rate_limit must be >= 0, got %g", c.Data.RateLimit)
	}

	interval := time.Duration(c.Playback.IntervalMS) * time.Millisecond
	if interval < anim.MinInterval || interval > anim.MaxInterval {
		bad("playback.interval_ms must be in [%d, %d], got %d",
			anim.MinInterval.Milliseconds(), anim.MaxInterval.Milliseconds(), c.Playback.IntervalMS)
	}

	if c.Force.Charge < force.MinCharge || c.Force.Charge > force.MaxCharge {
		bad("force.charge must be in [%g, %g], got %g", force.MinCharge, force.MaxCharge, c.Force.Charge)
	}
	if c.Force.LinkStrength < force.MinLinkStrength || c.Force.LinkStrength > force.MaxLinkStrength {
		bad("force.link_strength must be in [%g, %g], got %g",
			force.MinLinkStrength, force.MaxLinkStrength, c.Force.LinkStrength)
	}
	for k, v := range c.Force.Weights {
		if v <= 0 {
			bad("force.weights.%s must be > 0, got %g", k, v)
		}
	}

	if c.UI.FPS < 1 || c.UI.FPS > 120 {
		bad("ui.fps must be in [1, 120], got %d", c.UI.FPS)
	}
	return errors.Join(errs...)
}

// Interval returns the playback interval, clamped to the player's range.
func (c *Config) Interval() time.Duration {
	return anim.ClampInterval(time.Duration(c.Playback.IntervalMS) * time.Millisecond)
}

// CacheTTL returns the dataset cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Data.CacheTTLHours) * time.Hour
}

// ForceParams returns the initial force tuning.
func (c *Config) ForceParams() force.Params {
	return force.Params{
		Charge:           c.Force.Charge,
		LinkStrengthBase: c.Force.LinkStrength,
		Normalize:        c.Force.Normalize,
	}.Clamped()
}

// Weights returns the default category weights with config overrides applied.
func (c *Config) Weights() force.Weights {
	return force.DefaultWeights().Merge(c.Force.Weights)
}

// FrameDelay returns the UI animation tick.
func (c *Config) FrameDelay() time.Duration {
	if c.UI.FPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.UI.FPS)
}
