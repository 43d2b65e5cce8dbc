// Package config loads the plugin's optional operator configuration.
//
// The plugin runs fine with every default; a config file exists for people
// who want a different lookup provider, a custom refresh cadence, or the
// local status API. The file lives at ~/.config/ipkey/config.toml:
//
//	provider  = "icanhazip"  # one of: ipify, icanhazip, ifconfig-me
//	timeout   = "5s"         # per-request lookup timeout
//	refresh   = "5m"         # how often key images re-fetch the address
//	listen    = "127.0.0.1:9517"  # status API bind address, empty disables
//	log_level = "info"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/deckwork/ipkey/pkg/errors"
	"github.com/deckwork/ipkey/pkg/publicip"
)

// Duration wraps time.Duration so TOML values can be written as "5s" or "2m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the operator configuration.
type Config struct {
	Provider  string   `toml:"provider"`   // lookup provider name; empty uses the full fallback chain
	LookupURL string   `toml:"lookup_url"` // custom lookup endpoint; overrides provider
	Timeout   Duration `toml:"timeout"`    // per-request lookup timeout
	Refresh   Duration `toml:"refresh"`    // key image refresh interval
	Listen    string   `toml:"listen"`     // status API bind address; empty disables the API
	LogLevel  string   `toml:"log_level"`  // debug, info, warn, or error
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Timeout:  Duration{5 * time.Second},
		Refresh:  Duration{5 * time.Minute},
		LogLevel: "info",
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "ipkey", "config.toml"), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return Default(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolving config path")
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "reading %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "parsing %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Provider != "" {
		if err := errors.ValidateProviderName(c.Provider); err != nil {
			return err
		}
		if err := publicip.ValidateProvider(publicip.Provider(c.Provider)); err != nil {
			return err
		}
	}
	if c.LookupURL != "" {
		if err := errors.ValidateURL(c.LookupURL); err != nil {
			return err
		}
	}
	if c.Timeout.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must be positive (got %s)", c.Timeout)
	}
	if c.Refresh.Duration < time.Second {
		return errors.New(errors.ErrCodeInvalidConfig, "refresh must be at least 1s (got %s)", c.Refresh)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown log level %q", c.LogLevel)
	}
	return nil
}

// LookupOptions translates the lookup fields into publicip client options.
// A custom URL wins over a named provider.
func (c Config) LookupOptions() []publicip.Option {
	opts := []publicip.Option{publicip.WithTimeout(c.Timeout.Duration)}
	switch {
	case c.LookupURL != "":
		opts = append(opts, publicip.WithLookupURL(c.LookupURL))
	case c.Provider != "":
		opts = append(opts, publicip.WithProviders(publicip.Provider(c.Provider)))
	}
	return opts
}
