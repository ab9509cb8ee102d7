package gateway

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tst-race/mastodon-transport/mastodon"
	"github.com/tst-race/mastodon-transport/store"
)

// Duration wraps time.Duration so YAML configs can use readable values like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TransportConfig holds the link policy of this gateway instance.
type TransportConfig struct {
	// HashtagPrefix seeds generated link hashtags. Both ends of a
	// deployment should use distinct prefixes to avoid tag collisions.
	HashtagPrefix string `yaml:"hashtagPrefix"`

	// MaxLinks caps simultaneously open links. Zero means unlimited.
	MaxLinks int `yaml:"maxLinks"`

	// LinkSide is "creator", "loader", or "both".
	LinkSide string `yaml:"linkSide"`
}

// PostgresConfig enables the persistent address book when set.
type PostgresConfig struct {
	Enabled              bool `yaml:"enabled"`
	store.PostgresConfig `yaml:",inline"`
}

// Config is the full gateway configuration, loadable from YAML.
type Config struct {
	// ListenAddr is the gateway's HTTP listen address.
	ListenAddr string `yaml:"listenAddr"`

	// EnablePprof exposes the pprof API under /debug.
	EnablePprof bool `yaml:"enablePprof"`

	// DrainDuration is how long /drain waits before shutdown proceeds.
	DrainDuration Duration `yaml:"drainDuration"`

	// GracefulShutdownDuration bounds in-flight request completion.
	GracefulShutdownDuration Duration `yaml:"gracefulShutdownDuration"`

	// RequestTimeout bounds each Mastodon API request.
	RequestTimeout Duration `yaml:"requestTimeout"`

	Mastodon  mastodon.Config `yaml:"mastodon"`
	Transport TransportConfig `yaml:"transport"`
	Postgres  PostgresConfig  `yaml:"postgres"`
}

// DefaultConfig returns a config with sensible local-development defaults.
// The Mastodon server and token still have to be supplied.
func DefaultConfig() Config {
	return Config{
		ListenAddr:               "127.0.0.1:8090",
		DrainDuration:            Duration(5 * time.Second),
		GracefulShutdownDuration: Duration(10 * time.Second),
		Transport: TransportConfig{
			HashtagPrefix: "pqrstuv",
			LinkSide:      "both",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Mastodon.Timeout = cfg.RequestTimeout.Std()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the parts of the config that cannot be defaulted.
func (c Config) Validate() error {
	if c.Mastodon.ServerURL == "" {
		return fmt.Errorf("config: mastodon.serverUrl is required")
	}
	if c.Mastodon.AccessToken == "" {
		return fmt.Errorf("config: mastodon.accessToken is required")
	}
	if c.Transport.HashtagPrefix == "" {
		return fmt.Errorf("config: transport.hashtagPrefix is required")
	}
	return nil
}
