// Package config loads the listener-map document described in
// spec.md §6 via viper, following go-server-3/internal/config's
// SetConfigName/AddConfigPath/SetDefault pattern generalized so
// AddConfigPath points at the operator-supplied --config-dir.
package config

import (
	"fmt"
	"net"

	"github.com/spf13/viper"
)

const (
	defaultMaxMessageSize = 64 * 1024        // 64 KiB, spec.md §6
	defaultMaxFrameSize   = 16 * 1024 * 1024 // 16 MiB, spec.md §6
	configFileBaseName    = "lastmile"
)

// Listener is one entry of the configuration document's listener map,
// carrying every field spec.md §6 names plus the resource-guard
// fields SPEC_FULL.md §4.12 adds.
type Listener struct {
	IP                         string   `mapstructure:"ip"`
	Port                       uint16   `mapstructure:"port"`
	DefaultEndpointPermissions []string `mapstructure:"default_endpoint_permissions"`
	AuthTokens                 []string `mapstructure:"auth_tokens"`
	MaxMessageSize             int      `mapstructure:"max_message_size"`
	MaxFrameSize               int64    `mapstructure:"max_frame_size"`
	MaxConnections             int      `mapstructure:"max_connections"`
	ChannelBufferSize          int      `mapstructure:"channel_buffer_size"`
	RateLimitPerSecond         int      `mapstructure:"rate_limit_per_second"`
	MaxProcessCPUPercent       float64  `mapstructure:"max_process_cpu_percent"`
	MaxProcessMemoryBytes      int64    `mapstructure:"max_process_memory_bytes"`
}

// Addr renders the listener's bind address as host:port.
func (l Listener) Addr() string {
	return net.JoinHostPort(l.IP, fmt.Sprintf("%d", l.Port))
}

// MetricsConfig controls the optional Prometheus endpoint (SPEC_FULL.md §6).
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Endpoint   string `mapstructure:"endpoint"`
}

// Config is the top-level document: a named map of listeners plus the
// optional metrics settings (SPEC_FULL.md §6). Logging is configured by
// command-line flags, not by this document.
type Config struct {
	Listeners map[string]Listener `mapstructure:"listeners"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
}

// Load reads the config document named "lastmile.yaml" (or .json/.toml)
// from configDir. Unlike go-server-3's Load, which also searches "."
// and "./config" as a convenience, this loader only looks in the
// explicitly supplied directory: spec.md §6 specifies exactly one
// source, "--config-dir <path> pointing at the directory containing the
// config document."
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configFileBaseName)
	v.AddConfigPath(configDir)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9090")
	v.SetDefault("metrics.endpoint", "/metrics")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s from %s: %w", configFileBaseName, configDir, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	for name, l := range cfg.Listeners {
		if l.MaxMessageSize <= 0 {
			l.MaxMessageSize = defaultMaxMessageSize
		}
		if l.MaxFrameSize <= 0 {
			l.MaxFrameSize = defaultMaxFrameSize
		}
		cfg.Listeners[name] = l
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the document for errors, following ws/config.go's
// Validate() style: one explicit check per invariant, wrapped errors
// naming the offending field.
func (c *Config) Validate() error {
	if len(c.Listeners) == 0 {
		return fmt.Errorf("config: at least one listener must be configured")
	}
	for name, l := range c.Listeners {
		if l.IP == "" {
			return fmt.Errorf("config: listener %q: ip is required", name)
		}
		if net.ParseIP(l.IP) == nil {
			return fmt.Errorf("config: listener %q: ip %q is not a valid IP literal", name, l.IP)
		}
		if l.Port == 0 {
			return fmt.Errorf("config: listener %q: port is required", name)
		}
		if l.MaxConnections < 0 {
			return fmt.Errorf("config: listener %q: max_connections must be >= 0", name)
		}
		if l.ChannelBufferSize < 0 {
			return fmt.Errorf("config: listener %q: channel_buffer_size must be >= 0", name)
		}
		if l.RateLimitPerSecond < 0 {
			return fmt.Errorf("config: listener %q: rate_limit_per_second must be >= 0", name)
		}
		for _, perm := range l.DefaultEndpointPermissions {
			switch perm {
			case "Subscribe", "CreateChannel", "NotifyChannel":
			default:
				return fmt.Errorf("config: listener %q: unknown permission %q", name, perm)
			}
		}
		if l.MaxProcessCPUPercent < 0 || l.MaxProcessCPUPercent > 100 {
			return fmt.Errorf("config: listener %q: max_process_cpu_percent must be 0-100", name)
		}
	}
	return nil
}
