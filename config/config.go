// Package config provides server configuration loaded from environment
// variables, prefixed FRAMERPC_.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds framerpc server configuration.
type Config struct {
	// ListenAddr is the bind address for the RPC listener.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":9090"`
	// AdvertiseAddr is the routable address published to discovery
	// (a ":9090" listen address is not routable). Empty disables
	// discovery registration even when etcd endpoints are set.
	AdvertiseAddr string `envconfig:"ADVERTISE_ADDR"`

	// EtcdEndpoints enables etcd-based discovery when non-empty.
	EtcdEndpoints []string `envconfig:"ETCD_ENDPOINTS"`

	// MetricsAddr exposes prometheus metrics over HTTP when non-empty,
	// e.g. "127.0.0.1:9091".
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	// MaxFrameBytes bounds a single advertised payload length.
	MaxFrameBytes uint32 `envconfig:"MAX_FRAME_BYTES" default:"16777216"`

	// RateLimit is requests per second across all connections; 0 disables
	// the limiter.
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"0"`
	RateBurst int     `envconfig:"RATE_BURST" default:"1"`

	// RequestTimeout bounds one handler invocation; 0 disables it.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	// ShutdownTimeout bounds the graceful-shutdown drain.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("framerpc", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("config: rate burst must be at least 1 when rate limiting is enabled")
	}
	if len(c.EtcdEndpoints) > 0 && c.AdvertiseAddr == "" {
		return fmt.Errorf("config: advertise address is required when etcd endpoints are set")
	}
	return nil
}
