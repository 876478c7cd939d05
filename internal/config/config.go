// Package config provides configuration types and defaults for flowdeck.
package config

import "time"

// Config holds all configuration options for flowdeck.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Dedupe  DedupeConfig  `mapstructure:"dedupe"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Tracing TracingConfig `mapstructure:"tracing"`
	UI      UIConfig      `mapstructure:"ui"`
}

// ServerConfig locates the workflow backend.
type ServerConfig struct {
	// URL is the backend base URL; the socket endpoint is derived from it
	// (http -> ws, https -> wss, path /ws).
	URL string `mapstructure:"url"`

	// ReconnectDelayMS is the fixed wait between reconnect attempts.
	ReconnectDelayMS int `mapstructure:"reconnect_delay_ms"`

	// HandshakeTimeoutMS bounds the socket dial.
	HandshakeTimeoutMS int `mapstructure:"handshake_timeout_ms"`
}

// ReconnectDelay returns the reconnect delay as a duration.
func (s ServerConfig) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelayMS) * time.Millisecond
}

// HandshakeTimeout returns the handshake timeout as a duration.
func (s ServerConfig) HandshakeTimeout() time.Duration {
	return time.Duration(s.HandshakeTimeoutMS) * time.Millisecond
}

// DedupeConfig sizes the event deduplication window.
type DedupeConfig struct {
	Capacity   int `mapstructure:"capacity"`
	EvictBatch int `mapstructure:"evict_batch"`
}

// ArchiveConfig controls the optional execution-history database.
type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the sqlite file location. Default: ~/.flowdeck/history.db
	Path string `mapstructure:"path"`
}

// TracingConfig controls the OpenTelemetry tracing subsystem.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Exporter selects "stdout" or "otlp".
	Exporter string `mapstructure:"exporter"`
	// OTLPEndpoint is the collector endpoint for the otlp exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	// ServiceName identifies this client in traces.
	ServiceName string `mapstructure:"service_name"`
}

// UIConfig holds user interface options.
type UIConfig struct {
	// ShowDebugPane renders the per-node debug snapshot panel.
	ShowDebugPane bool `mapstructure:"show_debug_pane"`
	// MarkdownStyle is "dark" (default) or "light" for chat rendering.
	MarkdownStyle string `mapstructure:"markdown_style"`
	// MaxLogLines caps the execution log viewport history.
	MaxLogLines int `mapstructure:"max_log_lines"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			URL:                "http://localhost:8080",
			ReconnectDelayMS:   3000,
			HandshakeTimeoutMS: 10000,
		},
		Dedupe: DedupeConfig{
			Capacity:   100,
			EvictBatch: 50,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    "",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "flowdeck",
		},
		UI: UIConfig{
			ShowDebugPane: true,
			MarkdownStyle: "dark",
			MaxLogLines:   500,
		},
	}
}
