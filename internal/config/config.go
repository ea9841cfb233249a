// Package config loads the inspector configuration from struct defaults, an
// optional JSON or YAML file and COMMS_INSPECTOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"time"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete inspector configuration.
type Config struct {
	Mission  MissionConfig  `koanf:"mission"`
	Cesium   CesiumConfig   `koanf:"cesium"`
	Server   ServerConfig   `koanf:"server"`
	Render   RenderConfig   `koanf:"render"`
	Dataset  DatasetConfig  `koanf:"dataset"`
	Playback PlaybackConfig `koanf:"playback"`
	Session  SessionConfig  `koanf:"session"`
	Logging  LoggingConfig  `koanf:"logging"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

// MissionConfig describes how to run the simulator and where it leaves its
// event table.
type MissionConfig struct {
	RunMission      bool            `koanf:"run_mission"`
	ExePath         string          `koanf:"mission_exe_path" validate:"required_if=RunMission true"`
	ScenarioStartup string          `koanf:"scenario_startup" validate:"required_if=RunMission true"`
	CollectorScript string          `koanf:"collector_script" validate:"required_if=RunMission true"`
	OutputName      string          `koanf:"output_name" validate:"required"`
	OutputDir       string          `koanf:"output_dir" validate:"required"`
	MessageEvents   map[string]bool `koanf:"message_events"`
	Timeout         time.Duration   `koanf:"timeout" validate:"gte=0"`
}

// CesiumConfig is handed to the Cesium viewer.
type CesiumConfig struct {
	Token       string `koanf:"cesium_token" json:"cesium_token"`
	LocalServer string `koanf:"local_server" json:"local_server"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	MetricsAddr     string        `koanf:"metrics_addr" validate:"omitempty,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxSessions     int           `koanf:"max_sessions" validate:"gte=0"`

	// RateLimitRequests per RateLimitWindow per client IP; 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

type RenderConfig struct {
	Mode           string `koanf:"mode" validate:"oneof=plotly cesium"`
	Resolution     string `koanf:"resolution" validate:"oneof=low medium high"`
	LandColor      string `koanf:"land_color" validate:"omitempty,colorname"`
	OceanColor     string `koanf:"ocean_color" validate:"omitempty,colorname"`
	Classification string `koanf:"classification"`
	PanelWidth     int    `koanf:"panel_width" validate:"gte=0"`
	PanelHeight    int    `koanf:"panel_height" validate:"gte=0"`
}

type DatasetConfig struct {
	// Path overrides the mission output location when set.
	Path string `koanf:"path"`
}

type PlaybackConfig struct {
	Tick time.Duration `koanf:"tick" validate:"gt=0"`
}

type SessionConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	Exporter    string  `koanf:"exporter" validate:"oneof=stdout otlp otlpgrpc"`
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// DefaultCesiumToken is used when the file carries no cesium section.
const DefaultCesiumToken = "defaultAccessToken"

// Default returns the configuration used before any file or environment
// overrides.
func Default() *Config {
	return &Config{
		Mission: MissionConfig{
			OutputName: "comms_analysis",
			OutputDir:  "output",
		},
		Cesium: CesiumConfig{Token: DefaultCesiumToken},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8050",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxSessions:     256,

			RateLimitRequests: 1200,
			RateLimitWindow:   time.Minute,
		},
		Render: RenderConfig{
			Mode:        "plotly",
			Resolution:  "low",
			PanelWidth:  480,
			PanelHeight: 320,
		},
		Playback: PlaybackConfig{Tick: time.Second},
		Session:  SessionConfig{CacheTTL: 5 * time.Minute},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			ServiceName: "comms-inspector",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// DatasetPath returns the CSV the inspector should load: the explicit
// dataset path, or the mission output file.
func (c *Config) DatasetPath() string {
	if c.Dataset.Path != "" {
		return c.Dataset.Path
	}
	return filepath.Join(c.Mission.OutputDir, c.Mission.OutputName+".csv")
}

// LocalServerURL returns the address the viewer is served from.
func LocalServerURL(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("server address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/", nil
}
