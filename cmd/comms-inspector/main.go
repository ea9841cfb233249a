package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/signalsfoundry/comms-inspector/core"
	"github.com/signalsfoundry/comms-inspector/dataset"
	"github.com/signalsfoundry/comms-inspector/internal/api"
	"github.com/signalsfoundry/comms-inspector/internal/config"
	"github.com/signalsfoundry/comms-inspector/internal/logging"
	"github.com/signalsfoundry/comms-inspector/internal/mission"
	"github.com/signalsfoundry/comms-inspector/internal/observability"
	"github.com/signalsfoundry/comms-inspector/internal/session"
)

var version = "1.0.0"

// CLI is the command line. Flags override values from the input file.
type CLI struct {
	Input string `arg:"" type:"existingfile" help:"Inspector configuration (JSON or YAML) or a simulator event table (.csv)."`

	LandColor      string `short:"L" placeholder:"coral" help:"Globe land color."`
	OceanColor     string `short:"O" placeholder:"aqua" help:"Globe ocean color."`
	Resolution     string `short:"R" enum:",low,medium,high" default:"" help:"Globe resolution: low, medium or high."`
	Classification string `short:"C" placeholder:"CUI" help:"Classification banner shown on the globe."`
	Cesium         bool   `help:"Draw transmissions with the Cesium arrow table."`
	Addr           string `placeholder:"127.0.0.1:8050" help:"API listen address."`
	MetricsAddr    string `placeholder:"127.0.0.1:9090" help:"Separate listen address for /metrics."`

	Version kong.VersionFlag `help:"Print the version and exit."`
}

func (c *CLI) override(cfg *config.Config) {
	if c.LandColor != "" {
		cfg.Render.LandColor = c.LandColor
	}
	if c.OceanColor != "" {
		cfg.Render.OceanColor = c.OceanColor
	}
	if c.Resolution != "" {
		cfg.Render.Resolution = c.Resolution
	}
	if c.Classification != "" {
		cfg.Render.Classification = c.Classification
	}
	if c.Cesium {
		cfg.Render.Mode = string(core.ModeCesium)
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.MetricsAddr != "" {
		cfg.Server.MetricsAddr = c.MetricsAddr
	}
}

// Load resolves the configuration. A .csv input is loaded directly and
// never runs a mission.
func (c *CLI) Load() (*config.Config, error) {
	if strings.EqualFold(filepath.Ext(c.Input), ".csv") {
		return config.Load("", func(cfg *config.Config) {
			cfg.Dataset.Path = c.Input
			cfg.Mission.RunMission = false
			c.override(cfg)
		})
	}
	return config.Load(c.Input, c.override)
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("comms-inspector"),
		kong.Description("Inspect simulated communications events on a 3-D globe."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := cli.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Error(ctx, "comms-inspector exited", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

// tracingConfig maps the tracing section onto the observability settings,
// with COMMS_TRACING_* variables taking precedence.
func tracingConfig(cfg config.TracingConfig) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     cfg.Enabled,
		ServiceName: cfg.ServiceName,
		Exporter:    cfg.Exporter,
		Endpoint:    cfg.Endpoint,
		SampleRatio: cfg.SampleRatio,
	}.WithEnv()
}

// run prepares the dataset and serves the API until ctx is cancelled. When
// lis is non-nil the API is served on it instead of cfg.Server.Addr.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, lis net.Listener) error {
	tracing, err := observability.InitTracing(ctx, tracingConfig(cfg.Tracing), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracing.Shutdown()

	datasetPath := cfg.DatasetPath()
	if cfg.Mission.RunMission {
		out, err := mission.NewExecutor(cfg.Mission, log).Run(ctx)
		if err != nil {
			return err
		}
		if cfg.Dataset.Path == "" {
			datasetPath = out
		}
	}

	start := time.Now()
	data, err := dataset.LoadFile(datasetPath)
	if err != nil {
		return err
	}
	log.Info(ctx, "loaded event table",
		logging.String("path", datasetPath),
		logging.Int("rows", data.Len()),
		logging.Int("timestamps", len(data.Timestamps())),
		logging.Duration("elapsed", time.Since(start)),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := observability.NewHTTPCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	renderMetrics, err := observability.NewRenderCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	httpMetrics.SetDatasetCounts(data.Len(), len(data.Timestamps()))

	mode, err := core.ParseRenderMode(cfg.Render.Mode)
	if err != nil {
		return err
	}
	sessions := session.NewManager(data, session.Options{
		Mode:     mode,
		CacheTTL: cfg.Session.CacheTTL,
		Observer: renderMetrics,
		Logger:   log,
	}, cfg.Server.MaxSessions)

	handler := api.NewServer(api.Options{
		Sessions:     sessions,
		Render:       cfg.Render,
		Cesium:       cfg.Cesium,
		CORSOrigins:  cfg.Server.CORSOrigins,
		PlaybackTick: cfg.Playback.Tick,
		RateLimit: api.RateLimit{
			Requests: cfg.Server.RateLimitRequests,
			Window:   cfg.Server.RateLimitWindow,
		},
		Metrics: httpMetrics,
		Logger:  log,
		Version: version,
	}).Handler()

	sup := suture.New("comms-inspector", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: logging.Slog(log.With(logging.String("component", "supervisor")))}).MustHook(),
		Timeout:   cfg.Server.ShutdownTimeout,
	})

	apiSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	var apiRunner api.HTTPServer = apiSrv
	if lis != nil {
		apiRunner = listenerServer{Server: apiSrv, lis: lis}
	}
	sup.Add(api.NewHTTPService("api", apiRunner, cfg.Server.ShutdownTimeout))

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", httpMetrics.Handler())
		sup.Add(api.NewHTTPService("metrics", &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}, cfg.Server.ShutdownTimeout))
		log.Info(ctx, "serving Prometheus metrics", logging.String("addr", cfg.Server.MetricsAddr))
	}

	addr := cfg.Server.Addr
	if lis != nil {
		addr = lis.Addr().String()
	}
	log.Info(ctx, "serving comms inspector",
		logging.String("addr", addr),
		logging.String("mode", string(mode)),
		logging.String("cesium_local_server", cfg.Cesium.LocalServer),
	)

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info(context.Background(), "comms inspector stopped")
	return nil
}

// listenerServer serves an http.Server on a listener that is already open.
type listenerServer struct {
	*http.Server
	lis net.Listener
}

func (s listenerServer) ListenAndServe() error {
	return s.Serve(s.lis)
}
