// main.go
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jvmtool_agent/internal/agent"
	"jvmtool_agent/internal/config"
	"jvmtool_agent/internal/introspect"
	"jvmtool_agent/internal/logger"
	"jvmtool_agent/internal/memsampler"
	"jvmtool_agent/internal/sidechannel"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	version = "0.1.0"
)

func main() {
	var (
		listenAddress = flag.String("web.listen-address", "localhost:9190", "Address to listen on for web interface and telemetry.")
		metricsPath   = flag.String("web.telemetry-path", "/metrics", "Path under which to expose metrics.")
		configPath    = flag.String("config", "", "Path to configuration file (optional).")
		attachOptions = flag.String("attach-options", "", "Attach option string, e.g. \"analysis=memory,duration=60,output=/tmp/out.log\".")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
	}

	// Configure loggers based on configuration
	if err := logger.Configure(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure loggers: %v\n", err)
		os.Exit(1)
	}

	// Override with command line flags if provided
	if isFlagPassed("web.listen-address") {
		cfg.Server.ListenAddress = *listenAddress
	}
	if isFlagPassed("web.telemetry-path") {
		cfg.Server.MetricsPath = *metricsPath
	}
	options := cfg.Agent.DefaultOptions
	if isFlagPassed("attach-options") {
		options = *attachOptions
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("version", version).
		Str("introspector", cfg.Agent.Introspector).
		Str("options", options).
		Str("listen_address", cfg.Server.ListenAddress).
		Str("metrics_path", cfg.Server.MetricsPath).
		Msg("Starting jvmtool memory agent")

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Select the introspection backend
	host, err := buildHost(&cfg.Agent)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up introspection")
	}
	log.Debug().Msg("- Introspection handle ready")

	// Agent runtime owns the registry and the single-instance lock
	rt := agent.NewRuntime(host, cfg.Agent.LockPath)
	defer rt.Shutdown()
	log.Debug().Msg("- Agent runtime created")

	// Session metrics
	metrics := memsampler.NewMetrics()
	prometheus.MustRegister(metrics)
	log.Debug().Msg("- Metrics registered")

	// Memory sampling module, gated by the instance lock
	sampler := memsampler.New(rt.NextInstanceID(), cfg.Agent.TempDir, sidechannel.Stderr(), metrics)
	sampler.SetSamplePeriod(time.Duration(cfg.Agent.SamplePeriodSeconds) * time.Second)
	if err := rt.RegisterExclusive(sampler); err != nil {
		log.Warn().Err(err).Msg("Memory sampling disabled for this run")
	}

	// Deliver the attach event
	if err := rt.AttachEntry(options); err != nil {
		log.Fatal().Err(err).Msg("Attach failed")
	}
	log.Info().Msg("Attach event dispatched")

	// Set up HTTP server for Prometheus metrics
	http.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
            <head><title>jvmtool memory agent</title></head>
            <body>
            <h1>jvmtool memory agent v` + version + ` </h1>
            <p><a href="` + cfg.Server.MetricsPath + `">Metrics</a></p>
            </body>
            </html>`))
	})

	srv := &http.Server{Addr: cfg.Server.ListenAddress}
	go func() {
		log.Info().Str("address", cfg.Server.ListenAddress).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	log.Info().Msg("Agent is ready and sampling...")

	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	srv.Close()
	rt.Shutdown()
	log.Info().Msg("Agent stopped gracefully")
}

// buildHost wires the configured introspector into host handles.
func buildHost(cfg *config.AgentConfig) (*agent.Host, error) {
	switch cfg.Introspector {
	case "process":
		pid := cfg.TargetPid
		if pid == 0 {
			pid = int32(os.Getpid())
		}
		p, err := introspect.NewProcess(pid)
		if err != nil {
			return nil, err
		}
		return &agent.Host{Binder: p, Introspector: p}, nil
	default:
		g := introspect.NewGoRuntime()
		return &agent.Host{Binder: g, Introspector: g}, nil
	}
}

// isFlagPassed checks if a flag was explicitly set on the command line.
func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
