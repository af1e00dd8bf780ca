// Package config holds the TOML-backed configuration for the agent host.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// HTTP server for the Prometheus endpoint
	Server ServerConfig `toml:"server"`

	// Agent / monitoring session settings
	Agent AgentConfig `toml:"agent"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Listen address (default: "localhost:9190")
	ListenAddress string `toml:"listen_address"`

	// Metrics endpoint path (default: "/metrics")
	MetricsPath string `toml:"metrics_path"`
}

// AgentConfig contains settings for the agent runtime and the memory
// sampling session.
type AgentConfig struct {
	// Path of the single-instance lock artifact
	// (default: <tmpdir>/jvmtool_memory_sa_lock)
	LockPath string `toml:"lock_path"`

	// Directory for temporary report files when no output option is given
	// (default: the system temp directory)
	TempDir string `toml:"temp_dir"`

	// Seconds to sleep between sampling iterations (default: 10)
	SamplePeriodSeconds int `toml:"sample_period_seconds"`

	// Attach options applied when the host delivers no explicit options,
	// e.g. "analysis=memory,duration=60" (default: "analysis=memory")
	DefaultOptions string `toml:"default_options"`

	// Introspector backend: "goruntime" samples the hosting Go runtime,
	// "process" samples an OS process via gopsutil (default: "goruntime")
	Introspector string `toml:"introspector"`

	// Target pid for the "process" introspector (default: own pid)
	TargetPid int32 `toml:"target_pid"`
}

// LoggingConfig contains the complete logging configuration.
type LoggingConfig struct {
	// Default logger settings applied to all component loggers
	Defaults LogDefaults `toml:"defaults"`

	// Output configurations - can have multiple outputs
	Outputs []LogOutput `toml:"outputs"`
}

// LogDefaults contains default logger settings.
type LogDefaults struct {
	// Log level (default: "info")
	Level string `toml:"level"`

	// Include caller information (default: 0)
	Caller int `toml:"caller"`

	// Time field name (default: "time")
	TimeField string `toml:"time_field"`

	// Time format (default: "" = RFC3339 with milliseconds)
	TimeFormat string `toml:"time_format"`

	// Time zone (default: "Local")
	TimeLocation string `toml:"time_location"`
}

// LogOutput represents a single output configuration.
type LogOutput struct {
	// Output type: "console" or "file"
	Type string `toml:"type"`

	// Enable this output (default: true)
	Enabled bool `toml:"enabled"`

	// Configuration specific to the output type
	Console *ConsoleConfig `toml:"console,omitempty"`
	File    *FileConfig    `toml:"file,omitempty"`
}

// ConsoleConfig contains console/terminal output settings.
type ConsoleConfig struct {
	// Output format: "auto" (colorized) or "logfmt" (default: "auto")
	Format string `toml:"format"`

	// Enable colored output (default: true)
	ColorOutput bool `toml:"color_output"`

	// Quote string values (default: true)
	QuoteString bool `toml:"quote_string"`

	// Output destination: "stdout" or "stderr" (default: "stdout")
	Writer string `toml:"writer"`
}

// FileConfig contains file output settings.
type FileConfig struct {
	// Log file path (required)
	Filename string `toml:"filename"`

	// Maximum file size in megabytes (default: 10)
	MaxSize int64 `toml:"max_size"`

	// Maximum number of old log files to keep (default: 7)
	MaxBackups int `toml:"max_backups"`

	// Use local time for rotation timestamps (default: true)
	LocalTime bool `toml:"local_time"`

	// Create directory if it doesn't exist (default: true)
	EnsureFolder bool `toml:"ensure_folder"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			ListenAddress: "localhost:9190",
			MetricsPath:   "/metrics",
		},
		Agent: AgentConfig{
			LockPath:            filepath.Join(os.TempDir(), "jvmtool_memory_sa_lock"),
			TempDir:             os.TempDir(),
			SamplePeriodSeconds: 10,
			DefaultOptions:      "analysis=memory",
			Introspector:        "goruntime",
		},
		Logging: LoggingConfig{
			Defaults: LogDefaults{
				Level:        "info",
				Caller:       0,
				TimeField:    "time",
				TimeFormat:   "",
				TimeLocation: "Local",
			},
			Outputs: []LogOutput{
				{
					Type:    "console",
					Enabled: true,
					Console: &ConsoleConfig{
						Format:      "auto",
						ColorOutput: true,
						QuoteString: true,
						Writer:      "stdout",
					},
				},
				{
					Type:    "file",
					Enabled: false,
					File: &FileConfig{
						Filename:     "logs/agent.log",
						MaxSize:      10,
						MaxBackups:   7,
						LocalTime:    true,
						EnsureFolder: true,
					},
				},
			},
		},
	}
}

// LoadConfig loads configuration from a TOML file on top of the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("config file not found: %s", configPath)
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return config, nil
}

// Validate checks the configuration for errors.
func (c *AppConfig) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if c.Server.MetricsPath == "" {
		return fmt.Errorf("server.metrics_path cannot be empty")
	}

	if c.Agent.LockPath == "" {
		return fmt.Errorf("agent.lock_path cannot be empty")
	}
	if c.Agent.SamplePeriodSeconds <= 0 {
		return fmt.Errorf("agent.sample_period_seconds must be positive")
	}
	switch c.Agent.Introspector {
	case "goruntime", "process":
	default:
		return fmt.Errorf("agent.introspector must be \"goruntime\" or \"process\", got %q", c.Agent.Introspector)
	}

	hasEnabledOutput := false
	for _, output := range c.Logging.Outputs {
		if output.Enabled {
			hasEnabledOutput = true
			break
		}
	}
	if !hasEnabledOutput {
		return fmt.Errorf("at least one logging output must be enabled")
	}

	return nil
}
