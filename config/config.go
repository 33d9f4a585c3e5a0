package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pingprobe/internal/logger"
	"pingprobe/internal/ping"
)

// Config holds all configuration settings for the application.
type Config struct {
	Hosts     string        `yaml:"hosts"`
	Timeout   time.Duration `yaml:"timeout"`
	Size      int           `yaml:"size"`
	Unit      string        `yaml:"unit"`
	Sequence  int           `yaml:"sequence"`
	Interface string        `yaml:"interface"`
	Mode      string        `yaml:"mode"`
	// Backend selects the sweep prober: native or go-ping.
	Backend   string  `yaml:"backend"`
	Workers   int     `yaml:"workers"`
	QueueSize int     `yaml:"queue_size"`
	Rate      float64 `yaml:"rate"` // probes per second, 0 for unlimited
	DryRun    bool    `yaml:"dry_run"`

	OutputFile  string `yaml:"output_file"`
	ResumeFile  string `yaml:"resume_file"`
	MetricsFile string `yaml:"metrics_file"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

const (
	BackendNative = "native"
	BackendGoPing = "go-ping"
)

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Timeout:    ping.DefaultTimeout,
		Size:       ping.DefaultSize,
		Unit:       string(ping.UnitSeconds),
		Mode:       ping.ModeAuto.String(),
		Backend:    BackendNative,
		Workers:    1,
		OutputFile: "results.csv",
		LogLevel:   "INFO",
		LogFormat:  "text",
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envVarRegex matches ${VAR}, ${VAR:-default} or $VAR.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			if val, ok := os.LookupEnv(name[:idx]); ok {
				return val
			}
			return name[idx+2:]
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if c.Size < 0 || c.Size > 65507 {
		errs = append(errs, "size must be between 0 and 65507")
	}
	if c.Sequence < 0 || c.Sequence > 0xffff {
		errs = append(errs, "sequence must be between 0 and 65535")
	}
	if _, err := ping.ParseUnit(c.Unit); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := ping.ParseMode(c.Mode); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Backend != BackendNative && c.Backend != BackendGoPing {
		errs = append(errs, fmt.Sprintf("invalid backend: %s (must be %s or %s)", c.Backend, BackendNative, BackendGoPing))
	}
	if c.Workers <= 0 {
		errs = append(errs, "workers must be a positive integer")
	}
	if c.QueueSize < 0 {
		errs = append(errs, "queue_size must not be negative")
	}
	if c.Rate < 0 {
		errs = append(errs, "rate must not be negative")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_format: %s (must be text or json)", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// EffectiveQueueSize returns QueueSize, or workers * 1024 when unset.
func (c *Config) EffectiveQueueSize() int {
	if c.QueueSize == 0 {
		return c.Workers * 1024
	}
	return c.QueueSize
}

// PingOptions converts the probe settings to engine options. Call Validate
// first; invalid values fall back to defaults.
func (c *Config) PingOptions() ping.Options {
	unit, _ := ping.ParseUnit(c.Unit)
	mode, _ := ping.ParseMode(c.Mode)
	return ping.Options{
		Timeout:   c.Timeout,
		Unit:      unit,
		Seq:       uint16(c.Sequence),
		Size:      c.Size,
		Interface: c.Interface,
		Mode:      mode,
	}
}
