package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces every environment variable read by Load.
const envPrefix = "CSVCOMPARE"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	UploadsDir string `yaml:"uploads_dir" envconfig:"UPLOADS_DIR" default:"uploads"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"processed"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig tunes the comparison pipeline
type PipelineConfig struct {
	MaxUploadSize     int64    `yaml:"max_upload_size" envconfig:"MAX_UPLOAD_SIZE" default:"33554432"`
	ParseWorkers      int      `yaml:"parse_workers" envconfig:"PARSE_WORKERS" default:"4"`
	ReportBaseName    string   `yaml:"report_base_name" envconfig:"REPORT_BASE_NAME" default:"comparison_report"`
	AllowedExtensions []string `yaml:"allowed_extensions" envconfig:"ALLOWED_EXTENSIONS" default:".csv,.txt,.tsv,.tab"`
}

// Load loads configuration from environment variables and an optional
// YAML config file. Environment variables take precedence.
func Load() (*Config, error) {
	return LoadFromFile(configFilePath())
}

// LoadFromFile loads configuration using the given YAML file path.
func LoadFromFile(configFile string) (*Config, error) {
	var fileCfg Config
	if configFile != "" {
		if data, err := os.ReadFile(configFile); err == nil {
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	var envCfg Config
	if err := envconfig.Process(envPrefix, &envCfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg := mergeConfigs(fileCfg, envCfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// mergeConfigs merges file config over env defaults: a file value wins
// over an envconfig default, an explicitly set environment variable
// wins over the file.
func mergeConfigs(fileCfg, envCfg Config) Config {
	merged := envCfg

	if fileCfg.Server.Port != 0 && !envSet("SERVER_PORT") {
		merged.Server.Port = fileCfg.Server.Port
	}
	if fileCfg.Server.ReadTimeout != 0 && !envSet("SERVER_READ_TIMEOUT") {
		merged.Server.ReadTimeout = fileCfg.Server.ReadTimeout
	}
	if fileCfg.Server.WriteTimeout != 0 && !envSet("SERVER_WRITE_TIMEOUT") {
		merged.Server.WriteTimeout = fileCfg.Server.WriteTimeout
	}
	if fileCfg.Server.IdleTimeout != 0 && !envSet("SERVER_IDLE_TIMEOUT") {
		merged.Server.IdleTimeout = fileCfg.Server.IdleTimeout
	}
	if fileCfg.Server.ShutdownTimeout != 0 && !envSet("SERVER_SHUTDOWN_TIMEOUT") {
		merged.Server.ShutdownTimeout = fileCfg.Server.ShutdownTimeout
	}
	if fileCfg.Server.RateLimitRPS != 0 && !envSet("SERVER_RATE_LIMIT_RPS") {
		merged.Server.RateLimitRPS = fileCfg.Server.RateLimitRPS
	}
	if fileCfg.Server.RateLimitBurst != 0 && !envSet("SERVER_RATE_LIMIT_BURST") {
		merged.Server.RateLimitBurst = fileCfg.Server.RateLimitBurst
	}

	if fileCfg.Logging.Level != "" && !envSet("LOGGING_LEVEL") {
		merged.Logging.Level = fileCfg.Logging.Level
	}
	if fileCfg.Logging.Output != "" && !envSet("LOGGING_OUTPUT") {
		merged.Logging.Output = fileCfg.Logging.Output
	}
	if fileCfg.Logging.FilePath != "" && !envSet("LOGGING_FILE_PATH") {
		merged.Logging.FilePath = fileCfg.Logging.FilePath
	}

	if fileCfg.Paths.UploadsDir != "" && !envSet("PATHS_UPLOADS_DIR") {
		merged.Paths.UploadsDir = fileCfg.Paths.UploadsDir
	}
	if fileCfg.Paths.ReportsDir != "" && !envSet("PATHS_REPORTS_DIR") {
		merged.Paths.ReportsDir = fileCfg.Paths.ReportsDir
	}
	if fileCfg.Paths.LogsDir != "" && !envSet("PATHS_LOGS_DIR") {
		merged.Paths.LogsDir = fileCfg.Paths.LogsDir
	}

	if fileCfg.Pipeline.MaxUploadSize != 0 && !envSet("PIPELINE_MAX_UPLOAD_SIZE") {
		merged.Pipeline.MaxUploadSize = fileCfg.Pipeline.MaxUploadSize
	}
	if fileCfg.Pipeline.ParseWorkers != 0 && !envSet("PIPELINE_PARSE_WORKERS") {
		merged.Pipeline.ParseWorkers = fileCfg.Pipeline.ParseWorkers
	}
	if fileCfg.Pipeline.ReportBaseName != "" && !envSet("PIPELINE_REPORT_BASE_NAME") {
		merged.Pipeline.ReportBaseName = fileCfg.Pipeline.ReportBaseName
	}
	if len(fileCfg.Pipeline.AllowedExtensions) != 0 && !envSet("PIPELINE_ALLOWED_EXTENSIONS") {
		merged.Pipeline.AllowedExtensions = fileCfg.Pipeline.AllowedExtensions
	}

	return merged
}

func envSet(suffix string) bool {
	_, ok := os.LookupEnv(envPrefix + "_" + suffix)
	return ok
}

// configFilePath returns the config file location, overridable via env.
func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Pipeline.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.Pipeline.ParseWorkers <= 0 {
		return fmt.Errorf("parse workers must be positive")
	}
	if c.Pipeline.ReportBaseName == "" {
		return fmt.Errorf("report base name must not be empty")
	}
	for _, ext := range c.Pipeline.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}
	return nil
}

// AllowsExtension reports whether the upload extension is accepted.
// Matching is case-insensitive.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range c.Pipeline.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}
