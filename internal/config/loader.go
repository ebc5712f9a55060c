package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files.
	ConfigFileName = "viafoto"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "VIAFOTO"
)

// Loader resolves configuration from files, environment and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader backed by the global viper instance so cobra
// flag bindings are honored.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load resolves and validates the configuration from the default search
// paths. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	return l.load("")
}

// LoadWithFile resolves and validates the configuration from a specific
// file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
	}
	return l.load(configFile)
}

func (l *Loader) load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file found; defaults and env vars apply.
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper { return l.v }

// ConfigFileUsed returns the path of the resolved config file, if any.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "viafoto"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "viafoto"))
	}
	l.v.AddConfigPath("/etc/viafoto")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("classifier.model", defaults.Classifier.Model)
	l.v.SetDefault("classifier.timeout_sec", defaults.Classifier.TimeoutSec)
	l.v.SetDefault("classifier.max_attempts", defaults.Classifier.MaxAttempts)
	l.v.SetDefault("classifier.base_delay_ms", defaults.Classifier.BaseDelayMS)

	l.v.SetDefault("queue.batch_size", defaults.Queue.BatchSize)
	l.v.SetDefault("queue.pacing_delay_ms", defaults.Queue.PacingDelayMS)
	l.v.SetDefault("queue.enrich_workers", defaults.Queue.EnrichWorkers)
	l.v.SetDefault("queue.local_ocr", defaults.Queue.LocalOCR)
	l.v.SetDefault("queue.fallback_delay_factor", defaults.Queue.FallbackDelayFactor)

	l.v.SetDefault("ocr.tesseract_path", defaults.OCR.TesseractPath)
	l.v.SetDefault("ocr.languages", defaults.OCR.Languages)
	l.v.SetDefault("ocr.psm", defaults.OCR.PSM)

	l.v.SetDefault("cache.backend", defaults.Cache.Backend)
	l.v.SetDefault("cache.redis.addr", defaults.Cache.Redis.Addr)
	l.v.SetDefault("cache.redis.db", defaults.Cache.Redis.DB)
	l.v.SetDefault("cache.redis.ttl_hours", defaults.Cache.Redis.TTLHours)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
}
