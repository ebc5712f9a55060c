// Package config centralizes configuration for the viafoto commands,
// loaded from YAML files, VIAFOTO_* environment variables and CLI flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete configuration for the viafoto application.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier" json:"classifier"`
	Queue      QueueConfig      `mapstructure:"queue" yaml:"queue" json:"queue"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache" json:"cache"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server" json:"server"`
}

// ClassifierConfig holds remote AI gateway settings.
type ClassifierConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey      string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	Model       string `mapstructure:"model" yaml:"model" json:"model"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	BaseDelayMS int    `mapstructure:"base_delay_ms" yaml:"base_delay_ms" json:"base_delay_ms"`
}

// QueueConfig holds processing queue settings.
type QueueConfig struct {
	BatchSize           int  `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size"`
	PacingDelayMS       int  `mapstructure:"pacing_delay_ms" yaml:"pacing_delay_ms" json:"pacing_delay_ms"`
	EnrichWorkers       int  `mapstructure:"enrich_workers" yaml:"enrich_workers" json:"enrich_workers"`
	LocalOCR            bool `mapstructure:"local_ocr" yaml:"local_ocr" json:"local_ocr"`
	FallbackDelayFactor int  `mapstructure:"fallback_delay_factor" yaml:"fallback_delay_factor" json:"fallback_delay_factor"`
}

// OCRConfig holds local text recognition settings.
type OCRConfig struct {
	TesseractPath string `mapstructure:"tesseract_path" yaml:"tesseract_path" json:"tesseract_path"`
	Languages     string `mapstructure:"languages" yaml:"languages" json:"languages"`
	PSM           string `mapstructure:"psm" yaml:"psm" json:"psm"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend" json:"backend"` // memory or redis
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
}

// RedisConfig holds redis connection settings for the cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db"`
	TTLHours int    `mapstructure:"ttl_hours" yaml:"ttl_hours" json:"ttl_hours"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Classifier: ClassifierConfig{
			Model:       "vision-default",
			TimeoutSec:  120,
			MaxAttempts: 3,
			BaseDelayMS: 2000,
		},
		Queue: QueueConfig{
			BatchSize:           5,
			PacingDelayMS:       3000,
			EnrichWorkers:       3,
			LocalOCR:            true,
			FallbackDelayFactor: 2,
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
			Languages:     "por+eng",
			PSM:           "6",
		},
		Cache: CacheConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     100,
			TimeoutSec:      300,
			ShutdownTimeout: 10,
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	if c.Queue.BatchSize <= 0 {
		return errors.New("queue.batch_size must be > 0")
	}
	if c.Queue.PacingDelayMS < 0 {
		return errors.New("queue.pacing_delay_ms must be >= 0")
	}
	if c.Queue.EnrichWorkers <= 0 {
		return errors.New("queue.enrich_workers must be > 0")
	}
	if c.Classifier.MaxAttempts <= 0 {
		return errors.New("classifier.max_attempts must be > 0")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache.backend %q (memory or redis)", c.Cache.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// PacingDelay returns the queue pacing delay as a duration.
func (c *Config) PacingDelay() time.Duration {
	return time.Duration(c.Queue.PacingDelayMS) * time.Millisecond
}

// RetryBaseDelay returns the classifier retry base delay as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Classifier.BaseDelayMS) * time.Millisecond
}

// ClassifierTimeout returns the classifier request timeout as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSec) * time.Second
}
