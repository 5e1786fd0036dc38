// Package config loads service settings: built-in defaults, then an optional
// TOML or YAML file, then environment variables (a local .env is honoured).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `toml:"port" yaml:"port"`
	Environment       string `toml:"environment" yaml:"environment"`
	LogLevel          string `toml:"log_level" yaml:"log_level"`
	RequestTimeoutSec int    `toml:"request_timeout_sec" yaml:"request_timeout_sec"`
	MaxUploadMB       int    `toml:"max_upload_mb" yaml:"max_upload_mb"`
}

type Oracle struct {
	// Provider is gemini, gateway or mock.
	Provider        string   `toml:"provider" yaml:"provider"`
	BaseURL         string   `toml:"base_url" yaml:"base_url"`
	Model           string   `toml:"model" yaml:"model"`
	APIKeys         []string `toml:"api_keys" yaml:"api_keys"`
	Temperature     float64  `toml:"temperature" yaml:"temperature"`
	SafetyThreshold string   `toml:"safety_threshold" yaml:"safety_threshold"`
	TimeoutSec      int      `toml:"timeout_sec" yaml:"timeout_sec"`
	MaxRetrySec     int      `toml:"max_retry_sec" yaml:"max_retry_sec"`
}

type Transcription struct {
	// Provider is whisper or mock.
	Provider   string `toml:"provider" yaml:"provider"`
	URL        string `toml:"url" yaml:"url"`
	APIKey     string `toml:"api_key" yaml:"api_key"`
	Model      string `toml:"model" yaml:"model"`
	TimeoutSec int    `toml:"timeout_sec" yaml:"timeout_sec"`
}

type Sampling struct {
	IntervalSeconds   float64 `toml:"interval_seconds" yaml:"interval_seconds"`
	Workers           int     `toml:"workers" yaml:"workers"`
	MaxImageDimension int     `toml:"max_image_dimension" yaml:"max_image_dimension"`
	FFmpegBinary      string  `toml:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	FFprobeBinary     string  `toml:"ffprobe_binary" yaml:"ffprobe_binary"`
}

type Dispatch struct {
	SequentialThreshold int `toml:"sequential_threshold" yaml:"sequential_threshold"`
	BatchSize           int `toml:"batch_size" yaml:"batch_size"`
	ConcurrencyCap      int `toml:"concurrency_cap" yaml:"concurrency_cap"`
	SubmissionDelayMS   int `toml:"submission_delay_ms" yaml:"submission_delay_ms"`
}

type Cache struct {
	// Backend is none, memory or redis.
	Backend       string `toml:"backend" yaml:"backend"`
	TTLSec        int    `toml:"ttl_sec" yaml:"ttl_sec"`
	MaxEntries    int    `toml:"max_entries" yaml:"max_entries"`
	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
}

type Annotate struct {
	// Dir receives labelled frame copies; empty disables annotation.
	Dir string `toml:"dir" yaml:"dir"`
}

type Config struct {
	Server        Server        `toml:"server" yaml:"server"`
	Oracle        Oracle        `toml:"oracle" yaml:"oracle"`
	Transcription Transcription `toml:"transcription" yaml:"transcription"`
	Sampling      Sampling      `toml:"sampling" yaml:"sampling"`
	Dispatch      Dispatch      `toml:"dispatch" yaml:"dispatch"`
	Cache         Cache         `toml:"cache" yaml:"cache"`
	Annotate      Annotate      `toml:"annotate" yaml:"annotate"`
}

// Load resolves the configuration. path may be empty; a missing file is not
// an error, the defaults and environment still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(file).Decode(c); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Oracle.Provider = strings.ToLower(strings.TrimSpace(c.Oracle.Provider))
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))

	keys := c.Oracle.APIKeys[:0]
	for _, k := range c.Oracle.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.Oracle.APIKeys = keys
	// The mock oracle ignores credentials but still draws one per call.
	if c.Oracle.Provider == ProviderMock && len(c.Oracle.APIKeys) == 0 {
		c.Oracle.APIKeys = []string{"mock"}
	}
	c.Annotate.Dir = strings.TrimSpace(c.Annotate.Dir)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

func (c *Config) SubmissionDelay() time.Duration {
	return time.Duration(c.Dispatch.SubmissionDelayMS) * time.Millisecond
}

func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSec) * time.Second
}

func (c *Config) OracleMaxRetry() time.Duration {
	return time.Duration(c.Oracle.MaxRetrySec) * time.Second
}

func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}
