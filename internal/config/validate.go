package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSampling(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	return c.validateCache()
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server.port must be set")
	}
	if c.Server.RequestTimeoutSec < 0 {
		return errors.New("server.request_timeout_sec must be >= 0")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateOracle() error {
	switch c.Oracle.Provider {
	case ProviderGemini, ProviderMock:
	case ProviderGateway:
		if c.Oracle.BaseURL == "" {
			return errors.New("oracle.base_url is required for the gateway provider. Set LLM_GATEWAY_URL")
		}
	default:
		return fmt.Errorf("oracle.provider %q is not one of gemini, gateway, mock", c.Oracle.Provider)
	}
	if len(c.Oracle.APIKeys) == 0 {
		return errors.New("oracle.api_keys is required. Set API_KEYS to a comma separated list")
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return errors.New("oracle.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case ProviderMock:
	case ProviderWhisper:
		if c.Transcription.URL == "" {
			return errors.New("transcription.url is required for the whisper provider. Set TRANSCRIBE_URL or USE_MOCK_TRANSCRIBE=true")
		}
	default:
		return fmt.Errorf("transcription.provider %q is not one of whisper, mock", c.Transcription.Provider)
	}
	return nil
}

func (c *Config) validateSampling() error {
	if c.Sampling.IntervalSeconds <= 0 {
		return errors.New("sampling.interval_seconds must be positive")
	}
	if c.Sampling.Workers < 1 {
		return errors.New("sampling.workers must be >= 1")
	}
	if c.Sampling.MaxImageDimension < 16 {
		return errors.New("sampling.max_image_dimension must be >= 16")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.SequentialThreshold < 0 {
		return errors.New("dispatch.sequential_threshold must be >= 0")
	}
	if c.Dispatch.BatchSize < 1 {
		return errors.New("dispatch.batch_size must be >= 1")
	}
	if c.Dispatch.ConcurrencyCap < 1 {
		return errors.New("dispatch.concurrency_cap must be >= 1")
	}
	if c.Dispatch.SubmissionDelayMS < 0 {
		return errors.New("dispatch.submission_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheNone, "":
	case CacheMemory:
		if c.Cache.TTLSec <= 0 {
			return errors.New("cache.ttl_sec must be positive")
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend. Set CACHE_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("cache.backend %q is not one of none, memory, redis", c.Cache.Backend)
	}
	return nil
}
