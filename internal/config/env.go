package config

import (
	"fmt"
	"strconv"
	"strings"

	"incident-insights-go/internal/credentials"
)

type lookupFunc func(string) (string, bool)

// applyEnv overlays environment variables. Unset or blank variables leave
// the current value alone.
func (c *Config) applyEnv(lookup lookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	setString := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	var firstErr error
	setInt := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: invalid integer %q", key, v)
				}
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := get(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: invalid number %q", key, v)
				}
				return
			}
			*dst = f
		}
	}

	setString("PORT", &c.Server.Port)
	setString("ENVIRONMENT", &c.Server.Environment)
	setString("LOG_LEVEL", &c.Server.LogLevel)
	setInt("REQUEST_TIMEOUT_SEC", &c.Server.RequestTimeoutSec)
	setInt("MAX_UPLOAD_MB", &c.Server.MaxUploadMB)

	setString("ORACLE_PROVIDER", &c.Oracle.Provider)
	if v, ok := get("LLM_GATEWAY_URL"); ok {
		c.Oracle.BaseURL = v
		if _, explicit := get("ORACLE_PROVIDER"); !explicit {
			c.Oracle.Provider = ProviderGateway
		}
	}
	setString("LLM_MODEL", &c.Oracle.Model)
	if v, ok := get("API_KEYS"); ok {
		c.Oracle.APIKeys = credentials.ParseList(v)
	}
	setFloat("LLM_TEMPERATURE", &c.Oracle.Temperature)
	setString("LLM_SAFETY_THRESHOLD", &c.Oracle.SafetyThreshold)
	if v, ok := get("USE_MOCK_LLM"); ok && v == "true" {
		c.Oracle.Provider = ProviderMock
	}

	setString("TRANSCRIBE_URL", &c.Transcription.URL)
	setString("TRANSCRIBE_API_KEY", &c.Transcription.APIKey)
	setString("TRANSCRIBE_MODEL", &c.Transcription.Model)
	if v, ok := get("USE_MOCK_TRANSCRIBE"); ok && v == "true" {
		c.Transcription.Provider = ProviderMock
	}

	setFloat("FRAME_INTERVAL_SEC", &c.Sampling.IntervalSeconds)
	setInt("FRAME_WORKERS", &c.Sampling.Workers)
	setString("FFMPEG_BINARY", &c.Sampling.FFmpegBinary)
	setString("FFPROBE_BINARY", &c.Sampling.FFprobeBinary)

	setInt("DISPATCH_SEQUENTIAL_THRESHOLD", &c.Dispatch.SequentialThreshold)
	setInt("DISPATCH_BATCH_SIZE", &c.Dispatch.BatchSize)
	setInt("DISPATCH_CONCURRENCY_CAP", &c.Dispatch.ConcurrencyCap)
	setInt("DISPATCH_SUBMISSION_DELAY_MS", &c.Dispatch.SubmissionDelayMS)

	setString("CACHE_BACKEND", &c.Cache.Backend)
	setInt("CACHE_TTL_SEC", &c.Cache.TTLSec)
	setInt("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries)
	setString("CACHE_REDIS_ADDR", &c.Cache.RedisAddr)
	setString("CACHE_REDIS_PASSWORD", &c.Cache.RedisPassword)
	setInt("CACHE_REDIS_DB", &c.Cache.RedisDB)

	setString("ANNOTATE_DIR", &c.Annotate.Dir)
	return firstErr
}
