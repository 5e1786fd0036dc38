package config

const (
	ProviderGemini  = "gemini"
	ProviderGateway = "gateway"
	ProviderWhisper = "whisper"
	ProviderMock    = "mock"

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"

	defaultPort              = "8080"
	defaultEnvironment       = "local"
	defaultLogLevel          = "info"
	defaultRequestTimeoutSec = 300
	defaultMaxUploadMB       = 512

	defaultOracleModel     = "gemini-2.0-flash"
	defaultTemperature     = 0.2
	defaultSafetyThreshold = "BLOCK_ONLY_HIGH"
	defaultOracleTimeout   = 25
	defaultOracleMaxRetry  = 45

	defaultWhisperModel   = "whisper-1"
	defaultWhisperTimeout = 60

	defaultInterval          = 2.0
	defaultWorkers           = 2
	defaultMaxImageDimension = 800

	defaultSequentialThreshold = 5
	defaultBatchSize           = 2
	defaultConcurrencyCap      = 4
	defaultSubmissionDelayMS   = 500

	defaultCacheTTLSec     = 3600
	defaultCacheMaxEntries = 4096
)

func Default() Config {
	return Config{
		Server: Server{
			Port:              defaultPort,
			Environment:       defaultEnvironment,
			LogLevel:          defaultLogLevel,
			RequestTimeoutSec: defaultRequestTimeoutSec,
			MaxUploadMB:       defaultMaxUploadMB,
		},
		Oracle: Oracle{
			Provider:        ProviderGemini,
			Model:           defaultOracleModel,
			Temperature:     defaultTemperature,
			SafetyThreshold: defaultSafetyThreshold,
			TimeoutSec:      defaultOracleTimeout,
			MaxRetrySec:     defaultOracleMaxRetry,
		},
		Transcription: Transcription{
			Provider:   ProviderWhisper,
			Model:      defaultWhisperModel,
			TimeoutSec: defaultWhisperTimeout,
		},
		Sampling: Sampling{
			IntervalSeconds:   defaultInterval,
			Workers:           defaultWorkers,
			MaxImageDimension: defaultMaxImageDimension,
			FFmpegBinary:      "ffmpeg",
			FFprobeBinary:     "ffprobe",
		},
		Dispatch: Dispatch{
			SequentialThreshold: defaultSequentialThreshold,
			BatchSize:           defaultBatchSize,
			ConcurrencyCap:      defaultConcurrencyCap,
			SubmissionDelayMS:   defaultSubmissionDelayMS,
		},
		Cache: Cache{
			Backend:    CacheNone,
			TTLSec:     defaultCacheTTLSec,
			MaxEntries: defaultCacheMaxEntries,
		},
	}
}
