package config

const (
	CacheBackendAuto   = "auto"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
	CacheBackendNone   = "none"

	OracleProviderGemini     = "gemini"
	OracleProviderOpenRouter = "openrouter"
)

const (
	defaultBind                = "0.0.0.0:8000"
	defaultServiceName         = "deepcheck"
	defaultRequestTimeout      = 600
	defaultShutdownTimeout     = 10
	defaultMaxTextBytes        = 64 * 1024
	defaultStagingDir          = "~/.local/share/deepcheck/staging"
	defaultLogDir              = "~/.local/share/deepcheck/logs"
	defaultModelDir            = "~/.local/share/deepcheck/models"
	defaultCacheBackend        = CacheBackendAuto
	defaultRedisURL            = "redis://localhost:6379"
	defaultCacheSQLitePath     = "~/.cache/deepcheck/verdicts.db"
	defaultCacheTTLSeconds     = 86400
	defaultCacheSweepInterval  = 300
	defaultOracleProvider      = OracleProviderGemini
	defaultGeminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiUploadURL     = "https://generativelanguage.googleapis.com/upload/v1beta/files"
	defaultGeminiModel         = "gemini-2.5-flash"
	defaultOpenRouterBaseURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel     = "google/gemini-2.5-flash"
	defaultOracleReferer       = "https://github.com/deepcheck/deepcheck"
	defaultOracleTitle         = "deepcheck"
	defaultOracleTimeout       = 120
	defaultPollInterval        = 2
	defaultPollMaxInterval     = 15
	defaultPollMaxAttempts     = 40
	defaultPollDeadline        = 300
	defaultYtDlpBinary         = "yt-dlp"
	defaultYtDlpFormat         = "best[ext=mp4]/best"
	defaultAcquireTimeout      = 300
	defaultMaxImageMiB         = 50
	defaultMinFreeMiB          = 512
	defaultUserAgent           = "deepcheck/dev"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultELAQuality          = 90
	defaultELAThreshold        = 2.0
	defaultFluxSamples         = 8
	defaultExtractorTimeout    = 120
	defaultFrequencyModelName  = "deepfake_fft_model.json"
	defaultAnomalyModelName    = "deepfake_detector_pca.json"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultCORSExtensionOrigin = "chrome-extension://*"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:            defaultBind,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173", defaultCORSExtensionOrigin},
			RequestTimeout:  defaultRequestTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			ServiceName:     defaultServiceName,
			MaxTextBytes:    defaultMaxTextBytes,
		},
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			ModelDir:   defaultModelDir,
		},
		Cache: Cache{
			Backend:       defaultCacheBackend,
			RedisURL:      defaultRedisURL,
			SQLitePath:    defaultCacheSQLitePath,
			TTLSeconds:    defaultCacheTTLSeconds,
			SweepInterval: defaultCacheSweepInterval,
		},
		Oracle: Oracle{
			Provider:        defaultOracleProvider,
			Referer:         defaultOracleReferer,
			Title:           defaultOracleTitle,
			TimeoutSeconds:  defaultOracleTimeout,
			PollInterval:    defaultPollInterval,
			PollMaxInterval: defaultPollMaxInterval,
			PollMaxAttempts: defaultPollMaxAttempts,
			PollDeadline:    defaultPollDeadline,
		},
		Acquire: Acquire{
			YtDlpBinary:    defaultYtDlpBinary,
			YtDlpFormat:    defaultYtDlpFormat,
			TimeoutSeconds: defaultAcquireTimeout,
			MaxImageMiB:    defaultMaxImageMiB,
			MinFreeMiB:     defaultMinFreeMiB,
			UserAgent:      defaultUserAgent,
		},
		Forensics: Forensics{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			ELAQuality:       defaultELAQuality,
			ELAThreshold:     defaultELAThreshold,
			FluxSamples:      defaultFluxSamples,
			ExtractorTimeout: defaultExtractorTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
