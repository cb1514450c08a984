package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeOracle()
	c.normalizeAcquire()
	c.normalizeForensics()
	if err := c.normalizeModels(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("DEEPCHECK_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("PORT"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = "0.0.0.0:" + strings.TrimSpace(value)
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.ServiceName = strings.TrimSpace(c.Server.ServiceName)
	if c.Server.ServiceName == "" {
		c.Server.ServiceName = defaultServiceName
	}
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.CORSOrigins = origins
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelDir) == "" {
		c.Paths.ModelDir = defaultModelDir
	}
	if c.Paths.ModelDir, err = expandPath(c.Paths.ModelDir); err != nil {
		return fmt.Errorf("paths.model_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if value, ok := os.LookupEnv("REDIS_URL"); ok && strings.TrimSpace(value) != "" {
		c.Cache.RedisURL = strings.TrimSpace(value)
	}
	c.Cache.RedisURL = strings.TrimSpace(c.Cache.RedisURL)
	if c.Cache.RedisURL == "" {
		c.Cache.RedisURL = defaultRedisURL
	}
	if strings.TrimSpace(c.Cache.SQLitePath) == "" {
		c.Cache.SQLitePath = defaultCacheSQLitePath
	}
	var err error
	if c.Cache.SQLitePath, err = expandPath(c.Cache.SQLitePath); err != nil {
		return fmt.Errorf("cache.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeOracle() {
	c.Oracle.Provider = strings.ToLower(strings.TrimSpace(c.Oracle.Provider))
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = defaultOracleProvider
	}
	c.Oracle.APIKey = strings.TrimSpace(c.Oracle.APIKey)
	if c.Oracle.APIKey == "" {
		envName := "GEMINI_API_KEY"
		if c.Oracle.Provider == OracleProviderOpenRouter {
			envName = "OPENROUTER_API_KEY"
		}
		if value, ok := os.LookupEnv(envName); ok {
			c.Oracle.APIKey = strings.TrimSpace(value)
		}
	}
	c.Oracle.BaseURL = strings.TrimSpace(c.Oracle.BaseURL)
	c.Oracle.UploadURL = strings.TrimSpace(c.Oracle.UploadURL)
	c.Oracle.Model = strings.TrimSpace(c.Oracle.Model)
	switch c.Oracle.Provider {
	case OracleProviderOpenRouter:
		if c.Oracle.BaseURL == "" {
			c.Oracle.BaseURL = defaultOpenRouterBaseURL
		}
		if c.Oracle.Model == "" {
			c.Oracle.Model = defaultOpenRouterModel
		}
	default:
		if c.Oracle.BaseURL == "" {
			c.Oracle.BaseURL = defaultGeminiBaseURL
		}
		if c.Oracle.UploadURL == "" {
			c.Oracle.UploadURL = defaultGeminiUploadURL
		}
		if c.Oracle.Model == "" {
			c.Oracle.Model = defaultGeminiModel
		}
	}
	c.Oracle.Referer = strings.TrimSpace(c.Oracle.Referer)
	c.Oracle.Title = strings.TrimSpace(c.Oracle.Title)
}

func (c *Config) normalizeAcquire() {
	c.Acquire.YtDlpBinary = strings.TrimSpace(c.Acquire.YtDlpBinary)
	if c.Acquire.YtDlpBinary == "" {
		c.Acquire.YtDlpBinary = defaultYtDlpBinary
	}
	c.Acquire.YtDlpFormat = strings.TrimSpace(c.Acquire.YtDlpFormat)
	if c.Acquire.YtDlpFormat == "" {
		c.Acquire.YtDlpFormat = defaultYtDlpFormat
	}
	c.Acquire.UserAgent = strings.TrimSpace(c.Acquire.UserAgent)
	if c.Acquire.UserAgent == "" {
		c.Acquire.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeForensics() {
	c.Forensics.FFmpegBinary = strings.TrimSpace(c.Forensics.FFmpegBinary)
	if c.Forensics.FFmpegBinary == "" {
		c.Forensics.FFmpegBinary = defaultFFmpegBinary
	}
	c.Forensics.FFprobeBinary = strings.TrimSpace(c.Forensics.FFprobeBinary)
	if c.Forensics.FFprobeBinary == "" {
		c.Forensics.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeModels() error {
	var err error
	if strings.TrimSpace(c.Models.FrequencyPath) == "" {
		c.Models.FrequencyPath = filepath.Join(c.Paths.ModelDir, defaultFrequencyModelName)
	}
	if c.Models.FrequencyPath, err = expandPath(c.Models.FrequencyPath); err != nil {
		return fmt.Errorf("models.frequency_path: %w", err)
	}
	if strings.TrimSpace(c.Models.AnomalyPath) == "" {
		c.Models.AnomalyPath = filepath.Join(c.Paths.ModelDir, defaultAnomalyModelName)
	}
	if c.Models.AnomalyPath, err = expandPath(c.Models.AnomalyPath); err != nil {
		return fmt.Errorf("models.anomaly_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
