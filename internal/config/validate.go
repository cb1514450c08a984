package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
//
// Oracle credentials are not checked here because training and prediction
// commands run without them; see RequireOracle.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateAcquire(); err != nil {
		return err
	}
	if err := c.validateForensics(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	if err := ensurePositiveMap(map[string]int{
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"server.max_text_bytes":   c.Server.MaxTextBytes,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendAuto, CacheBackendMemory, CacheBackendRedis, CacheBackendSQLite, CacheBackendNone:
	default:
		return fmt.Errorf("cache.backend must be one of auto, memory, redis, sqlite, none (got %q)", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds <= 0 {
		return errors.New("cache.ttl_seconds must be positive")
	}
	if c.Cache.SweepInterval < 0 {
		return errors.New("cache.sweep_interval must be >= 0")
	}
	if c.Cache.Backend == CacheBackendSQLite && strings.TrimSpace(c.Cache.SQLitePath) == "" {
		return errors.New("cache.sqlite_path must be set when cache.backend is sqlite")
	}
	return nil
}

func (c *Config) validateOracle() error {
	switch c.Oracle.Provider {
	case OracleProviderGemini, OracleProviderOpenRouter:
	default:
		return fmt.Errorf("oracle.provider must be gemini or openrouter (got %q)", c.Oracle.Provider)
	}
	if err := ensurePositiveMap(map[string]int{
		"oracle.timeout_seconds":   c.Oracle.TimeoutSeconds,
		"oracle.poll_interval":     c.Oracle.PollInterval,
		"oracle.poll_max_interval": c.Oracle.PollMaxInterval,
		"oracle.poll_max_attempts": c.Oracle.PollMaxAttempts,
		"oracle.poll_deadline":     c.Oracle.PollDeadline,
	}); err != nil {
		return err
	}
	if c.Oracle.PollMaxInterval < c.Oracle.PollInterval {
		return errors.New("oracle.poll_max_interval must be >= oracle.poll_interval")
	}
	return nil
}

func (c *Config) validateAcquire() error {
	if err := ensurePositiveMap(map[string]int{
		"acquire.timeout_seconds": c.Acquire.TimeoutSeconds,
		"acquire.max_image_mib":   c.Acquire.MaxImageMiB,
	}); err != nil {
		return err
	}
	if c.Acquire.MinFreeMiB < 0 {
		return errors.New("acquire.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateForensics() error {
	if c.Forensics.ELAQuality < 1 || c.Forensics.ELAQuality > 100 {
		return errors.New("forensics.ela_quality must be between 1 and 100")
	}
	if c.Forensics.ELAThreshold < 0 {
		return errors.New("forensics.ela_threshold must be >= 0")
	}
	if c.Forensics.FluxSamples < 2 {
		return errors.New("forensics.flux_samples must be at least 2")
	}
	if c.Forensics.ExtractorTimeout <= 0 {
		return errors.New("forensics.extractor_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
