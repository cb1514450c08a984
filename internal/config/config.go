package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP request surface settings.
type Server struct {
	Bind            string   `toml:"bind"`
	CORSOrigins     []string `toml:"cors_origins"`
	RequestTimeout  int      `toml:"request_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	ServiceName     string   `toml:"service_name"`
	MaxTextBytes    int      `toml:"max_text_bytes"`
}

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	ModelDir   string `toml:"model_dir"`
}

// Cache contains configuration for the verdict cache.
type Cache struct {
	// Backend selects the store: auto, memory, redis, sqlite, or none.
	Backend       string `toml:"backend"`
	RedisURL      string `toml:"redis_url"`
	SQLitePath    string `toml:"sqlite_path"`
	TTLSeconds    int    `toml:"ttl_seconds"`
	SweepInterval int    `toml:"sweep_interval"`
}

// Oracle contains the reasoning oracle connection settings.
type Oracle struct {
	// Provider selects the backend: gemini (media + text) or openrouter (text only).
	Provider        string `toml:"provider"`
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	UploadURL       string `toml:"upload_url"`
	Model           string `toml:"model"`
	Referer         string `toml:"referer"`
	Title           string `toml:"title"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	PollInterval    int    `toml:"poll_interval"`
	PollMaxInterval int    `toml:"poll_max_interval"`
	PollMaxAttempts int    `toml:"poll_max_attempts"`
	PollDeadline    int    `toml:"poll_deadline"`
}

// Acquire contains configuration for the media acquisition adapter.
type Acquire struct {
	YtDlpBinary    string `toml:"ytdlp_binary"`
	YtDlpFormat    string `toml:"ytdlp_format"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxImageMiB    int    `toml:"max_image_mib"`
	MinFreeMiB     int    `toml:"min_free_mib"`
	UserAgent      string `toml:"user_agent"`
}

// Forensics contains tuning for the evidence extractors.
type Forensics struct {
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	FFprobeBinary    string  `toml:"ffprobe_binary"`
	ELAQuality       int     `toml:"ela_quality"`
	ELAThreshold     float64 `toml:"ela_threshold"`
	FluxSamples      int     `toml:"flux_samples"`
	ExtractorTimeout int     `toml:"extractor_timeout"`
}

// Models points at the offline-trained classifier artifacts.
type Models struct {
	FrequencyPath string `toml:"frequency_path"`
	AnomalyPath   string `toml:"anomaly_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for deepcheck.
//
// Configuration sections by subsystem:
//   - Server: HTTP bind address, CORS origins, request limits
//   - Paths: staging (transient media), logs, and model directories
//   - Cache: verdict cache backend and TTL
//   - Oracle: reasoning oracle provider, credentials, and readiness polling
//   - Acquire: yt-dlp and HTTP download settings
//   - Forensics: ffmpeg/ffprobe binaries and extractor tuning
//   - Models: trained classifier artifact paths
//   - Logging: log format and level
type Config struct {
	Server    Server    `toml:"server"`
	Paths     Paths     `toml:"paths"`
	Cache     Cache     `toml:"cache"`
	Oracle    Oracle    `toml:"oracle"`
	Acquire   Acquire   `toml:"acquire"`
	Forensics Forensics `toml:"forensics"`
	Models    Models    `toml:"models"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/deepcheck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("deepcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server and CLI write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.ModelDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Backend == CacheBackendSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Cache.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	return nil
}

// RequireOracle reports a configuration error when no oracle credentials are set.
// Commands that only train or inspect models skip this check.
func (c *Config) RequireOracle() error {
	if strings.TrimSpace(c.Oracle.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/deepcheck/config.toml"
	}
	envName := "GEMINI_API_KEY"
	if c.Oracle.Provider == OracleProviderOpenRouter {
		envName = "OPENROUTER_API_KEY"
	}
	return fmt.Errorf("oracle.api_key is required. Set %s env var or edit %s (create with 'deepcheck config init')", envName, defaultPath)
}

// CacheTTL returns the verdict cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// RequestTimeout returns the per-request pipeline budget.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// FrequencyModelPath returns the frequency classifier artifact path.
func (c *Config) FrequencyModelPath() string {
	return c.Models.FrequencyPath
}

// AnomalyModelPath returns the PCA anomaly artifact path.
func (c *Config) AnomalyModelPath() string {
	return c.Models.AnomalyPath
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string { return sampleConfig }

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
