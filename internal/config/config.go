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

	"animap/internal/matching"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format          string            `toml:"format"`
	Level           string            `toml:"level"`
	ComponentLevels map[string]string `toml:"component_levels"`
}

// Resolver controls how a single resolution fans out.
type Resolver struct {
	Concurrency           int      `toml:"concurrency"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	Catalogs              []string `toml:"catalogs"`
}

// Matching mirrors matching.Options so thresholds can be tuned without a rebuild.
type Matching struct {
	LooseOverlap           float64 `toml:"loose_overlap"`
	LooseSimilarity        float64 `toml:"loose_similarity"`
	MaxExtraWords          int     `toml:"max_extra_words"`
	RequireNumberOverlap   bool    `toml:"require_number_overlap"`
	RequireQualifierParity bool    `toml:"require_qualifier_parity"`
	FuzzyThreshold         float64 `toml:"fuzzy_threshold"`
}

// HTTP contains transport settings shared by every gateway.
type HTTP struct {
	UserAgent        string `toml:"user_agent"`
	MaxRetries       int    `toml:"max_retries"`
	RetryBaseDelayMS int    `toml:"retry_base_delay_ms"`
}

// Endpoint is a catalog API location plus its request budget.
type Endpoint struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	ImageBaseURL      string  `toml:"image_base_url"`
	Language          string  `toml:"language"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TVDB contains configuration for TheTVDB v4 API.
type TVDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// XRef locates the community cross-reference dataset.
type XRef struct {
	URL           string `toml:"url"`
	CacheTTLHours int    `toml:"cache_ttl_hours"`
}

// Crawl controls the background crawler.
type Crawl struct {
	IDsURL                 string `toml:"ids_url"`
	NewIDsIntervalMinutes  int    `toml:"new_ids_interval_minutes"`
	RefreshIntervalMinutes int    `toml:"refresh_interval_minutes"`
}

// Config encapsulates all configuration values for animap.
//
// Configuration sections by subsystem:
//   - Paths: database and log directories
//   - Logging: log format, level, and per-component overrides
//   - Resolver: fan-out width, per-request timeout, enabled catalogs
//   - Matching: loose and fuzzy tier thresholds
//   - HTTP: user agent and 429 retry budget
//   - AniList, TMDB, TVDB, Jikan, Kitsu: catalog endpoints and rate limits
//   - XRef: cross-reference dataset used when TVDB search finds nothing
//   - Crawl: id list source and crawler intervals
type Config struct {
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
	Resolver Resolver `toml:"resolver"`
	Matching Matching `toml:"matching"`
	HTTP     HTTP     `toml:"http"`
	AniList  Endpoint `toml:"anilist"`
	TMDB     TMDB     `toml:"tmdb"`
	TVDB     TVDB     `toml:"tvdb"`
	Jikan    Endpoint `toml:"jikan"`
	Kitsu    Endpoint `toml:"kitsu"`
	XRef     XRef     `toml:"xref"`
	Crawl    Crawl    `toml:"crawl"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("animap.toml")
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

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the sqlite file holding resolved entities.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "animap.db")
}

// XRefCachePath is where the cross-reference dataset is cached between runs.
func (c *Config) XRefCachePath() string {
	return filepath.Join(c.Paths.DataDir, "xref.json")
}

// LockPath is the crawler's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "crawl.lock")
}

// RequestTimeout converts resolver.request_timeout_seconds into a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Resolver.RequestTimeoutSeconds) * time.Second
}

// RetryBaseDelay converts http.retry_base_delay_ms into a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.HTTP.RetryBaseDelayMS) * time.Millisecond
}

// XRefTTL converts xref.cache_ttl_hours into a duration.
func (c *Config) XRefTTL() time.Duration {
	return time.Duration(c.XRef.CacheTTLHours) * time.Hour
}

// CatalogEnabled reports whether name appears in resolver.catalogs.
func (c *Config) CatalogEnabled(name string) bool {
	for _, enabled := range c.Resolver.Catalogs {
		if enabled == name {
			return true
		}
	}
	return false
}

// MatchingOptions returns the matcher thresholds.
func (c *Config) MatchingOptions() matching.Options {
	return matching.Options{
		LooseOverlap:           c.Matching.LooseOverlap,
		LooseSimilarity:        c.Matching.LooseSimilarity,
		MaxExtraWords:          c.Matching.MaxExtraWords,
		RequireNumberOverlap:   c.Matching.RequireNumberOverlap,
		RequireQualifierParity: c.Matching.RequireQualifierParity,
		FuzzyThreshold:         c.Matching.FuzzyThreshold,
	}
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

// SampleConfig returns the embedded commented sample.
func SampleConfig() string {
	return sampleConfig
}

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
