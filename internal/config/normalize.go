package config

import (
	"fmt"
	"os"
	"strings"

	"animap/internal/catalog"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeResolver()
	c.normalizeHTTP()
	c.normalizeEndpoints()
	c.normalizeTMDB()
	c.normalizeTVDB()
	c.normalizeCrawl()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("ANIMAP_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentLevels) > 0 {
		levels := make(map[string]string, len(c.Logging.ComponentLevels))
		for component, level := range c.Logging.ComponentLevels {
			component = strings.ToLower(strings.TrimSpace(component))
			level = strings.ToLower(strings.TrimSpace(level))
			if component == "" || level == "" {
				continue
			}
			levels[component] = level
		}
		c.Logging.ComponentLevels = levels
	}
}

func (c *Config) normalizeResolver() {
	if c.Resolver.Concurrency <= 0 {
		c.Resolver.Concurrency = defaultResolverConcurrency
	}
	if c.Resolver.RequestTimeoutSeconds <= 0 {
		c.Resolver.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if c.Resolver.Catalogs == nil {
		c.Resolver.Catalogs = append([]string(nil), defaultCatalogs...)
		return
	}
	catalogs := make([]string, 0, len(c.Resolver.Catalogs))
	seen := make(map[string]struct{}, len(c.Resolver.Catalogs))
	for _, name := range c.Resolver.Catalogs {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		catalogs = append(catalogs, normalized)
	}
	c.Resolver.Catalogs = catalogs
}

func (c *Config) normalizeHTTP() {
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaultUserAgent
	}
	if c.HTTP.MaxRetries < 0 {
		c.HTTP.MaxRetries = 0
	}
	if c.HTTP.RetryBaseDelayMS <= 0 {
		c.HTTP.RetryBaseDelayMS = defaultRetryBaseDelayMS
	}
}

func (c *Config) normalizeEndpoints() {
	normalizeEndpoint(&c.AniList, defaultAniListBaseURL, defaultAniListRPS)
	normalizeEndpoint(&c.Jikan, defaultJikanBaseURL, defaultJikanRPS)
	normalizeEndpoint(&c.Kitsu, defaultKitsuBaseURL, defaultKitsuRPS)
}

func normalizeEndpoint(e *Endpoint, baseURL string, rps float64) {
	e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if e.BaseURL == "" {
		e.BaseURL = baseURL
	}
	if e.RequestsPerSecond <= 0 {
		e.RequestsPerSecond = rps
	}
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRPS
	}
}

func (c *Config) normalizeTVDB() {
	if c.TVDB.APIKey == "" {
		if value, ok := os.LookupEnv("TVDB_API_KEY"); ok {
			c.TVDB.APIKey = value
		}
	}
	c.TVDB.APIKey = strings.TrimSpace(c.TVDB.APIKey)
	c.TVDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TVDB.BaseURL), "/")
	if c.TVDB.BaseURL == "" {
		c.TVDB.BaseURL = defaultTVDBBaseURL
	}
	if c.TVDB.RequestsPerSecond <= 0 {
		c.TVDB.RequestsPerSecond = defaultTVDBRPS
	}
}

func (c *Config) normalizeCrawl() {
	c.XRef.URL = strings.TrimSpace(c.XRef.URL)
	if c.XRef.URL == "" {
		c.XRef.URL = defaultXRefURL
	}
	if c.XRef.CacheTTLHours <= 0 {
		c.XRef.CacheTTLHours = defaultXRefCacheTTLHours
	}
	c.Crawl.IDsURL = strings.TrimSpace(c.Crawl.IDsURL)
	if c.Crawl.IDsURL == "" {
		c.Crawl.IDsURL = defaultCrawlIDsURL
	}
	if c.Crawl.NewIDsIntervalMinutes <= 0 {
		c.Crawl.NewIDsIntervalMinutes = defaultNewIDsIntervalMinutes
	}
	if c.Crawl.RefreshIntervalMinutes <= 0 {
		c.Crawl.RefreshIntervalMinutes = defaultRefreshIntervalMinutes
	}
}

func isKnownCatalog(name string) bool {
	_, ok := catalog.ParseName(name)
	return ok
}
