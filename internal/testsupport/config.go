package testsupport

import (
	"path/filepath"
	"testing"

	"animap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.TVDB.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.HTTP.RetryBaseDelayMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithCatalogs replaces the enabled secondary catalogs.
func WithCatalogs(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolver.Catalogs = append([]string(nil), names...)
	}
}

// WithEndpoints points every HTTP gateway at the same test server.
func WithEndpoints(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AniList.BaseURL = baseURL + "/anilist"
		b.cfg.Jikan.BaseURL = baseURL + "/jikan"
		b.cfg.Kitsu.BaseURL = baseURL + "/kitsu"
		b.cfg.TMDB.BaseURL = baseURL + "/tmdb"
		b.cfg.TVDB.BaseURL = baseURL + "/tvdb"
		b.cfg.XRef.URL = baseURL + "/xref.json"
		b.cfg.Crawl.IDsURL = baseURL + "/ids.txt"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
