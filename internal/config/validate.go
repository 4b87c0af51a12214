package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"resolver.concurrency":             c.Resolver.Concurrency,
		"resolver.request_timeout_seconds": c.Resolver.RequestTimeoutSeconds,
		"crawl.new_ids_interval_minutes":   c.Crawl.NewIDsIntervalMinutes,
		"crawl.refresh_interval_minutes":   c.Crawl.RefreshIntervalMinutes,
		"xref.cache_ttl_hours":             c.XRef.CacheTTLHours,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateResolver() error {
	for _, name := range c.Resolver.Catalogs {
		if !isKnownCatalog(name) {
			return fmt.Errorf("resolver.catalogs: unknown catalog %q", name)
		}
		if name == "anilist" {
			return errors.New("resolver.catalogs: anilist is the primary source and is always mapped")
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if err := ensureUnitMap(map[string]float64{
		"matching.loose_overlap":    m.LooseOverlap,
		"matching.loose_similarity": m.LooseSimilarity,
		"matching.fuzzy_threshold":  m.FuzzyThreshold,
	}); err != nil {
		return err
	}
	if m.MaxExtraWords < 0 {
		return errors.New("matching.max_extra_words must be >= 0")
	}
	return nil
}

// MissingAPIKeys lists enabled catalogs whose gateway needs a key that is not
// configured. Those catalogs still load; the resolver records them as absent
// or, for tvdb, matches through the cross-reference dataset only.
func (c *Config) MissingAPIKeys() []string {
	var missing []string
	if c.CatalogEnabled("tmdb") && c.TMDB.APIKey == "" {
		missing = append(missing, "tmdb")
	}
	if c.CatalogEnabled("tvdb") && c.TVDB.APIKey == "" {
		missing = append(missing, "tvdb")
	}
	return missing
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureUnitMap(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be in (0, 1]", key)
		}
	}
	return nil
}
