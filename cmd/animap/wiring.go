package main

import (
	"fmt"
	"log/slog"

	"animap/internal/catalog"
	"animap/internal/config"
	"animap/internal/gateways/anilist"
	"animap/internal/gateways/jikan"
	"animap/internal/gateways/kitsu"
	"animap/internal/gateways/tmdb"
	"animap/internal/gateways/tvdb"
	"animap/internal/httpx"
	"animap/internal/logging"
	"animap/internal/matching"
	"animap/internal/resolve"
	"animap/internal/xref"
)

// newHTTPClient applies the shared transport settings plus the catalog's own
// request budget.
func newHTTPClient(cfg *config.Config, name string, rps float64, extra ...httpx.Option) *httpx.Client {
	opts := []httpx.Option{
		httpx.WithLimiter(httpx.NewLimiter(rps)),
		httpx.WithUserAgent(cfg.HTTP.UserAgent),
		httpx.WithRetry(cfg.HTTP.MaxRetries, cfg.RetryBaseDelay()),
		httpx.WithTimeout(cfg.RequestTimeout()),
	}
	return httpx.New(name, append(opts, extra...)...)
}

func buildResolver(cfg *config.Config, logger *slog.Logger) (*resolve.Resolver, error) {
	primary, err := anilist.New(cfg.AniList.BaseURL, newHTTPClient(cfg, "anilist", cfg.AniList.RequestsPerSecond))
	if err != nil {
		return nil, fmt.Errorf("anilist gateway: %w", err)
	}
	bindings, err := buildBindings(cfg, logger)
	if err != nil {
		return nil, err
	}
	return resolve.New(primary, bindings,
		resolve.WithMatcher(matching.New(cfg.MatchingOptions())),
		resolve.WithConcurrency(cfg.Resolver.Concurrency),
		resolve.WithRequestTimeout(cfg.RequestTimeout()),
		resolve.WithLogger(logger),
	), nil
}

func buildBindings(cfg *config.Config, logger *slog.Logger) ([]resolve.Binding, error) {
	wiring := logging.ForComponent(logger, "wiring", cfg.Logging.ComponentLevels)
	missingKey := make(map[catalog.Name]bool)
	for _, raw := range cfg.MissingAPIKeys() {
		if name, ok := catalog.ParseName(raw); ok {
			missingKey[name] = true
		}
	}
	bindings := make([]resolve.Binding, 0, len(cfg.Resolver.Catalogs))
	for _, raw := range cfg.Resolver.Catalogs {
		name, ok := catalog.ParseName(raw)
		if !ok {
			return nil, fmt.Errorf("resolver.catalogs: unknown catalog %q", raw)
		}
		switch {
		case name == catalog.MAL:
			client, err := jikan.New(cfg.Jikan.BaseURL, newHTTPClient(cfg, "jikan", cfg.Jikan.RequestsPerSecond))
			if err != nil {
				return nil, fmt.Errorf("jikan gateway: %w", err)
			}
			bindings = append(bindings, resolve.NewBinding(catalog.MAL, client))
		case name == catalog.Kitsu:
			client, err := kitsu.New(cfg.Kitsu.BaseURL, newHTTPClient(cfg, "kitsu", cfg.Kitsu.RequestsPerSecond, kitsu.Options()...))
			if err != nil {
				return nil, fmt.Errorf("kitsu gateway: %w", err)
			}
			bindings = append(bindings, resolve.NewBinding(catalog.Kitsu, client))
		case name == catalog.TMDB && !missingKey[name]:
			client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.ImageBaseURL, cfg.TMDB.Language,
				newHTTPClient(cfg, "tmdb", cfg.TMDB.RequestsPerSecond))
			if err != nil {
				return nil, fmt.Errorf("tmdb gateway: %w", err)
			}
			b := resolve.NewBinding(catalog.TMDB, client)
			b.Query = resolve.QueryEnglishFirst
			bindings = append(bindings, b)
		case name == catalog.TVDB:
			source := xref.NewSource(cfg.XRef.URL, cfg.XRefCachePath(), cfg.XRefTTL(),
				newHTTPClient(cfg, "xref", 0), logger)
			b := resolve.Binding{Catalog: catalog.TVDB}
			if missingKey[name] {
				warnUnbound(wiring, name, "matched through the cross-reference dataset only", "set tvdb.api_key or export TVDB_API_KEY")
			} else {
				client, err := tvdb.New(cfg.TVDB.APIKey, cfg.TVDB.BaseURL, newHTTPClient(cfg, "tvdb", cfg.TVDB.RequestsPerSecond))
				if err != nil {
					return nil, fmt.Errorf("tvdb gateway: %w", err)
				}
				b = resolve.NewBinding(catalog.TVDB, client)
				b.Query = resolve.QueryEnglishFirst
			}
			b.Fallback = xref.NewTVDBFallback(source)
			bindings = append(bindings, b)
		case missingKey[name]:
			warnUnbound(wiring, name, "mapping recorded as absent", "set tmdb.api_key or export TMDB_API_KEY")
			bindings = append(bindings, resolve.Binding{Catalog: name})
		default:
			warnUnbound(wiring, name, "mapping recorded as absent", "remove the catalog from resolver.catalogs or bind a gateway for it")
			bindings = append(bindings, resolve.Binding{Catalog: name})
		}
	}
	return bindings, nil
}

func warnUnbound(logger *slog.Logger, name catalog.Name, impact, hint string) {
	logging.WarnWithContext(logger, "catalog has no gateway", "catalog_unbound",
		logging.String(logging.FieldCatalog, string(name)),
		logging.String(logging.FieldImpact, impact),
		logging.String(logging.FieldErrorHint, hint),
	)
}
