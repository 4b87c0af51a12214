package config

import "animap/internal/matching"

const (
	defaultConfigPath             = "~/.config/animap/config.toml"
	defaultDataDir                = "~/.local/share/animap"
	defaultLogDir                 = "~/.local/share/animap/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultResolverConcurrency    = 8
	defaultRequestTimeoutSeconds  = 20
	defaultUserAgent              = "animap/dev"
	defaultMaxRetries             = 3
	defaultRetryBaseDelayMS       = 1000
	defaultAniListBaseURL         = "https://graphql.anilist.co"
	defaultAniListRPS             = 1
	defaultTMDBBaseURL            = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL       = "https://image.tmdb.org/t/p/original"
	defaultTMDBLanguage           = "en-US"
	defaultTMDBRPS                = 20
	defaultTVDBBaseURL            = "https://api4.thetvdb.com/v4"
	defaultTVDBRPS                = 5
	defaultJikanBaseURL           = "https://api.jikan.moe/v4"
	defaultJikanRPS               = 1
	defaultKitsuBaseURL           = "https://kitsu.app/api/edge"
	defaultKitsuRPS               = 5
	defaultXRefURL                = "https://raw.githubusercontent.com/Fribb/anime-lists/refs/heads/master/anime-list-full.json"
	defaultXRefCacheTTLHours      = 24
	defaultCrawlIDsURL            = "https://raw.githubusercontent.com/5H4D0WILA/IDFetch/main/ids.txt"
	defaultNewIDsIntervalMinutes  = 5
	defaultRefreshIntervalMinutes = 60
)

var defaultCatalogs = []string{"mal", "kitsu", "tmdb", "tvdb"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	def := defaultMatching()
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Resolver: Resolver{
			Concurrency:           defaultResolverConcurrency,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			Catalogs:              append([]string(nil), defaultCatalogs...),
		},
		Matching: def,
		HTTP: HTTP{
			UserAgent:        defaultUserAgent,
			MaxRetries:       defaultMaxRetries,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
		},
		AniList: Endpoint{BaseURL: defaultAniListBaseURL, RequestsPerSecond: defaultAniListRPS},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			ImageBaseURL:      defaultTMDBImageBaseURL,
			Language:          defaultTMDBLanguage,
			RequestsPerSecond: defaultTMDBRPS,
		},
		TVDB:  TVDB{BaseURL: defaultTVDBBaseURL, RequestsPerSecond: defaultTVDBRPS},
		Jikan: Endpoint{BaseURL: defaultJikanBaseURL, RequestsPerSecond: defaultJikanRPS},
		Kitsu: Endpoint{BaseURL: defaultKitsuBaseURL, RequestsPerSecond: defaultKitsuRPS},
		XRef: XRef{
			URL:           defaultXRefURL,
			CacheTTLHours: defaultXRefCacheTTLHours,
		},
		Crawl: Crawl{
			IDsURL:                 defaultCrawlIDsURL,
			NewIDsIntervalMinutes:  defaultNewIDsIntervalMinutes,
			RefreshIntervalMinutes: defaultRefreshIntervalMinutes,
		},
	}
}

func defaultMatching() Matching {
	opts := matching.DefaultOptions()
	return Matching{
		LooseOverlap:           opts.LooseOverlap,
		LooseSimilarity:        opts.LooseSimilarity,
		MaxExtraWords:          opts.MaxExtraWords,
		RequireNumberOverlap:   opts.RequireNumberOverlap,
		RequireQualifierParity: opts.RequireQualifierParity,
		FuzzyThreshold:         opts.FuzzyThreshold,
	}
}
