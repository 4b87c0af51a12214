// Package xref loads the community anime-list cross-reference dataset, which
// joins AniList, MyAnimeList, AniDB, Kitsu, TheTVDB and TMDB ids.
//
// Source downloads the dataset through the shared HTTP transport, caches it
// on disk with a TTL, and falls back to a stale copy when a refresh fails.
// TVDBFallback turns a lookup into the synthetic match the resolver records
// when TheTVDB title search comes back empty.
package xref
