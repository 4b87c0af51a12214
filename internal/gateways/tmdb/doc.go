// Package tmdb provides the TMDB API client used as a metadata catalog.
//
// It exposes multi search, movie/TV detail retrieval, and season/episode
// lookups, and adapts them to the catalog Searcher, DetailFetcher and
// EpisodeFetcher interfaces. Catalog ids keep TMDB's media prefix ("/tv/1429",
// "/movie/372058") so detail lookups know which endpoint to hit. Because TMDB
// files most anime as one show with many seasons, episode lookups first pick
// the season that best fits the subject's air year or episode count.
package tmdb
