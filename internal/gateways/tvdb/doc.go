// Package tvdb adapts TheTVDB v4 API to the catalog Searcher, DetailFetcher
// and EpisodeFetcher interfaces.
//
// Every call needs a bearer token obtained from /login with the project API
// key; the client logs in lazily and logs in again once when a token is
// rejected. Catalog ids keep TVDB's record prefix ("/series/267440",
// "/movie/12345"). Episode lookups walk the series' official seasons and keep
// the episodes that aired inside the subject's airing span.
package tvdb
