// Package catalog defines the vocabulary shared by the resolver, the merger
// and every catalog gateway.
//
// It owns the catalog names, the candidate and match records produced during
// identity resolution, the partial detail and episode payloads fetched
// afterwards, and the gateway capabilities (Searcher, DetailFetcher,
// EpisodeFetcher, SubjectSource) that concrete adapters implement. Mapping is
// a closed set of variants: SingleMatch, SubDubMatch and Absent.
package catalog
