package resolve

import (
	"context"
	"strings"

	"animap/internal/catalog"
	"animap/internal/title"
)

// QueryStrategy picks which subject title is sent to a catalog search.
type QueryStrategy int

const (
	// QueryUserPreferred searches with the user-preferred title.
	QueryUserPreferred QueryStrategy = iota
	// QueryEnglishFirst prefers the English title, then user-preferred.
	QueryEnglishFirst
	// QueryEnglishRomajiFirst prefers English, then romaji, then user-preferred.
	QueryEnglishRomajiFirst
)

// Fallback produces a match from something other than title search. It runs
// only when search and matching came back empty.
type Fallback interface {
	Match(ctx context.Context, subject *catalog.Subject) (*catalog.MatchResult, error)
}

// Binding attaches one catalog to the resolver.
type Binding struct {
	Catalog catalog.Name
	// Searcher may be nil when the catalog is reachable only through Fallback.
	Searcher catalog.Searcher
	Query    QueryStrategy
	// Normalized sends the fully normalized title instead of the lighter
	// cleaned form.
	Normalized bool
	// Split sorts candidates into sub and dub tracks. A non-nil Split makes
	// the catalog's mapping a SubDubMatch.
	Split    func(catalog.Candidate) catalog.Track
	Fallback Fallback
	Details  catalog.DetailFetcher
	Episodes catalog.EpisodeFetcher
}

// NewBinding wires a gateway, picking up detail and episode capabilities by
// type assertion.
func NewBinding(name catalog.Name, searcher catalog.Searcher) Binding {
	b := Binding{Catalog: name, Searcher: searcher}
	if d, ok := searcher.(catalog.DetailFetcher); ok {
		b.Details = d
	}
	if e, ok := searcher.(catalog.EpisodeFetcher); ok {
		b.Episodes = e
	}
	return b
}

func (b Binding) query(subject *catalog.Subject) string {
	t := subject.Titles
	var raw string
	switch b.Query {
	case QueryEnglishFirst:
		raw = firstNonEmpty(t.English, t.UserPreferred)
	case QueryEnglishRomajiFirst:
		raw = firstNonEmpty(t.English, t.Romaji, t.UserPreferred)
	default:
		raw = firstNonEmpty(t.UserPreferred, t.Romaji, t.English)
	}
	if b.Normalized {
		return title.Normalize(raw)
	}
	return title.Clean(raw)
}

// SplitByIDSuffix routes candidates whose id contains marker to the dub track.
func SplitByIDSuffix(marker string) func(catalog.Candidate) catalog.Track {
	return func(c catalog.Candidate) catalog.Track {
		if strings.Contains(c.ID, marker) {
			return catalog.TrackDub
		}
		return catalog.TrackSub
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
