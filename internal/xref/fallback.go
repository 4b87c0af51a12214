package xref

import (
	"context"
	"strconv"

	"animap/internal/catalog"
)

const tvdbSiteURL = "https://thetvdb.com"

// seriesFormats are the primary-source formats TheTVDB files under /series.
var seriesFormats = map[string]bool{
	"TV":       true,
	"TV_SHORT": true,
	"SPECIAL":  true,
	"OVA":      true,
	"ONA":      true,
}

// TVDBFallback maps a subject to its TheTVDB id through the dataset when
// title search produced nothing. The subject's MAL id is the join key; the
// AniList id is used when the subject has no MAL id.
type TVDBFallback struct {
	source *Source
}

// NewTVDBFallback wires the fallback to a dataset source.
func NewTVDBFallback(source *Source) *TVDBFallback {
	return &TVDBFallback{source: source}
}

// Match returns a partial MatchResult for the subject, or nil when the
// dataset has no TheTVDB id for it.
func (f *TVDBFallback) Match(ctx context.Context, subject *catalog.Subject) (*catalog.MatchResult, error) {
	if subject == nil {
		return nil, nil
	}
	dataset, err := f.source.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := dataset.LookupInt(FieldMAL, subject.IDMal)
	if !ok {
		entry, ok = dataset.LookupInt(FieldAniList, subject.ID)
	}
	if !ok {
		return nil, nil
	}
	tvdbID := entry.Get(FieldTVDB)
	if tvdbID == "" {
		return nil, nil
	}
	return TVDBMatch(subject, tvdbID), nil
}

// TVDBMatch builds the synthetic match recorded for a cross-referenced id.
func TVDBMatch(subject *catalog.Subject, tvdbID string) *catalog.MatchResult {
	kind := "movie"
	if seriesFormats[subject.Format] {
		kind = "series"
	}
	path := "/" + kind + "/" + tvdbID
	year := subject.StartDate.Year
	released := ""
	if year > 0 {
		released = strconv.Itoa(year)
	}
	return &catalog.MatchResult{
		Index:      0,
		Similarity: 1,
		MatchType:  catalog.MatchPartial,
		BestMatch: catalog.Candidate{
			ID:        path,
			Title:     subject.Titles.Native,
			AltTitles: subject.Titles.Variants(),
			Image:     subject.CoverImage,
			URL:       tvdbSiteURL + path,
			Released:  released,
			Year:      year,
			Format:    subject.Format,
		},
	}
}
