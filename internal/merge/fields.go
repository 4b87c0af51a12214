package merge

import (
	"strings"

	"animap/internal/catalog"
)

// priorities lists, per single-valued field, the catalogs consulted in order.
// The first catalog whose detail defines the field wins; the primary subject
// is the floor when none does. Adding an Entity field means adding a row here.
var priorities = struct {
	Description   []catalog.Source
	CoverImage    []catalog.Source
	BannerImage   []catalog.Source
	TotalEpisodes []catalog.Source
	Duration      []catalog.Source
	Rating        []catalog.Source
	Popularity    []catalog.Source
	Trailer       []catalog.Source
}{
	Description:   sources(catalog.Kitsu, catalog.TVDB, catalog.AniDB, catalog.MAL),
	CoverImage:    sources(catalog.TVDB, catalog.Kitsu),
	BannerImage:   sources(catalog.TVDB, catalog.Kitsu),
	TotalEpisodes: sources(catalog.Kitsu, catalog.TVDB, catalog.AniDB, catalog.MAL),
	Duration:      sources(catalog.Kitsu, catalog.TVDB, catalog.AniDB, catalog.MAL),
	Rating:        sources(catalog.Kitsu, catalog.TVDB, catalog.AniDB, catalog.MAL),
	Popularity:    sources(catalog.Kitsu, catalog.TVDB, catalog.AniDB, catalog.MAL),
	Trailer:       sources(catalog.Kitsu, catalog.TVDB, catalog.AniDB, catalog.MAL),
}

// unions lists, per multi-valued field, the catalogs whose values are
// appended after the subject's own. Streaming catalogs appear per track and
// untracked, so both binding shapes contribute.
var unions = struct {
	Genres   []catalog.Source
	Tags     []catalog.Source
	Synonyms []catalog.Source
	Studios  []catalog.Source
	Artworks []catalog.Source
}{
	Genres:   []catalog.Source{catalog.Sub(catalog.GogoAnime), catalog.Dub(catalog.GogoAnime), catalog.Of(catalog.GogoAnime), catalog.Of(catalog.Kitsu), catalog.Of(catalog.TMDB), catalog.Of(catalog.MAL)},
	Tags:     sources(catalog.TVDB),
	Synonyms: []catalog.Source{catalog.Of(catalog.AniDB), catalog.Sub(catalog.GogoAnime), catalog.Dub(catalog.GogoAnime), catalog.Of(catalog.GogoAnime), catalog.Of(catalog.MAL)},
	Studios:  sources(catalog.MAL, catalog.AniDB, catalog.TMDB),
	Artworks: sources(catalog.TVDB, catalog.Kitsu, catalog.TMDB),
}

func sources(names ...catalog.Name) []catalog.Source {
	out := make([]catalog.Source, len(names))
	for i, n := range names {
		out[i] = catalog.Of(n)
	}
	return out
}

// Merge combines the subject with every fetched detail record. It is pure: the
// same inputs always produce the same Entity, and ResolvedAt is left zero for
// the caller to stamp.
func Merge(subject catalog.Subject, details catalog.Details, mappings catalog.Mappings) Entity {
	e := Entity{
		ID:              subject.ID,
		IDMal:           subject.IDMal,
		Title:           subject.Titles,
		Format:          subject.Format,
		Status:          ConvertStatus(subject.Status),
		SourceStatus:    subject.Status,
		Season:          subject.Season,
		SeasonYear:      subject.SeasonYear,
		StartDate:       subject.StartDate,
		EndDate:         subject.EndDate,
		Color:           subject.Color,
		CountryOfOrigin: subject.CountryOfOrigin,
		IsAdult:         subject.IsAdult,
		Episodes:        emptyStreams(),
		Mappings:        copyMappings(mappings),
	}

	e.Description = pickString(details, priorities.Description, func(d *catalog.Detail) string { return d.Description }, subject.Description)
	e.CoverImage = pickString(details, priorities.CoverImage, func(d *catalog.Detail) string { return d.CoverImage }, "")
	e.BannerImage = pickString(details, priorities.BannerImage, func(d *catalog.Detail) string { return d.BannerImage }, "")
	if e.BannerImage == "" {
		e.BannerImage = artworkOfType(details[catalog.Of(catalog.TVDB)], "banner")
	}
	if e.CoverImage == "" {
		e.CoverImage = subject.CoverImage
	}
	if e.BannerImage == "" {
		e.BannerImage = subject.BannerImage
	}
	e.TotalEpisodes = pickInt(details, priorities.TotalEpisodes, func(d *catalog.Detail) int { return d.Episodes }, subject.Episodes)
	e.Duration = pickInt(details, priorities.Duration, func(d *catalog.Detail) int { return d.Duration }, subject.Duration)
	e.Popularity = pickInt(details, priorities.Popularity, func(d *catalog.Detail) int { return d.Popularity }, subject.Popularity)
	e.Trailer = pickString(details, priorities.Trailer, func(d *catalog.Detail) string { return d.Trailer }, subject.Trailer)
	e.Rating = pickFloat(details, priorities.Rating, func(d *catalog.Detail) float64 { return d.Rating }, float64(subject.AverageScore)/10)

	e.Genres = union(subject.Genres, details, unions.Genres, func(d *catalog.Detail) []string { return d.Genres })
	e.Tags = union(subject.Tags, details, unions.Tags, func(d *catalog.Detail) []string { return d.Tags })
	e.Studios = union(subject.Studios, details, unions.Studios, func(d *catalog.Detail) []string { return d.Studios })
	e.Synonyms = union(subject.Synonyms, details, unions.Synonyms, func(d *catalog.Detail) []string {
		return append(append([]string{}, d.Synonyms...), d.Titles.Variants()...)
	})
	e.Artworks = unionArtworks(details, unions.Artworks)
	return e
}

func pickString(details catalog.Details, order []catalog.Source, get func(*catalog.Detail) string, floor string) string {
	for _, src := range order {
		if d := details[src]; d != nil {
			if v := strings.TrimSpace(get(d)); v != "" {
				return v
			}
		}
	}
	return floor
}

func pickInt(details catalog.Details, order []catalog.Source, get func(*catalog.Detail) int, floor int) int {
	for _, src := range order {
		if d := details[src]; d != nil {
			if v := get(d); v > 0 {
				return v
			}
		}
	}
	return floor
}

func pickFloat(details catalog.Details, order []catalog.Source, get func(*catalog.Detail) float64, floor float64) float64 {
	for _, src := range order {
		if d := details[src]; d != nil {
			if v := get(d); v > 0 {
				return v
			}
		}
	}
	return floor
}

// union appends values in source order, keeping the first spelling of each
// case-insensitive value and skipping blanks. The result is never nil.
func union(base []string, details catalog.Details, order []catalog.Source, get func(*catalog.Detail) []string) []string {
	out := make([]string, 0, len(base))
	seen := make(map[string]struct{}, len(base))
	add := func(values []string) {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	add(base)
	for _, src := range order {
		if d := details[src]; d != nil {
			add(get(d))
		}
	}
	return out
}

func unionArtworks(details catalog.Details, order []catalog.Source) []catalog.Artwork {
	out := []catalog.Artwork{}
	seen := map[string]struct{}{}
	for _, src := range order {
		d := details[src]
		if d == nil {
			continue
		}
		for _, art := range d.Artworks {
			img := strings.TrimSpace(art.Image)
			if img == "" {
				continue
			}
			key := strings.ToLower(art.Type) + "|" + img
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if art.Catalog == "" {
				art.Catalog = src.Catalog
			}
			out = append(out, art)
		}
	}
	return out
}

func artworkOfType(d *catalog.Detail, kind string) string {
	if d == nil {
		return ""
	}
	for _, art := range d.Artworks {
		if strings.EqualFold(art.Type, kind) && strings.TrimSpace(art.Image) != "" {
			return art.Image
		}
	}
	return ""
}

func copyMappings(m catalog.Mappings) catalog.Mappings {
	out := make(catalog.Mappings, len(m))
	for k, v := range m {
		if v == nil {
			v = catalog.Absent{}
		}
		out[k] = v
	}
	return out
}
