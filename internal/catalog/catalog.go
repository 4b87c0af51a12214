package catalog

import (
	"context"
	"strings"
)

// Name identifies an external catalog.
type Name string

const (
	AniList   Name = "anilist"
	AniDB     Name = "anidb"
	GogoAnime Name = "gogoanime"
	HiAnime   Name = "hianime"
	Kitsu     Name = "kitsu"
	MAL       Name = "mal"
	TMDB      Name = "tmdb"
	TVDB      Name = "tvdb"
)

// Names lists every catalog known to the resolver in a stable order.
var Names = []Name{AniList, AniDB, GogoAnime, HiAnime, Kitsu, MAL, TMDB, TVDB}

// ParseName resolves a configured catalog name.
func ParseName(value string) (Name, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, name := range Names {
		if string(name) == value {
			return name, true
		}
	}
	return "", false
}

// Track distinguishes subtitled and dubbed listings on streaming catalogs.
// Catalogs without the split use TrackNone.
type Track string

const (
	TrackNone Track = ""
	TrackSub  Track = "sub"
	TrackDub  Track = "dub"
)

// Source addresses one contribution: a catalog plus, for split catalogs, a track.
type Source struct {
	Catalog Name
	Track   Track
}

// String renders the source as "catalog" or "catalog/track".
func (s Source) String() string {
	if s.Track == TrackNone {
		return string(s.Catalog)
	}
	return string(s.Catalog) + "/" + string(s.Track)
}

// Of returns the untracked source for a catalog.
func Of(name Name) Source { return Source{Catalog: name} }

// Sub returns the subtitled source for a catalog.
func Sub(name Name) Source { return Source{Catalog: name, Track: TrackSub} }

// Dub returns the dubbed source for a catalog.
func Dub(name Name) Source { return Source{Catalog: name, Track: TrackDub} }

// TitleSet carries the title variants published by the primary source.
type TitleSet struct {
	Romaji        string `json:"romaji,omitempty"`
	English       string `json:"english,omitempty"`
	Native        string `json:"native,omitempty"`
	UserPreferred string `json:"userPreferred"`
}

// Variants returns the non-empty titles, user-preferred first, without duplicates.
func (t TitleSet) Variants() []string {
	out := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, v := range []string{t.UserPreferred, t.English, t.Romaji, t.Native} {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Candidate is one catalog search hit.
type Candidate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Titles    *TitleSet `json:"titles,omitempty"`
	AltTitles []string  `json:"altTitles,omitempty"`
	Image     string    `json:"image,omitempty"`
	URL       string    `json:"url,omitempty"`
	Released  string    `json:"released,omitempty"`
	Year      int       `json:"year,omitempty"`
	Format    string    `json:"format,omitempty"`
}

// Names returns every title the candidate is known by, primary title first.
func (c Candidate) Names() []string {
	out := make([]string, 0, 1+len(c.AltTitles))
	if c.Titles != nil {
		out = append(out, c.Titles.Variants()...)
	}
	if strings.TrimSpace(c.Title) != "" {
		out = append(out, c.Title)
	}
	return append(out, c.AltTitles...)
}

// MatchType is the confidence tier a match was accepted at.
type MatchType string

const (
	MatchStrict  MatchType = "strict"
	MatchLoose   MatchType = "loose"
	MatchPartial MatchType = "partial"
)

// MatchResult records which candidate was chosen and how.
type MatchResult struct {
	Index      int       `json:"index"`
	Similarity float64   `json:"similarity"`
	BestMatch  Candidate `json:"bestMatch"`
	MatchType  MatchType `json:"matchType"`
}

// FuzzyDate mirrors partially known calendar dates.
type FuzzyDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// IsZero reports whether no component of the date is known.
func (d FuzzyDate) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// Subject is the canonical record fetched from the primary source.
type Subject struct {
	ID              int64     `json:"id"`
	IDMal           int64     `json:"idMal,omitempty"`
	Titles          TitleSet  `json:"title"`
	Synonyms        []string  `json:"synonyms,omitempty"`
	Description     string    `json:"description,omitempty"`
	Format          string    `json:"format,omitempty"`
	Status          string    `json:"status,omitempty"`
	Season          string    `json:"season,omitempty"`
	SeasonYear      int       `json:"seasonYear,omitempty"`
	StartDate       FuzzyDate `json:"startDate"`
	EndDate         FuzzyDate `json:"endDate"`
	Episodes        int       `json:"episodes,omitempty"`
	Duration        int       `json:"duration,omitempty"`
	CoverImage      string    `json:"coverImage,omitempty"`
	BannerImage     string    `json:"bannerImage,omitempty"`
	Color           string    `json:"color,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Studios         []string  `json:"studios,omitempty"`
	AverageScore    int       `json:"averageScore,omitempty"`
	Popularity      int       `json:"popularity,omitempty"`
	Trailer         string    `json:"trailer,omitempty"`
	CountryOfOrigin string    `json:"countryOfOrigin,omitempty"`
	IsAdult         bool      `json:"isAdult,omitempty"`
}

// Hints carries subject metadata some catalogs need beyond an id.
type Hints struct {
	Format       string
	Year         int
	StartYear    int
	EndYear      int
	EpisodeCount int
}

// HintsFor derives lookup hints from the subject record.
func HintsFor(s *Subject) Hints {
	if s == nil {
		return Hints{}
	}
	year := s.SeasonYear
	if year == 0 {
		year = s.StartDate.Year
	}
	return Hints{
		Format:       s.Format,
		Year:         year,
		StartYear:    s.StartDate.Year,
		EndYear:      s.EndDate.Year,
		EpisodeCount: s.Episodes,
	}
}

// YearRange returns the airing span. Start falls back to the season year and
// end is zero while the subject is still airing.
func (h Hints) YearRange() (start, end int) {
	start = h.StartYear
	if start == 0 {
		start = h.Year
	}
	end = h.EndYear
	if end != 0 && end < start {
		end = start
	}
	return start, end
}

// InYearRange reports whether year falls inside YearRange. An unknown span
// accepts every year; a known span rejects an unknown year.
func (h Hints) InYearRange(year int) bool {
	start, end := h.YearRange()
	if start == 0 {
		return true
	}
	if year < start {
		return false
	}
	return end == 0 || year <= end
}

// Artwork is one image asset published by a catalog.
type Artwork struct {
	Type     string `json:"type"`
	Image    string `json:"img"`
	Language string `json:"lang,omitempty"`
	Catalog  Name   `json:"providerId"`
}

// Detail is the partial payload a catalog returns for one of its ids. Zero
// values mean the catalog did not provide the field.
type Detail struct {
	Titles      TitleSet  `json:"title"`
	Synonyms    []string  `json:"synonyms,omitempty"`
	Description string    `json:"description,omitempty"`
	Format      string    `json:"format,omitempty"`
	Status      string    `json:"status,omitempty"`
	Season      string    `json:"season,omitempty"`
	Year        int       `json:"year,omitempty"`
	Episodes    int       `json:"episodes,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Popularity  int       `json:"popularity,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	BannerImage string    `json:"bannerImage,omitempty"`
	Trailer     string    `json:"trailer,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Studios     []string  `json:"studios,omitempty"`
	Artworks    []Artwork `json:"artwork,omitempty"`
}

// Episode is one raw episode record from a catalog.
type Episode struct {
	ID          string   `json:"id"`
	Number      int      `json:"number"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"img,omitempty"`
	IsFiller    *bool    `json:"isFiller,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Season      int      `json:"season,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// Details collects wave-two detail payloads by source.
type Details map[Source]*Detail

// EpisodeLists collects wave-two episode lists by source.
type EpisodeLists map[Source][]Episode

// Searcher finds candidates for a query.
type Searcher interface {
	Name() Name
	Search(ctx context.Context, query string, hints Hints) ([]Candidate, error)
}

// DetailFetcher loads the rich record for a catalog id.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id string, hints Hints) (*Detail, error)
}

// EpisodeFetcher loads the episode list for a catalog id.
type EpisodeFetcher interface {
	FetchEpisodes(ctx context.Context, id string, hints Hints) ([]Episode, error)
}

// SubjectSource loads the canonical subject record from the primary catalog.
type SubjectSource interface {
	FetchSubject(ctx context.Context, id int64) (*Subject, error)
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
