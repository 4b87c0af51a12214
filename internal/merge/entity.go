package merge

import (
	"time"

	"animap/internal/catalog"
)

// Entity is the canonical record produced by one resolution run.
type Entity struct {
	ID              int64             `json:"id"`
	IDMal           int64             `json:"idMal,omitempty"`
	Title           catalog.TitleSet  `json:"title"`
	Synonyms        []string          `json:"synonyms"`
	Description     string            `json:"description,omitempty"`
	Format          string            `json:"format,omitempty"`
	Status          string            `json:"status"`
	SourceStatus    string            `json:"sourceStatus,omitempty"`
	Season          string            `json:"season,omitempty"`
	SeasonYear      int               `json:"seasonYear,omitempty"`
	StartDate       catalog.FuzzyDate `json:"startDate"`
	EndDate         catalog.FuzzyDate `json:"endDate"`
	TotalEpisodes   int               `json:"totalEpisodes,omitempty"`
	Duration        int               `json:"duration,omitempty"`
	Rating          float64           `json:"rating,omitempty"`
	Popularity      int               `json:"popularity,omitempty"`
	CoverImage      string            `json:"coverImage,omitempty"`
	BannerImage     string            `json:"bannerImage,omitempty"`
	Color           string            `json:"color,omitempty"`
	Trailer         string            `json:"trailer,omitempty"`
	CountryOfOrigin string            `json:"countryOfOrigin,omitempty"`
	IsAdult         bool              `json:"isAdult"`
	Genres          []string          `json:"genres"`
	Tags            []string          `json:"tags"`
	Studios         []string          `json:"studios"`
	Artworks        []catalog.Artwork `json:"artwork"`
	Episodes        StreamEpisodes    `json:"episodes"`
	Mappings        catalog.Mappings  `json:"mappings"`
	ResolvedAt      time.Time         `json:"resolvedAt"`
}

// Episode is one anchor episode enriched from the metadata catalogs. Pointer
// fields are nil when no catalog supplied a value.
type Episode struct {
	ID           string   `json:"id"`
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	IsFiller     *bool    `json:"isFiller"`
	Image        *string  `json:"img"`
	Rating       *float64 `json:"rating"`
	Description  *string  `json:"description"`
	SeasonNumber *int     `json:"seasonNumber"`
	UpdatedAt    *string  `json:"updatedAt"`
}

// Tracks holds the subtitled and dubbed episode lists of one streaming catalog.
// Both slices are always non-nil.
type Tracks struct {
	Sub []Episode `json:"sub"`
	Dub []Episode `json:"dub"`
}

// StreamEpisodes holds the episode lists of both anchor catalogs.
type StreamEpisodes struct {
	HiAnime   Tracks `json:"hianime"`
	GogoAnime Tracks `json:"gogoanime"`
}

// Count returns the longest anchor track length.
func (s StreamEpisodes) Count() int {
	n := 0
	for _, l := range [][]Episode{s.HiAnime.Sub, s.HiAnime.Dub, s.GogoAnime.Sub, s.GogoAnime.Dub} {
		n = max(n, len(l))
	}
	return n
}
