package kitsu

import (
	"context"
	"errors"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"animap/internal/catalog"
	"animap/internal/httpx"
	"animap/internal/services"
)

const (
	siteURL     = "https://kitsu.app/anime/"
	contentType = "application/vnd.api+json"
)

type imageSet struct {
	Original string `json:"original"`
}

type attributes struct {
	Titles            map[string]string `json:"titles"`
	CanonicalTitle    string            `json:"canonicalTitle"`
	AbbreviatedTitles []string          `json:"abbreviatedTitles"`
	Synopsis          string            `json:"synopsis"`
	AverageRating     string            `json:"averageRating"`
	StartDate         string            `json:"startDate"`
	PopularityRank    int               `json:"popularityRank"`
	Subtype           string            `json:"subtype"`
	Status            string            `json:"status"`
	PosterImage       *imageSet         `json:"posterImage"`
	CoverImage        *imageSet         `json:"coverImage"`
	EpisodeCount      *int              `json:"episodeCount"`
	EpisodeLength     *int              `json:"episodeLength"`
	YoutubeVideoID    string            `json:"youtubeVideoId"`
	Name              string            `json:"name"`
}

type resource struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes attributes `json:"attributes"`
}

type listDocument struct {
	Data []resource `json:"data"`
}

type singleDocument struct {
	Data     *resource  `json:"data"`
	Included []resource `json:"included"`
}

// Client talks to the Kitsu JSON:API.
type Client struct {
	baseURL string
	http    *httpx.Client
}

var (
	_ catalog.Searcher      = (*Client)(nil)
	_ catalog.DetailFetcher = (*Client)(nil)
)

// New creates a Kitsu client. The supplied httpx client should carry the
// JSON:API Accept header; see Options.
func New(baseURL string, client *httpx.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("kitsu base url required")
	}
	if client == nil {
		client = httpx.New("kitsu", Options()...)
	}
	return &Client{baseURL: baseURL, http: client}, nil
}

// Options returns the httpx options Kitsu requires.
func Options() []httpx.Option {
	return []httpx.Option{httpx.WithHeader("Accept", contentType)}
}

// Name implements catalog.Searcher.
func (c *Client) Name() catalog.Name { return catalog.Kitsu }

// Search runs a text filter over the anime collection.
func (c *Client) Search(ctx context.Context, query string, _ catalog.Hints) ([]catalog.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "kitsu", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("filter[text]", query)

	var doc listDocument
	if err := c.http.GetJSON(ctx, c.baseURL+"/anime?"+params.Encode(), &doc); err != nil {
		return nil, err
	}
	out := make([]catalog.Candidate, 0, len(doc.Data))
	for _, r := range doc.Data {
		out = append(out, r.candidate())
	}
	return out, nil
}

func (r resource) candidate() catalog.Candidate {
	a := r.Attributes
	c := catalog.Candidate{
		ID:        r.ID,
		Title:     firstNonEmpty(a.Titles["en_us"], a.Titles["en_jp"], a.Titles["ja_jp"], a.Titles["en"], a.CanonicalTitle),
		AltTitles: append(titleValues(a.Titles), a.AbbreviatedTitles...),
		URL:       siteURL + r.ID,
		Released:  a.StartDate,
		Year:      yearOf(a.StartDate),
		Format:    strings.ToUpper(a.Subtype),
	}
	if a.PosterImage != nil {
		c.Image = a.PosterImage.Original
	}
	return c
}

// FetchDetail loads one anime with its genres side-loaded.
func (c *Client) FetchDetail(ctx context.Context, id string, _ catalog.Hints) (*catalog.Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "kitsu", "fetch detail", "id must not be empty", nil)
	}
	var doc singleDocument
	if err := c.http.GetJSON(ctx, c.baseURL+"/anime/"+url.PathEscape(id)+"?include=genres", &doc); err != nil {
		return nil, err
	}
	if doc.Data == nil {
		return nil, services.Wrap(services.ErrNotFound, "kitsu", "fetch detail", "id "+id, nil)
	}
	a := doc.Data.Attributes
	d := &catalog.Detail{
		Titles: catalog.TitleSet{
			English:       a.Titles["en"],
			Romaji:        a.Titles["en_jp"],
			Native:        a.Titles["ja_jp"],
			UserPreferred: firstNonEmpty(a.Titles["en_jp"], a.Titles["en"], a.Titles["ja_jp"]),
		},
		Synonyms:    a.AbbreviatedTitles,
		Description: a.Synopsis,
		Format:      strings.ToUpper(a.Subtype),
		Status:      a.Status,
		Year:        yearOf(a.StartDate),
		Rating:      parseRating(a.AverageRating),
		Popularity:  a.PopularityRank,
	}
	if a.EpisodeCount != nil {
		d.Episodes = *a.EpisodeCount
	}
	if a.EpisodeLength != nil {
		d.Duration = *a.EpisodeLength
	}
	if a.YoutubeVideoID != "" {
		d.Trailer = "https://www.youtube.com/watch?v=" + a.YoutubeVideoID
	}
	if a.CoverImage != nil && a.CoverImage.Original != "" {
		d.BannerImage = a.CoverImage.Original
		d.Artworks = append(d.Artworks, catalog.Artwork{Type: "banner", Image: a.CoverImage.Original, Catalog: catalog.Kitsu})
	}
	if a.PosterImage != nil && a.PosterImage.Original != "" {
		d.CoverImage = a.PosterImage.Original
		d.Artworks = append(d.Artworks, catalog.Artwork{Type: "poster", Image: a.PosterImage.Original, Catalog: catalog.Kitsu})
	}
	for _, inc := range doc.Included {
		if inc.Type == "genres" && inc.Attributes.Name != "" {
			d.Genres = append(d.Genres, inc.Attributes.Name)
		}
	}
	return d, nil
}

// parseRating turns Kitsu's percentage string into a 0-10 score with two
// decimals.
func parseRating(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return math.Round(v*10) / 100
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

func titleValues(titles map[string]string) []string {
	keys := make([]string, 0, len(titles))
	for k, v := range titles {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, titles[k])
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
