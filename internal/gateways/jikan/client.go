package jikan

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"animap/internal/catalog"
	"animap/internal/httpx"
	"animap/internal/services"
)

const (
	siteURL         = "https://myanimelist.net/anime/"
	maxPageFetchers = 3
)

var durationMinutes = regexp.MustCompile(`(\d+)\s*min`)

type image struct {
	ImageURL      string `json:"image_url"`
	LargeImageURL string `json:"large_image_url"`
}

type named struct {
	Name string `json:"name"`
}

type anime struct {
	MalID  int64  `json:"mal_id"`
	URL    string `json:"url"`
	Images struct {
		JPG image `json:"jpg"`
	} `json:"images"`
	Trailer struct {
		URL string `json:"url"`
	} `json:"trailer"`
	Titles []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"titles"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english"`
	TitleJapanese string   `json:"title_japanese"`
	TitleSynonyms []string `json:"title_synonyms"`
	Type          string   `json:"type"`
	Episodes      *int     `json:"episodes"`
	Status        string   `json:"status"`
	Aired         struct {
		From string `json:"from"`
		Prop struct {
			From struct {
				Year *int `json:"year"`
			} `json:"from"`
		} `json:"prop"`
	} `json:"aired"`
	Duration   string   `json:"duration"`
	Score      *float64 `json:"score"`
	Popularity *int     `json:"popularity"`
	Synopsis   string   `json:"synopsis"`
	Season     string   `json:"season"`
	Year       *int     `json:"year"`
	Studios    []named  `json:"studios"`
	Genres     []named  `json:"genres"`
	Themes     []named  `json:"themes"`
}

type searchResponse struct {
	Data []anime `json:"data"`
}

type detailResponse struct {
	Data anime `json:"data"`
}

type pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
}

type episode struct {
	MalID        int64    `json:"mal_id"`
	Title        string   `json:"title"`
	TitleRomanji string   `json:"title_romanji"`
	Aired        string   `json:"aired"`
	Score        *float64 `json:"score"`
	Filler       bool     `json:"filler"`
	Recap        bool     `json:"recap"`
}

type episodesResponse struct {
	Pagination pagination `json:"pagination"`
	Data       []episode  `json:"data"`
}

// Client talks to the Jikan REST mirror of MyAnimeList.
type Client struct {
	baseURL string
	http    *httpx.Client
}

var (
	_ catalog.Searcher       = (*Client)(nil)
	_ catalog.DetailFetcher  = (*Client)(nil)
	_ catalog.EpisodeFetcher = (*Client)(nil)
)

// New creates a Jikan client.
func New(baseURL string, client *httpx.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("jikan base url required")
	}
	if client == nil {
		client = httpx.New("jikan")
	}
	return &Client{baseURL: baseURL, http: client}, nil
}

// Name implements catalog.Searcher.
func (c *Client) Name() catalog.Name { return catalog.MAL }

// Search queries the anime search endpoint. Results are left in API order.
func (c *Client) Search(ctx context.Context, query string, _ catalog.Hints) ([]catalog.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "jikan", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("sfw", "true")

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/anime?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]catalog.Candidate, 0, len(resp.Data))
	for _, a := range resp.Data {
		out = append(out, a.candidate())
	}
	return out, nil
}

func (a anime) candidate() catalog.Candidate {
	id := strconv.FormatInt(a.MalID, 10)
	alt := append([]string(nil), a.TitleSynonyms...)
	for _, t := range a.Titles {
		alt = append(alt, t.Title)
	}
	return catalog.Candidate{
		ID:    id,
		Title: a.Title,
		Titles: &catalog.TitleSet{
			Romaji:        a.Title,
			English:       a.TitleEnglish,
			Native:        a.TitleJapanese,
			UserPreferred: firstNonEmpty(a.Title, a.TitleEnglish, a.TitleJapanese),
		},
		AltTitles: alt,
		Image:     a.Images.JPG.ImageURL,
		URL:       siteURL + id,
		Released:  a.Aired.From,
		Year:      a.year(),
		Format:    strings.ToUpper(a.Type),
	}
}

func (a anime) year() int {
	if a.Year != nil && *a.Year > 0 {
		return *a.Year
	}
	if a.Aired.Prop.From.Year != nil {
		return *a.Aired.Prop.From.Year
	}
	return 0
}

// FetchDetail loads /anime/{id}/full.
func (c *Client) FetchDetail(ctx context.Context, id string, _ catalog.Hints) (*catalog.Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "jikan", "fetch detail", "id must not be empty", nil)
	}
	var resp detailResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/anime/"+url.PathEscape(id)+"/full", &resp); err != nil {
		return nil, err
	}
	a := resp.Data
	d := &catalog.Detail{
		Titles: catalog.TitleSet{
			Romaji:        a.Title,
			English:       a.TitleEnglish,
			Native:        a.TitleJapanese,
			UserPreferred: firstNonEmpty(a.Title, a.TitleEnglish, a.TitleJapanese),
		},
		Synonyms:    a.TitleSynonyms,
		Description: a.Synopsis,
		Format:      strings.ToUpper(a.Type),
		Status:      a.Status,
		Season:      strings.ToUpper(a.Season),
		Year:        a.year(),
		Duration:    parseDuration(a.Duration),
		CoverImage:  firstNonEmpty(a.Images.JPG.LargeImageURL, a.Images.JPG.ImageURL),
		Trailer:     a.Trailer.URL,
	}
	if a.Episodes != nil {
		d.Episodes = *a.Episodes
	}
	if a.Score != nil {
		d.Rating = *a.Score
	}
	if a.Popularity != nil {
		d.Popularity = *a.Popularity
	}
	for _, g := range a.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	for _, th := range a.Themes {
		d.Tags = append(d.Tags, th.Name)
	}
	for _, s := range a.Studios {
		d.Studios = append(d.Studios, s.Name)
	}
	return d, nil
}

// FetchEpisodes walks every page of /anime/{id}/episodes. The first page
// reveals the page count; the rest are fetched concurrently.
func (c *Client) FetchEpisodes(ctx context.Context, id string, _ catalog.Hints) ([]catalog.Episode, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "jikan", "fetch episodes", "id must not be empty", nil)
	}
	first, err := c.episodePage(ctx, id, 1)
	if err != nil {
		return nil, err
	}
	pages := make([][]episode, max(first.Pagination.LastVisiblePage, 1))
	pages[0] = first.Data

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPageFetchers)
	for i := 1; i < len(pages); i++ {
		g.Go(func() error {
			resp, err := c.episodePage(gctx, id, i+1)
			if err != nil {
				return err
			}
			pages[i] = resp.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []catalog.Episode
	for _, page := range pages {
		for _, ep := range page {
			out = append(out, ep.toCatalog())
		}
	}
	return out, nil
}

func (c *Client) episodePage(ctx context.Context, id string, page int) (*episodesResponse, error) {
	var resp episodesResponse
	endpoint := fmt.Sprintf("%s/anime/%s/episodes?page=%d", c.baseURL, url.PathEscape(id), page)
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (e episode) toCatalog() catalog.Episode {
	out := catalog.Episode{
		ID:          strconv.FormatInt(e.MalID, 10),
		Number:      int(e.MalID),
		Title:       firstNonEmpty(e.Title, e.TitleRomanji),
		Description: e.TitleRomanji,
		IsFiller:    catalog.Bool(e.Filler),
		UpdatedAt:   e.Aired,
	}
	if e.Score != nil {
		out.Rating = catalog.Float(*e.Score)
	}
	return out
}

// parseDuration reads "24 min per ep" or "1 hr 50 min" into minutes.
func parseDuration(raw string) int {
	raw = strings.ToLower(raw)
	minutes := 0
	if idx := strings.Index(raw, "hr"); idx > 0 {
		fields := strings.Fields(raw[:idx])
		if len(fields) > 0 {
			if h, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
				minutes += h * 60
			}
		}
	}
	if m := durationMinutes.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			minutes += v
		}
	}
	return minutes
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
