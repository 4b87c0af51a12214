package tvdb

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"animap/internal/catalog"
	"animap/internal/httpx"
	"animap/internal/services"
)

const siteURL = "https://thetvdb.com"

// Artwork type ids as published by /artwork/types.
var (
	bannerTypes     = map[int]bool{1: true, 6: true, 16: true}
	posterTypes     = map[int]bool{2: true, 7: true, 14: true, 27: true}
	backgroundTypes = map[int]bool{3: true, 8: true, 15: true}
	clearLogoTypes  = map[int]bool{23: true, 25: true}
)

type named struct {
	Name string `json:"name"`
}

// SearchResult is one /search hit.
type SearchResult struct {
	TVDBID       string            `json:"tvdb_id"`
	Name         string            `json:"name"`
	Aliases      []string          `json:"aliases"`
	Translations map[string]string `json:"translations"`
	ImageURL     string            `json:"image_url"`
	Year         string            `json:"year"`
	PrimaryType  string            `json:"primary_type"`
}

type searchResponse struct {
	Data []SearchResult `json:"data"`
}

// Artwork is one image attached to a series or movie.
type Artwork struct {
	Type     int    `json:"type"`
	Image    string `json:"image"`
	Language string `json:"language"`
}

// SeasonRef is the season summary embedded in an extended series record.
type SeasonRef struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
	Type   struct {
		Type string `json:"type"`
	} `json:"type"`
}

// Record is the /series/{id}/extended or /movies/{id}/extended payload.
type Record struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Aliases        []named     `json:"aliases"`
	FirstAired     string      `json:"firstAired"`
	AverageRuntime int         `json:"averageRuntime"`
	Genres         []named     `json:"genres"`
	Tags           []named     `json:"tags"`
	Artworks       []Artwork   `json:"artworks"`
	Seasons        []SeasonRef `json:"seasons"`
	Trailers       []struct {
		URL string `json:"url"`
	} `json:"trailers"`
}

type recordResponse struct {
	Data Record `json:"data"`
}

// Episode is one entry of an extended season.
type Episode struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	Image        string `json:"image"`
	Number       int    `json:"number"`
	SeasonNumber int    `json:"seasonNumber"`
	Aired        string `json:"aired"`
}

// SeasonDetails is the /seasons/{id}/extended payload.
type SeasonDetails struct {
	ID       int64     `json:"id"`
	Year     string    `json:"year"`
	Episodes []Episode `json:"episodes"`
}

type seasonResponse struct {
	Data SeasonDetails `json:"data"`
}

type translationResponse struct {
	Data struct {
		Name     string `json:"name"`
		Overview string `json:"overview"`
	} `json:"data"`
}

// Client talks to TheTVDB v4 API.
type Client struct {
	apiKey  string
	baseURL string
	http    *httpx.Client

	mu    sync.Mutex
	token string
}

var (
	_ catalog.Searcher       = (*Client)(nil)
	_ catalog.DetailFetcher  = (*Client)(nil)
	_ catalog.EpisodeFetcher = (*Client)(nil)
)

// New creates a TVDB client.
func New(apiKey, baseURL string, client *httpx.Client) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tvdb api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tvdb base url required")
	}
	if client == nil {
		client = httpx.New("tvdb")
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, http: client}, nil
}

// Name implements catalog.Searcher.
func (c *Client) Name() catalog.Name { return catalog.TVDB }

// authHeader returns the bearer header, logging in when no token is cached or
// renew is set.
func (c *Client) authHeader(ctx context.Context, renew bool) (http.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || renew {
		var resp struct {
			Data struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		if err := c.http.PostJSON(ctx, c.baseURL+"/login", map[string]string{"apikey": c.apiKey}, &resp); err != nil {
			return nil, err
		}
		token := strings.TrimSpace(resp.Data.Token)
		if token == "" {
			return nil, services.Wrap(services.ErrConfiguration, "tvdb", "login", "empty token", nil)
		}
		c.token = token
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	return header, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	header, err := c.authHeader(ctx, false)
	if err != nil {
		return err
	}
	err = c.http.GetJSONWithHeader(ctx, c.baseURL+path, header, out)
	var statusErr *httpx.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		return err
	}
	// Tokens expire; log in again once.
	if header, err = c.authHeader(ctx, true); err != nil {
		return err
	}
	return c.http.GetJSONWithHeader(ctx, c.baseURL+path, header, out)
}

// Search implements catalog.Searcher. Only series and movie records are kept.
func (c *Client) Search(ctx context.Context, query string, hints catalog.Hints) ([]catalog.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "tvdb", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	if kind := searchType(hints.Format); kind != "" {
		params.Set("type", kind)
	}
	if start, _ := hints.YearRange(); start > 0 {
		params.Set("year", strconv.Itoa(start))
	}

	var resp searchResponse
	if err := c.get(ctx, "/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]catalog.Candidate, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.PrimaryType != "series" && r.PrimaryType != "movie" {
			continue
		}
		path := "/" + r.PrimaryType + "/" + r.TVDBID
		alt := append([]string(nil), r.Aliases...)
		if eng := strings.TrimSpace(r.Translations["eng"]); eng != "" && eng != r.Name {
			alt = append(alt, eng)
		}
		out = append(out, catalog.Candidate{
			ID:        path,
			Title:     r.Name,
			AltTitles: alt,
			Image:     r.ImageURL,
			URL:       siteURL + path,
			Released:  r.Year,
			Year:      yearOf(r.Year),
			Format:    strings.ToUpper(r.PrimaryType),
		})
	}
	return out, nil
}

// GetRecord fetches the extended series or movie record for a search id.
func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	path, err := normalizePath(id)
	if err != nil {
		return nil, err
	}
	var resp recordResponse
	if err := c.get(ctx, path+"/extended", &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// FetchDetail implements catalog.DetailFetcher.
func (c *Client) FetchDetail(ctx context.Context, id string, _ catalog.Hints) (*catalog.Detail, error) {
	rec, err := c.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &catalog.Detail{
		Year:     yearOf(rec.FirstAired),
		Duration: rec.AverageRuntime,
	}
	if len(rec.Trailers) > 0 {
		d.Trailer = rec.Trailers[0].URL
	}
	for _, a := range rec.Aliases {
		d.Synonyms = appendName(d.Synonyms, a.Name)
	}
	for _, g := range rec.Genres {
		d.Genres = appendName(d.Genres, g.Name)
	}
	for _, tag := range rec.Tags {
		d.Tags = appendName(d.Tags, tag.Name)
	}
	for _, art := range rec.Artworks {
		if art.Image == "" {
			continue
		}
		if d.CoverImage == "" && posterTypes[art.Type] {
			d.CoverImage = art.Image
		}
		if d.BannerImage == "" && backgroundTypes[art.Type] {
			d.BannerImage = art.Image
		}
		if kind := artworkKind(art.Type); kind != "" {
			d.Artworks = append(d.Artworks, catalog.Artwork{
				Type:     kind,
				Image:    art.Image,
				Language: art.Language,
				Catalog:  catalog.TVDB,
			})
		}
	}
	return d, nil
}

// FetchEpisodes implements catalog.EpisodeFetcher. Official seasons with at
// least one episode aired inside the subject's year range are candidates;
// when the subject's episode count is known, seasons within one episode of it
// are preferred. Specials and movies yield nothing.
func (c *Client) FetchEpisodes(ctx context.Context, id string, hints catalog.Hints) ([]catalog.Episode, error) {
	path, err := normalizePath(id)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "/series/") {
		return nil, nil
	}
	rec, err := c.GetRecord(ctx, path)
	if err != nil {
		return nil, err
	}

	type pick struct {
		season   SeasonRef
		size     int
		episodes []Episode
	}
	var picks []pick
	for _, s := range rec.Seasons {
		if s.Number <= 0 || (s.Type.Type != "" && s.Type.Type != "official") {
			continue
		}
		var resp seasonResponse
		if err := c.get(ctx, "/seasons/"+strconv.FormatInt(s.ID, 10)+"/extended", &resp); err != nil {
			return nil, err
		}
		var aired []Episode
		for _, ep := range resp.Data.Episodes {
			if hints.InYearRange(yearOf(ep.Aired)) {
				aired = append(aired, ep)
			}
		}
		if len(aired) > 0 {
			picks = append(picks, pick{season: s, size: len(resp.Data.Episodes), episodes: aired})
		}
	}
	if hints.EpisodeCount > 0 {
		var sized []pick
		for _, p := range picks {
			if diff := p.size - hints.EpisodeCount; diff >= -1 && diff <= 1 {
				sized = append(sized, p)
			}
		}
		if len(sized) > 0 {
			picks = sized
		}
	}

	var out []catalog.Episode
	for _, p := range picks {
		for _, ep := range p.episodes {
			season := ep.SeasonNumber
			if season == 0 {
				season = p.season.Number
			}
			e := catalog.Episode{
				ID:          strconv.FormatInt(ep.ID, 10),
				Number:      ep.Number,
				Title:       ep.Name,
				Description: ep.Overview,
				Image:       ep.Image,
				Season:      season,
				UpdatedAt:   ep.Aired,
			}
			if name, overview, ok := c.englishTranslation(ctx, ep.ID); ok {
				e.Title = firstNonEmpty(name, e.Title)
				e.Description = firstNonEmpty(overview, e.Description)
			} else if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].Season < out[j].Season
	})
	return out, nil
}

// englishTranslation loads the English episode title and overview. Episodes
// without one keep their original-language text.
func (c *Client) englishTranslation(ctx context.Context, episodeID int64) (string, string, bool) {
	var resp translationResponse
	if err := c.get(ctx, "/episodes/"+strconv.FormatInt(episodeID, 10)+"/translations/eng", &resp); err != nil {
		return "", "", false
	}
	return strings.TrimSpace(resp.Data.Name), strings.TrimSpace(resp.Data.Overview), true
}

func searchType(format string) string {
	switch format {
	case "MOVIE":
		return "movie"
	case "TV", "TV_SHORT", "SPECIAL":
		return "series"
	default:
		return ""
	}
}

func artworkKind(typ int) string {
	switch {
	case bannerTypes[typ]:
		return "banner"
	case posterTypes[typ]:
		return "poster"
	case clearLogoTypes[typ]:
		return "clear_logo"
	default:
		return ""
	}
}

// normalizePath maps a search id onto the API path. Search ids say "movie"
// where the API says "movies".
func normalizePath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "/") {
		id = "/" + id
	}
	switch {
	case strings.HasPrefix(id, "/series/"):
		return id, nil
	case strings.HasPrefix(id, "/movies/"):
		return id, nil
	case strings.HasPrefix(id, "/movie/"):
		return "/movies/" + strings.TrimPrefix(id, "/movie/"), nil
	default:
		return "", services.Wrap(services.ErrValidation, "tvdb", "parse id", "expected /series/ or /movie/ prefix: "+id, nil)
	}
}

func appendName(list []string, name string) []string {
	if name = strings.TrimSpace(name); name != "" {
		return append(list, name)
	}
	return list
}

// yearOf reads the leading year of "2013" or "2013-04-07".
func yearOf(value string) int {
	if len(value) < 4 {
		return 0
	}
	y, err := strconv.Atoi(value[:4])
	if err != nil {
		return 0
	}
	return y
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
