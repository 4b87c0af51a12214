package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"animap/internal/catalog"
	"animap/internal/httpx"
	"animap/internal/services"
)

const siteURL = "https://www.themoviedb.org"

// Result represents a single TMDB search match.
type Result struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Name          string  `json:"name"`
	OriginalTitle string  `json:"original_title"`
	OriginalName  string  `json:"original_name"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	FirstAirDate  string  `json:"first_air_date"`
	MediaType     string  `json:"media_type"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Season is the per-season summary embedded in TV details.
type Season struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
}

// Details is the movie or TV detail payload.
type Details struct {
	Result
	NumberOfEpisodes int   `json:"number_of_episodes"`
	EpisodeRunTime   []int `json:"episode_run_time"`
	Runtime          int   `json:"runtime"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	OriginCountry []string `json:"origin_country"`
	Seasons       []Season `json:"seasons"`
}

// Episode describes a single TMDB episode entry.
type Episode struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	Runtime       int     `json:"runtime"`
	AirDate       string  `json:"air_date"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// SeasonDetails captures the full TMDB season payload (episodes included).
type SeasonDetails struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	language     string
	http         *httpx.Client
}

var (
	_ catalog.Searcher       = (*Client)(nil)
	_ catalog.DetailFetcher  = (*Client)(nil)
	_ catalog.EpisodeFetcher = (*Client)(nil)
)

// New creates a TMDB client.
func New(apiKey, baseURL, imageBaseURL, language string, client *httpx.Client) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	if client == nil {
		client = httpx.New("tmdb")
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		imageBaseURL: strings.TrimRight(strings.TrimSpace(imageBaseURL), "/"),
		language:     strings.TrimSpace(language),
		http:         client,
	}, nil
}

// Name implements catalog.Searcher.
func (c *Client) Name() catalog.Name { return catalog.TMDB }

func (c *Client) endpoint(path string, extra url.Values) string {
	params := url.Values{}
	for k, v := range extra {
		params[k] = v
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	return c.baseURL + path + "?" + params.Encode()
}

// SearchMulti performs a TMDB multi search across movies and TV.
func (c *Client) SearchMulti(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("include_adult", "false")

	var payload Response
	if err := c.http.GetJSON(ctx, c.endpoint("/search/multi", params), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Search implements catalog.Searcher. People and other media types are
// dropped; ids keep their "/tv/" or "/movie/" prefix.
func (c *Client) Search(ctx context.Context, query string, _ catalog.Hints) ([]catalog.Candidate, error) {
	resp, err := c.SearchMulti(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.MediaType != "tv" && r.MediaType != "movie" {
			continue
		}
		path := "/" + r.MediaType + "/" + strconv.FormatInt(r.ID, 10)
		display := firstNonEmpty(r.Title, r.Name)
		out = append(out, catalog.Candidate{
			ID:        path,
			Title:     display,
			AltTitles: nonEmpty(firstNonEmpty(r.OriginalTitle, r.OriginalName), display),
			Image:     c.image(r.PosterPath),
			URL:       siteURL + path,
			Released:  firstNonEmpty(r.FirstAirDate, r.ReleaseDate),
			Year:      yearOf(firstNonEmpty(r.FirstAirDate, r.ReleaseDate)),
			Format:    strings.ToUpper(r.MediaType),
		})
	}
	return out, nil
}

// GetDetails fetches movie or TV details by search id ("/tv/1429").
func (c *Client) GetDetails(ctx context.Context, id string) (*Details, error) {
	path, err := normalizePath(id)
	if err != nil {
		return nil, err
	}
	var payload Details
	if err := c.http.GetJSON(ctx, c.endpoint(path, nil), &payload); err != nil {
		return nil, err
	}
	if strings.HasPrefix(path, "/tv/") {
		payload.MediaType = "tv"
	} else {
		payload.MediaType = "movie"
	}
	return &payload, nil
}

// GetSeasonDetails fetches the full season metadata for a TV show, including episodes.
func (c *Client) GetSeasonDetails(ctx context.Context, showID int64, seasonNumber int) (*SeasonDetails, error) {
	if showID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "season details", "show id must be positive", nil)
	}
	if seasonNumber < 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "season details", "season number must not be negative", nil)
	}
	var payload SeasonDetails
	if err := c.http.GetJSON(ctx, c.endpoint(fmt.Sprintf("/tv/%d/season/%d", showID, seasonNumber), nil), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchDetail implements catalog.DetailFetcher.
func (c *Client) FetchDetail(ctx context.Context, id string, _ catalog.Hints) (*catalog.Detail, error) {
	info, err := c.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &catalog.Detail{
		Titles: catalog.TitleSet{
			English:       firstNonEmpty(info.Name, info.Title),
			Native:        firstNonEmpty(info.OriginalName, info.OriginalTitle),
			UserPreferred: firstNonEmpty(info.Name, info.Title, info.OriginalName, info.OriginalTitle),
		},
		Description: info.Overview,
		Format:      strings.ToUpper(info.MediaType),
		Year:        yearOf(firstNonEmpty(info.FirstAirDate, info.ReleaseDate)),
		Episodes:    info.NumberOfEpisodes,
		Duration:    info.Runtime,
		Rating:      info.VoteAverage,
		Popularity:  int(info.Popularity),
		CoverImage:  c.image(info.PosterPath),
		BannerImage: c.image(info.BackdropPath),
	}
	if len(info.EpisodeRunTime) > 0 {
		d.Duration = info.EpisodeRunTime[0]
	}
	for _, g := range info.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	for _, pc := range info.ProductionCompanies {
		d.Studios = append(d.Studios, pc.Name)
	}
	if d.CoverImage != "" {
		d.Artworks = append(d.Artworks, catalog.Artwork{Type: "poster", Image: d.CoverImage, Catalog: catalog.TMDB})
	}
	if d.BannerImage != "" {
		d.Artworks = append(d.Artworks, catalog.Artwork{Type: "banner", Image: d.BannerImage, Catalog: catalog.TMDB})
	}
	return d, nil
}

// FetchEpisodes implements catalog.EpisodeFetcher. TMDB groups anime under
// one show with many seasons, so the season that best fits the subject is
// chosen first. Movies have no episodes.
func (c *Client) FetchEpisodes(ctx context.Context, id string, hints catalog.Hints) ([]catalog.Episode, error) {
	path, err := normalizePath(id)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "/tv/") {
		return nil, nil
	}
	showID, err := strconv.ParseInt(strings.TrimPrefix(path, "/tv/"), 10, 64)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "fetch episodes", "bad show id "+id, err)
	}
	info, err := c.GetDetails(ctx, path)
	if err != nil {
		return nil, err
	}
	season, ok := PickSeason(info.Seasons, hints.Year, hints.EpisodeCount)
	if !ok {
		return nil, nil
	}
	details, err := c.GetSeasonDetails(ctx, showID, season.SeasonNumber)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Episode, 0, len(details.Episodes))
	for _, ep := range details.Episodes {
		e := catalog.Episode{
			ID:          strconv.FormatInt(ep.ID, 10),
			Number:      ep.EpisodeNumber,
			Title:       ep.Name,
			Description: ep.Overview,
			Image:       c.image(ep.StillPath),
			Season:      season.SeasonNumber,
			UpdatedAt:   ep.AirDate,
		}
		if ep.VoteAverage > 0 {
			e.Rating = catalog.Float(ep.VoteAverage)
		}
		out = append(out, e)
	}
	return out, nil
}

// PickSeason selects the season whose air year is closest to year, letting a
// season whose episode count equals episodes override the distance. Seasons
// without an air date are ignored; no year means no pick.
func PickSeason(seasons []Season, year, episodes int) (Season, bool) {
	var (
		best    Season
		found   bool
		closest = -1
	)
	if year <= 0 {
		return best, false
	}
	for _, s := range seasons {
		sy := yearOf(s.AirDate)
		if sy == 0 {
			continue
		}
		diff := sy - year
		if diff < 0 {
			diff = -diff
		}
		if closest < 0 || diff < closest || (episodes > 0 && s.EpisodeCount == episodes) {
			closest = diff
			best = s
			found = true
		}
	}
	return best, found
}

func normalizePath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "/") {
		id = "/" + id
	}
	if !strings.HasPrefix(id, "/tv/") && !strings.HasPrefix(id, "/movie/") {
		return "", services.Wrap(services.ErrValidation, "tmdb", "parse id", "expected /tv/ or /movie/ prefix: "+id, nil)
	}
	return id, nil
}

func (c *Client) image(path string) string {
	if strings.TrimSpace(path) == "" || c.imageBaseURL == "" {
		return ""
	}
	return c.imageBaseURL + path
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
