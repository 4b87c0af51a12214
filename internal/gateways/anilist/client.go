package anilist

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"animap/internal/catalog"
	"animap/internal/httpx"
	"animap/internal/services"
)

const mediaQuery = `query ($id: Int!) {
  Media(id: $id, type: ANIME) {
    id
    idMal
    title { romaji english native userPreferred }
    synonyms
    description
    format
    status
    season
    seasonYear
    startDate { year month day }
    endDate { year month day }
    episodes
    duration
    coverImage { extraLarge large color }
    bannerImage
    genres
    tags { name }
    studios(isMain: true) { nodes { name } }
    averageScore
    popularity
    trailer { id site }
    countryOfOrigin
    isAdult
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type mediaResponse struct {
	Data struct {
		Media *media `json:"Media"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type fuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

func (d fuzzyDate) toCatalog() catalog.FuzzyDate {
	return catalog.FuzzyDate{Year: deref(d.Year), Month: deref(d.Month), Day: deref(d.Day)}
}

type media struct {
	ID    int64  `json:"id"`
	IDMal *int64 `json:"idMal"`
	Title struct {
		Romaji        string `json:"romaji"`
		English       string `json:"english"`
		Native        string `json:"native"`
		UserPreferred string `json:"userPreferred"`
	} `json:"title"`
	Synonyms    []string  `json:"synonyms"`
	Description string    `json:"description"`
	Format      string    `json:"format"`
	Status      string    `json:"status"`
	Season      string    `json:"season"`
	SeasonYear  *int      `json:"seasonYear"`
	StartDate   fuzzyDate `json:"startDate"`
	EndDate     fuzzyDate `json:"endDate"`
	Episodes    *int      `json:"episodes"`
	Duration    *int      `json:"duration"`
	CoverImage  struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
		Color      string `json:"color"`
	} `json:"coverImage"`
	BannerImage string   `json:"bannerImage"`
	Genres      []string `json:"genres"`
	Tags        []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Studios struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
	AverageScore *int `json:"averageScore"`
	Popularity   *int `json:"popularity"`
	Trailer      *struct {
		ID   string `json:"id"`
		Site string `json:"site"`
	} `json:"trailer"`
	CountryOfOrigin string `json:"countryOfOrigin"`
	IsAdult         bool   `json:"isAdult"`
}

// Client loads subjects from the AniList GraphQL API.
type Client struct {
	endpoint string
	http     *httpx.Client
}

var _ catalog.SubjectSource = (*Client)(nil)

// New creates an AniList client posting to endpoint.
func New(endpoint string, client *httpx.Client) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("anilist endpoint required")
	}
	if client == nil {
		client = httpx.New("anilist")
	}
	return &Client{endpoint: endpoint, http: client}, nil
}

// FetchSubject loads one anime by AniList id.
func (c *Client) FetchSubject(ctx context.Context, id int64) (*catalog.Subject, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, "anilist", "fetch subject", "id must be positive", nil)
	}
	var resp mediaResponse
	req := graphQLRequest{Query: mediaQuery, Variables: map[string]any{"id": id}}
	err := c.http.PostJSON(ctx, c.endpoint, req, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.Media == nil {
		marker := services.ErrTransient
		message := "empty response"
		for _, e := range resp.Errors {
			if e.Status == 404 {
				marker = services.ErrNotFound
			}
			message = e.Message
		}
		return nil, services.Wrap(marker, "anilist", "fetch subject", "id "+strconv.FormatInt(id, 10)+": "+message, nil)
	}
	return resp.Data.Media.toSubject(), nil
}

func (m *media) toSubject() *catalog.Subject {
	s := &catalog.Subject{
		ID:    m.ID,
		IDMal: deref64(m.IDMal),
		Titles: catalog.TitleSet{
			Romaji:        m.Title.Romaji,
			English:       m.Title.English,
			Native:        m.Title.Native,
			UserPreferred: m.Title.UserPreferred,
		},
		Synonyms:        m.Synonyms,
		Description:     m.Description,
		Format:          m.Format,
		Status:          m.Status,
		Season:          m.Season,
		SeasonYear:      deref(m.SeasonYear),
		StartDate:       m.StartDate.toCatalog(),
		EndDate:         m.EndDate.toCatalog(),
		Episodes:        deref(m.Episodes),
		Duration:        deref(m.Duration),
		CoverImage:      firstNonEmpty(m.CoverImage.ExtraLarge, m.CoverImage.Large),
		BannerImage:     m.BannerImage,
		Color:           m.CoverImage.Color,
		Genres:          m.Genres,
		AverageScore:    deref(m.AverageScore),
		Popularity:      deref(m.Popularity),
		CountryOfOrigin: m.CountryOfOrigin,
		IsAdult:         m.IsAdult,
	}
	for _, tag := range m.Tags {
		s.Tags = append(s.Tags, tag.Name)
	}
	for _, studio := range m.Studios.Nodes {
		s.Studios = append(s.Studios, studio.Name)
	}
	if m.Trailer != nil {
		s.Trailer = trailerURL(m.Trailer.Site, m.Trailer.ID)
	}
	return s
}

func trailerURL(site, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	switch strings.ToLower(site) {
	case "youtube":
		return "https://www.youtube.com/watch?v=" + id
	case "dailymotion":
		return "https://www.dailymotion.com/video/" + id
	default:
		return id
	}
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func deref64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
