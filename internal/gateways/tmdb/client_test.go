package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"animap/internal/catalog"
	"animap/internal/gateways/tmdb"
	"animap/internal/httpx"
	"animap/internal/services"
)

func newClient(t *testing.T, handler http.HandlerFunc) *tmdb.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := tmdb.New("key", server.URL, "https://image.tmdb.org/t/p/original", "en-US", httpx.New("tmdb"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "", "en-US", nil); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestSearchKeepsTVAndMovies(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search/multi" || q.Get("api_key") != "key" || q.Get("language") != "en-US" || q.Get("query") != "Attack on Titan" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[
			{"id":1429,"media_type":"tv","name":"Attack on Titan","original_name":"進撃の巨人","first_air_date":"2013-04-07","poster_path":"/p.jpg"},
			{"id":99,"media_type":"person","name":"Someone"},
			{"id":372058,"media_type":"movie","title":"Your Name.","original_title":"君の名は。","release_date":"2016-08-26"}
		]}`))
	})

	got, err := client.Search(context.Background(), "Attack on Titan", catalog.Hints{})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected person result to be dropped, got %#v", got)
	}
	tv := got[0]
	if tv.ID != "/tv/1429" || tv.Year != 2013 || tv.Image != "https://image.tmdb.org/t/p/original/p.jpg" || tv.URL != "https://www.themoviedb.org/tv/1429" {
		t.Fatalf("unexpected tv candidate %#v", tv)
	}
	if len(tv.AltTitles) != 2 || tv.AltTitles[0] != "進撃の巨人" {
		t.Fatalf("unexpected alt titles %v", tv.AltTitles)
	}
	if got[1].ID != "/movie/372058" || got[1].Year != 2016 || got[1].Format != "MOVIE" {
		t.Fatalf("unexpected movie candidate %#v", got[1])
	}
}

func TestSearchHTTPError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7}`))
	})
	if _, err := client.Search(context.Background(), "fail", catalog.Hints{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for bad key, got %v", err)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "", "", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "  ", catalog.Hints{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFetchDetailTV(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1429" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":1429,"name":"Attack on Titan","original_name":"進撃の巨人","overview":"Humans...",
			"first_air_date":"2013-04-07","number_of_episodes":87,"episode_run_time":[24],"vote_average":8.7,"popularity":120.6,
			"poster_path":"/p.jpg","backdrop_path":"/b.jpg","genres":[{"name":"Animation"}],"production_companies":[{"name":"MAPPA"}]}`))
	})
	d, err := client.FetchDetail(context.Background(), "/tv/1429", catalog.Hints{})
	if err != nil {
		t.Fatalf("FetchDetail returned error: %v", err)
	}
	if d.Episodes != 87 || d.Duration != 24 || d.Rating != 8.7 || d.Popularity != 120 || d.Format != "TV" {
		t.Fatalf("unexpected detail %#v", d)
	}
	if d.BannerImage != "https://image.tmdb.org/t/p/original/b.jpg" || len(d.Artworks) != 2 {
		t.Fatalf("unexpected images %#v", d)
	}
	if len(d.Studios) != 1 || d.Studios[0] != "MAPPA" || len(d.Genres) != 1 {
		t.Fatalf("unexpected lists %#v", d)
	}
}

func TestFetchDetailRejectsUnknownPrefix(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "", "", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.FetchDetail(context.Background(), "/person/5", catalog.Hints{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFetchEpisodesPicksClosestSeason(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tv/1429":
			_, _ = w.Write([]byte(`{"id":1429,"name":"Attack on Titan","seasons":[
				{"id":1,"season_number":0,"episode_count":8,"air_date":""},
				{"id":2,"season_number":1,"episode_count":25,"air_date":"2013-04-07"},
				{"id":3,"season_number":2,"episode_count":12,"air_date":"2017-04-01"},
				{"id":4,"season_number":3,"episode_count":22,"air_date":"2018-07-23"}
			]}`))
		case "/tv/1429/season/2":
			_, _ = w.Write([]byte(`{"id":3,"season_number":2,"episodes":[
				{"id":1001,"episode_number":1,"name":"Beast Titan","overview":"...","still_path":"/s1.jpg","air_date":"2017-04-01","vote_average":8.1},
				{"id":1002,"episode_number":2,"name":"I'm Home","vote_average":0}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	eps, err := client.FetchEpisodes(context.Background(), "/tv/1429", catalog.Hints{Year: 2017, EpisodeCount: 12})
	if err != nil {
		t.Fatalf("FetchEpisodes returned error: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 episodes, got %#v", eps)
	}
	if eps[0].Season != 2 || eps[0].Title != "Beast Titan" || eps[0].Image != "https://image.tmdb.org/t/p/original/s1.jpg" {
		t.Fatalf("unexpected first episode %#v", eps[0])
	}
	if eps[0].Rating == nil || *eps[0].Rating != 8.1 || eps[1].Rating != nil {
		t.Fatalf("expected zero vote average to be omitted, got %#v", eps)
	}
}

func TestFetchEpisodesMovieHasNone(t *testing.T) {
	client, err := tmdb.New("key", "https://example.invalid", "", "", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	eps, err := client.FetchEpisodes(context.Background(), "/movie/372058", catalog.Hints{Year: 2016})
	if err != nil || eps != nil {
		t.Fatalf("expected no episodes for a movie, got %v, %v", eps, err)
	}
}

func TestPickSeason(t *testing.T) {
	seasons := []tmdb.Season{
		{SeasonNumber: 1, EpisodeCount: 25, AirDate: "2013-04-07"},
		{SeasonNumber: 2, EpisodeCount: 12, AirDate: "2017-04-01"},
		{SeasonNumber: 3, EpisodeCount: 22, AirDate: "2018-07-23"},
	}
	cases := []struct {
		name     string
		year     int
		episodes int
		want     int
		ok       bool
	}{
		{name: "closest year", year: 2018, want: 3, ok: true},
		{name: "episode count overrides distance", year: 2013, episodes: 12, want: 2, ok: true},
		{name: "no year", year: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tmdb.PickSeason(seasons, tc.year, tc.episodes)
			if ok != tc.ok || (ok && got.SeasonNumber != tc.want) {
				t.Fatalf("PickSeason(%d, %d) = %d, %v; want %d, %v", tc.year, tc.episodes, got.SeasonNumber, ok, tc.want, tc.ok)
			}
		})
	}
}
