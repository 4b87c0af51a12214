package jikan_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"animap/internal/catalog"
	"animap/internal/gateways/jikan"
	"animap/internal/httpx"
	"animap/internal/services"
)

func newClient(t *testing.T, handler http.HandlerFunc) *jikan.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := jikan.New(server.URL+"/v4/", httpx.New("jikan"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestSearchBuildsCandidates(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/anime" || r.URL.Query().Get("q") != "Shingeki no Kyojin" || r.URL.Query().Get("sfw") == "" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"data":[{
			"mal_id":16498,"title":"Shingeki no Kyojin","title_english":"Attack on Titan","title_japanese":"進撃の巨人",
			"title_synonyms":["AoT"],"titles":[{"type":"Default","title":"Shingeki no Kyojin"}],
			"type":"TV","images":{"jpg":{"image_url":"https://cdn/1.jpg"}},
			"aired":{"from":"2013-04-07T00:00:00+00:00","prop":{"from":{"year":2013}}},"year":null
		}]}`))
	})

	got, err := client.Search(context.Background(), "Shingeki no Kyojin", catalog.Hints{})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	c := got[0]
	if c.ID != "16498" || c.URL != "https://myanimelist.net/anime/16498" || c.Year != 2013 || c.Format != "TV" {
		t.Fatalf("unexpected candidate %#v", c)
	}
	if c.Titles == nil || c.Titles.English != "Attack on Titan" || c.Titles.UserPreferred != "Shingeki no Kyojin" {
		t.Fatalf("unexpected titles %#v", c.Titles)
	}
	if len(c.AltTitles) != 2 || c.AltTitles[0] != "AoT" {
		t.Fatalf("unexpected alt titles %v", c.AltTitles)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client, err := jikan.New("https://api.example/v4", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), "  ", catalog.Hints{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFetchDetailMapsFullRecord(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/anime/16498/full" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{
			"mal_id":16498,"title":"Shingeki no Kyojin","title_english":"Attack on Titan",
			"type":"TV","episodes":25,"status":"Finished Airing","duration":"24 min per ep",
			"score":8.54,"popularity":1,"synopsis":"Centuries ago...","season":"spring","year":2013,
			"images":{"jpg":{"image_url":"https://cdn/s.jpg","large_image_url":"https://cdn/l.jpg"}},
			"trailer":{"url":"https://youtube.com/watch?v=x"},
			"genres":[{"name":"Action"}],"themes":[{"name":"Gore"}],"studios":[{"name":"Wit Studio"}]
		}}`))
	})

	d, err := client.FetchDetail(context.Background(), "16498", catalog.Hints{})
	if err != nil {
		t.Fatalf("FetchDetail returned error: %v", err)
	}
	if d.Episodes != 25 || d.Duration != 24 || d.Rating != 8.54 || d.Season != "SPRING" || d.Year != 2013 {
		t.Fatalf("unexpected scalar fields %#v", d)
	}
	if d.CoverImage != "https://cdn/l.jpg" || d.Description != "Centuries ago..." {
		t.Fatalf("unexpected cover/description %#v", d)
	}
	if len(d.Genres) != 1 || len(d.Tags) != 1 || len(d.Studios) != 1 || d.Studios[0] != "Wit Studio" {
		t.Fatalf("unexpected lists %#v", d)
	}
}

func TestFetchDetailParsesHourDurations(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":1,"title":"Film","duration":"1 hr 47 min"}}`))
	})
	d, err := client.FetchDetail(context.Background(), "1", catalog.Hints{})
	if err != nil {
		t.Fatalf("FetchDetail returned error: %v", err)
	}
	if d.Duration != 107 {
		t.Fatalf("expected 107 minutes, got %d", d.Duration)
	}
}

func TestFetchEpisodesWalksAllPages(t *testing.T) {
	var requests atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/anime/16498/episodes") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		filler := n == 3
		_, _ = fmt.Fprintf(w, `{"pagination":{"last_visible_page":3,"has_next_page":%t},"data":[
			{"mal_id":%d,"title":"Episode %d","title_romanji":"Dai %d-wa","aired":"2013-04-07","score":4.5,"filler":%t}
		]}`, n < 3, n, n, n, filler)
	})

	eps, err := client.FetchEpisodes(context.Background(), "16498", catalog.Hints{})
	if err != nil {
		t.Fatalf("FetchEpisodes returned error: %v", err)
	}
	if requests.Load() != 3 {
		t.Fatalf("expected 3 page requests, got %d", requests.Load())
	}
	if len(eps) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(eps))
	}
	for i, ep := range eps {
		if ep.Number != i+1 {
			t.Fatalf("expected episodes in page order, got %#v", eps)
		}
	}
	if eps[2].IsFiller == nil || !*eps[2].IsFiller || eps[0].Rating == nil || *eps[0].Rating != 4.5 {
		t.Fatalf("unexpected episode flags %#v", eps)
	}
	if eps[0].Description != "Dai 1-wa" {
		t.Fatalf("expected romanji title as description, got %q", eps[0].Description)
	}
}

func TestFetchEpisodesPageFailure(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"pagination":{"last_visible_page":2},"data":[{"mal_id":1,"title":"One"}]}`))
	})
	if _, err := client.FetchEpisodes(context.Background(), "5", catalog.Hints{}); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
