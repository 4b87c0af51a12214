package kitsu_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"animap/internal/catalog"
	"animap/internal/gateways/kitsu"
	"animap/internal/httpx"
	"animap/internal/services"
)

func newClient(t *testing.T, handler http.HandlerFunc) *kitsu.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := kitsu.New(server.URL, httpx.New("kitsu", kitsu.Options()...))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestSearchUsesTextFilterAndJSONAPIAccept(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.api+json" {
			t.Errorf("unexpected Accept header %q", got)
		}
		if r.URL.Path != "/anime" || r.URL.Query().Get("filter[text]") != "Shingeki no Kyojin" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"7442","type":"anime","attributes":{
			"titles":{"en":"Attack on Titan","en_jp":"Shingeki no Kyojin","ja_jp":"進撃の巨人","en_us":null},
			"canonicalTitle":"Attack on Titan","abbreviatedTitles":["AoT"],
			"startDate":"2013-04-07","subtype":"TV","posterImage":{"original":"https://media/poster.jpg"}
		}}]}`))
	})

	got, err := client.Search(context.Background(), "Shingeki no Kyojin", catalog.Hints{})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	c := got[0]
	if c.ID != "7442" || c.Title != "Shingeki no Kyojin" || c.URL != "https://kitsu.app/anime/7442" || c.Year != 2013 {
		t.Fatalf("unexpected candidate %#v", c)
	}
	want := []string{"Attack on Titan", "Shingeki no Kyojin", "進撃の巨人", "AoT"}
	if len(c.AltTitles) != len(want) {
		t.Fatalf("unexpected alt titles %v", c.AltTitles)
	}
	for i := range want {
		if c.AltTitles[i] != want[i] {
			t.Fatalf("unexpected alt titles %v", c.AltTitles)
		}
	}
	if c.Image != "https://media/poster.jpg" {
		t.Fatalf("unexpected image %q", c.Image)
	}
}

func TestFetchDetailIncludesGenresAndArtwork(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime/7442" || r.URL.Query().Get("include") != "genres" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"data":{"id":"7442","type":"anime","attributes":{
			"titles":{"en":"Attack on Titan","en_jp":"Shingeki no Kyojin"},
			"synopsis":"Centuries ago...","averageRating":"84.27","episodeCount":25,"episodeLength":24,
			"subtype":"TV","status":"finished","startDate":"2013-04-07","popularityRank":3,
			"coverImage":{"original":"https://media/cover.jpg"},"posterImage":{"original":"https://media/poster.jpg"},
			"youtubeVideoId":"LHtdKWJdif4"
		}},"included":[
			{"id":"1","type":"genres","attributes":{"name":"Action"}},
			{"id":"9","type":"categories","attributes":{"title":"Gore"}}
		]}`))
	})

	d, err := client.FetchDetail(context.Background(), "7442", catalog.Hints{})
	if err != nil {
		t.Fatalf("FetchDetail returned error: %v", err)
	}
	if d.Rating != 8.43 {
		t.Fatalf("expected rating 8.43, got %v", d.Rating)
	}
	if d.Episodes != 25 || d.Duration != 24 || d.Description != "Centuries ago..." || d.Titles.UserPreferred != "Shingeki no Kyojin" {
		t.Fatalf("unexpected detail %#v", d)
	}
	if d.CoverImage != "https://media/poster.jpg" || d.BannerImage != "https://media/cover.jpg" {
		t.Fatalf("unexpected images %q %q", d.CoverImage, d.BannerImage)
	}
	if len(d.Artworks) != 2 || d.Artworks[0].Type != "banner" || d.Artworks[1].Catalog != catalog.Kitsu {
		t.Fatalf("unexpected artworks %#v", d.Artworks)
	}
	if len(d.Genres) != 1 || d.Genres[0] != "Action" {
		t.Fatalf("unexpected genres %v", d.Genres)
	}
	if d.Trailer != "https://www.youtube.com/watch?v=LHtdKWJdif4" {
		t.Fatalf("unexpected trailer %q", d.Trailer)
	}
}

func TestFetchDetailMissingData(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})
	if _, err := client.FetchDetail(context.Background(), "1", catalog.Hints{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
