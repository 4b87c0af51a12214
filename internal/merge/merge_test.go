package merge_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"animap/internal/catalog"
	"animap/internal/merge"
)

func sampleSubject() catalog.Subject {
	return catalog.Subject{
		ID:           16498,
		IDMal:        16498,
		Titles:       catalog.TitleSet{Romaji: "Shingeki no Kyojin", English: "Attack on Titan", UserPreferred: "Shingeki no Kyojin"},
		Synonyms:     []string{"SnK", "AoT"},
		Description:  "anilist description",
		Format:       "TV",
		Status:       "FINISHED",
		SeasonYear:   2013,
		Episodes:     25,
		Duration:     24,
		CoverImage:   "https://anilist/cover.jpg",
		BannerImage:  "https://anilist/banner.jpg",
		Genres:       []string{"Action", "Drama"},
		Tags:         []string{"Military"},
		Studios:      []string{"Wit Studio"},
		AverageScore: 85,
	}
}

func TestMergeZeroMatchesUsesPrimaryOnly(t *testing.T) {
	subject := sampleSubject()
	mappings := catalog.Mappings{catalog.MAL: catalog.Absent{}, catalog.TVDB: catalog.Absent{}}

	e := merge.Merge(subject, nil, mappings)
	if e.ID != subject.ID || e.Title != subject.Titles {
		t.Fatalf("unexpected identity fields: %+v", e)
	}
	if e.Description != "anilist description" || e.CoverImage != subject.CoverImage || e.BannerImage != subject.BannerImage {
		t.Fatalf("expected primary floor values, got %+v", e)
	}
	if e.TotalEpisodes != 25 || e.Duration != 24 || e.Rating != 8.5 {
		t.Fatalf("unexpected numeric floors: %+v", e)
	}
	if e.Status != merge.StatusCompleted || e.SourceStatus != "FINISHED" {
		t.Fatalf("unexpected status %q/%q", e.Status, e.SourceStatus)
	}
	if !reflect.DeepEqual(e.Genres, []string{"Action", "Drama"}) {
		t.Fatalf("unexpected genres %v", e.Genres)
	}
	if e.Artworks == nil || len(e.Artworks) != 0 {
		t.Fatalf("expected empty non-nil artworks, got %#v", e.Artworks)
	}
	if len(e.Mappings) != 2 {
		t.Fatalf("expected mappings to be retained, got %v", e.Mappings)
	}
	if e.Episodes.HiAnime.Sub == nil || e.Episodes.GogoAnime.Dub == nil {
		t.Fatal("expected empty non-nil episode tracks")
	}
	if !e.ResolvedAt.IsZero() {
		t.Fatal("merge must not stamp ResolvedAt")
	}
}

func TestMergePriorityOrder(t *testing.T) {
	subject := sampleSubject()
	details := catalog.Details{
		catalog.Of(catalog.MAL):   {Description: "mal description", Duration: 23, Rating: 9.1},
		catalog.Of(catalog.TVDB):  {Description: "tvdb description", CoverImage: "https://tvdb/poster.jpg"},
		catalog.Of(catalog.Kitsu): {CoverImage: "https://kitsu/poster.jpg", BannerImage: "https://kitsu/cover.jpg"},
	}
	e := merge.Merge(subject, details, nil)
	if e.Description != "tvdb description" {
		t.Fatalf("expected tvdb to outrank mal for description, got %q", e.Description)
	}
	if e.CoverImage != "https://tvdb/poster.jpg" {
		t.Fatalf("expected tvdb cover image, got %q", e.CoverImage)
	}
	if e.BannerImage != "https://kitsu/cover.jpg" {
		t.Fatalf("expected kitsu banner when tvdb has none, got %q", e.BannerImage)
	}
	if e.Duration != 23 || e.Rating != 9.1 {
		t.Fatalf("expected mal duration and rating, got %d %v", e.Duration, e.Rating)
	}
}

func TestMergeBannerFallsBackToTVDBArtwork(t *testing.T) {
	subject := sampleSubject()
	subject.BannerImage = ""
	details := catalog.Details{
		catalog.Of(catalog.TVDB): {Artworks: []catalog.Artwork{{Type: "poster", Image: "p.jpg"}, {Type: "banner", Image: "b.jpg"}}},
	}
	e := merge.Merge(subject, details, nil)
	if e.BannerImage != "b.jpg" {
		t.Fatalf("expected tvdb banner artwork, got %q", e.BannerImage)
	}
	if len(e.Artworks) != 2 || e.Artworks[0].Catalog != catalog.TVDB {
		t.Fatalf("expected artworks tagged with their catalog, got %+v", e.Artworks)
	}
}

func TestMergeDeduplicatesMultiValuedFields(t *testing.T) {
	subject := sampleSubject()
	details := catalog.Details{
		catalog.Sub(catalog.GogoAnime): {Genres: []string{"Action", "", "Fantasy"}},
		catalog.Of(catalog.Kitsu):      {Genres: []string{"action", "Fantasy"}, Artworks: []catalog.Artwork{{Type: "poster", Image: "k.jpg"}}},
		catalog.Of(catalog.TVDB):       {Tags: []string{"military", "Gore"}, Artworks: []catalog.Artwork{{Type: "poster", Image: "k.jpg"}}},
		catalog.Of(catalog.MAL):        {Titles: catalog.TitleSet{English: "Attack on Titan", Native: "進撃の巨人"}, Synonyms: []string{"aot"}},
	}
	e := merge.Merge(subject, details, nil)

	if !reflect.DeepEqual(e.Genres, []string{"Action", "Drama", "Fantasy"}) {
		t.Fatalf("unexpected genres %v", e.Genres)
	}
	if !reflect.DeepEqual(e.Tags, []string{"Military", "Gore"}) {
		t.Fatalf("unexpected tags %v", e.Tags)
	}
	if !reflect.DeepEqual(e.Synonyms, []string{"SnK", "AoT", "Attack on Titan", "進撃の巨人"}) {
		t.Fatalf("unexpected synonyms %v", e.Synonyms)
	}
	if len(e.Artworks) != 1 || e.Artworks[0].Catalog != catalog.TVDB {
		t.Fatalf("expected one artwork credited to tvdb, got %+v", e.Artworks)
	}
}

func TestMergeIsPure(t *testing.T) {
	subject := sampleSubject()
	details := catalog.Details{
		catalog.Of(catalog.MAL):   {Description: "m", Genres: []string{"Action", "Mystery"}, Studios: []string{"WIT STUDIO", "Production I.G"}},
		catalog.Of(catalog.Kitsu): {Genres: []string{"Horror"}},
		catalog.Of(catalog.TMDB):  {Genres: []string{"Animation"}},
	}
	mappings := catalog.Mappings{catalog.MAL: catalog.SingleMatch{Result: catalog.MatchResult{Similarity: 1, MatchType: catalog.MatchStrict}}}

	first, err := json.Marshal(merge.Merge(subject, details, mappings))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(merge.Merge(subject, details, mappings))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(first) != string(again) {
			t.Fatalf("merge not deterministic:\n%s\n%s", first, again)
		}
	}
}

func TestConvertStatus(t *testing.T) {
	cases := map[string]string{
		"RELEASING":        merge.StatusAiring,
		"FINISHED":         merge.StatusCompleted,
		"NOT_YET_RELEASED": merge.StatusComingSoon,
		"NOT_YET_AIRED":    merge.StatusComingSoon,
		"CANCELLED":        merge.StatusDiscontinued,
		"HIATUS":           merge.StatusOnBreak,
		"releasing":        merge.StatusAiring,
		"SOMETHING_ELSE":   merge.StatusUnknown,
		"":                 merge.StatusUnknown,
	}
	for in, want := range cases {
		if got := merge.ConvertStatus(in); got != want {
			t.Fatalf("ConvertStatus(%q) = %q, want %q", in, got, want)
		}
	}
	if merge.IsActive("FINISHED") || merge.IsActive("cancelled") || !merge.IsActive("RELEASING") {
		t.Fatal("unexpected IsActive result")
	}
}
