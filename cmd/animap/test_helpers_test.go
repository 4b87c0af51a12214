package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"animap/internal/config"
	"animap/internal/testsupport"
)

const mediaPayload = `{"data":{"Media":{
  "id":16498,"idMal":16498,
  "title":{"romaji":"Shingeki no Kyojin","english":"Attack on Titan","native":"進撃の巨人","userPreferred":"Shingeki no Kyojin"},
  "synonyms":["AoT"],"description":"Centuries ago...",
  "format":"TV","status":"FINISHED","season":"SPRING","seasonYear":2013,
  "startDate":{"year":2013,"month":4,"day":7},"endDate":{"year":2013,"month":9,"day":28},
  "episodes":25,"duration":24,"genres":["Action"],"countryOfOrigin":"JP","isAdult":false
}}}`

const searchPayload = `{"data":[{
  "mal_id":16498,"title":"Shingeki no Kyojin","title_english":"Attack on Titan","title_japanese":"進撃の巨人",
  "type":"TV","aired":{"from":"2013-04-07T00:00:00+00:00","prop":{"from":{"year":2013}}}
}]}`

const detailPayload = `{"data":{
  "mal_id":16498,"title":"Shingeki no Kyojin","type":"TV","status":"Finished Airing",
  "synopsis":"Humanity lives behind walls.","genres":[{"name":"Action"},{"name":"Drama"}],"score":8.5
}}`

type cliTestEnv struct {
	cfg        *config.Config
	server     *httptest.Server
	configPath string
	ids        string
}

// setupCLITestEnv serves AniList, Jikan and the id list from one test server
// and writes a config enabling only the mal catalog.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	env := &cliTestEnv{ids: "16498\n"}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/anilist" && r.Method == http.MethodPost:
			_, _ = w.Write([]byte(mediaPayload))
		case r.URL.Path == "/jikan/anime":
			_, _ = w.Write([]byte(searchPayload))
		case r.URL.Path == "/jikan/anime/16498/full":
			_, _ = w.Write([]byte(detailPayload))
		case r.URL.Path == "/jikan/anime/16498/episodes":
			testsupport.WriteJSON(t, w, map[string]any{
				"pagination": map[string]any{"last_visible_page": 1, "has_next_page": false},
				"data":       []any{},
			})
		case r.URL.Path == "/ids.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(env.ids))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(env.server.Close)

	env.cfg = testsupport.NewConfig(t,
		testsupport.WithEndpoints(env.server.URL),
		testsupport.WithCatalogs("mal"),
		testsupport.WithTMDBKey("tmdb-secret"),
	)
	env.cfg.Logging.Level = "error"
	env.cfg.AniList.RequestsPerSecond = 100
	env.cfg.Jikan.RequestsPerSecond = 100
	env.cfg.Resolver.RequestTimeoutSeconds = 5

	base := testsupport.BaseDir(env.cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("ANIMAP_DATA_DIR", "")
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("TVDB_API_KEY", "")

	data, err := toml.Marshal(env.cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	env.configPath = filepath.Join(base, "config", "animap.toml")
	testsupport.WriteFile(t, env.configPath, data)
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
