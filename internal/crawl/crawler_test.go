package crawl_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"animap/internal/catalog"
	"animap/internal/config"
	"animap/internal/crawl"
	"animap/internal/httpx"
	"animap/internal/merge"
	"animap/internal/services"
	"animap/internal/store"
	"animap/internal/testsupport"
)

type stubResolver struct {
	mu       sync.Mutex
	statuses map[int64]string
	failures map[int64]error
	calls    []int64
}

func (r *stubResolver) Resolve(_ context.Context, id int64) (*merge.Entity, error) {
	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.mu.Unlock()
	if err := r.failures[id]; err != nil {
		return nil, err
	}
	status := r.statuses[id]
	if status == "" {
		status = "FINISHED"
	}
	return &merge.Entity{
		ID:           id,
		Title:        catalog.TitleSet{Romaji: "Entry", UserPreferred: "Entry"},
		SourceStatus: status,
		Status:       merge.ConvertStatus(status),
		Mappings:     catalog.Mappings{catalog.MAL: catalog.Absent{}},
	}, nil
}

func (r *stubResolver) Calls() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.calls...)
}

func serveIDs(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ids.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newCrawler(t *testing.T, cfg *config.Config, resolver crawl.Resolver, st *store.Store) *crawl.Crawler {
	t.Helper()
	c, err := crawl.New(crawl.OptionsFromConfig(cfg), resolver, st, httpx.New("ids"), nil)
	if err != nil {
		t.Fatalf("crawl.New: %v", err)
	}
	return c
}

func TestParseIDs(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []int64
	}{
		{name: "empty", body: "", want: nil},
		{name: "plain", body: "1\n2\n3\n", want: []int64{1, 2, 3}},
		{name: "noise", body: " 21 \r\nabc\n\n-4\n0\n5114", want: []int64{21, 5114}},
		{name: "duplicates", body: "7\n3\n7\n3\n9", want: []int64{7, 3, 9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := crawl.ParseIDs(tc.body)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseIDs(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}

func TestNewRequiresURLAndLock(t *testing.T) {
	resolver := &stubResolver{}
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := crawl.New(crawl.Options{LockPath: "x.lock"}, resolver, st, httpx.New("ids"), nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing url, got %v", err)
	}
	_, err = crawl.New(crawl.Options{IDsURL: "http://example.invalid/ids.txt"}, resolver, st, httpx.New("ids"), nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing lock path, got %v", err)
	}
	if _, err := crawl.New(crawl.Options{}, nil, st, httpx.New("ids"), nil); err == nil {
		t.Fatal("expected error for nil resolver")
	}
}

func TestSyncNewResolvesOnlyUnknownIDs(t *testing.T) {
	srv := serveIDs(t, "1\n2\nabc\n3\n2\n")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)

	resolver := &stubResolver{
		failures: map[int64]error{
			3: services.Wrap(services.ErrTransient, "resolver", "fetch subject", "primary unavailable", nil),
		},
	}
	existing, _ := resolver.Resolve(context.Background(), 1)
	testsupport.MustSave(t, st, existing)
	resolver.calls = nil

	stats, err := newCrawler(t, cfg, resolver, st).SyncNew(context.Background())
	if err != nil {
		t.Fatalf("SyncNew: %v", err)
	}
	want := crawl.Stats{Listed: 3, Skipped: 1, Resolved: 1, Failed: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if got := resolver.Calls(); !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("resolved ids = %v, want [2 3]", got)
	}
	ids, err := st.IDs(context.Background())
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{1, 2}) {
		t.Fatalf("stored ids = %v, want [1 2]", ids)
	}
}

func TestSyncNewReportsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)

	resolver := &stubResolver{}
	_, err := newCrawler(t, cfg, resolver, st).SyncNew(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(resolver.Calls()) != 0 {
		t.Fatalf("expected no resolutions, got %v", resolver.Calls())
	}
}

func TestRefreshActiveSkipsFinishedEntries(t *testing.T) {
	srv := serveIDs(t, "")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)

	resolver := &stubResolver{statuses: map[int64]string{10: "RELEASING", 11: "FINISHED", 12: "NOT_YET_RELEASED", 13: "CANCELLED"}}
	for _, id := range []int64{10, 11, 12, 13} {
		entity, _ := resolver.Resolve(context.Background(), id)
		testsupport.MustSave(t, st, entity)
	}
	resolver.calls = nil

	stats, err := newCrawler(t, cfg, resolver, st).RefreshActive(context.Background())
	if err != nil {
		t.Fatalf("RefreshActive: %v", err)
	}
	if stats.Listed != 2 || stats.Resolved != 2 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := resolver.Calls()
	slices.Sort(got)
	if !reflect.DeepEqual(got, []int64{10, 12}) {
		t.Fatalf("refreshed ids = %v, want [10 12]", got)
	}
}

func TestRunOnceRefusesWhenLocked(t *testing.T) {
	srv := serveIDs(t, "1\n")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)

	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	resolver := &stubResolver{}
	if _, err := newCrawler(t, cfg, resolver, st).RunOnce(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
	if len(resolver.Calls()) != 0 {
		t.Fatalf("expected no work while locked, got %v", resolver.Calls())
	}
}

func TestRunOnceSyncsAndRefreshes(t *testing.T) {
	srv := serveIDs(t, "1\n2\n")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)

	resolver := &stubResolver{statuses: map[int64]string{2: "RELEASING"}}
	c := newCrawler(t, cfg, resolver, st)

	stats, err := c.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Resolved != 3 {
		t.Fatalf("expected two new plus one refresh, got %+v", stats)
	}
	if got := resolver.Calls(); !reflect.DeepEqual(got, []int64{1, 2, 2}) {
		t.Fatalf("calls = %v, want [1 2 2]", got)
	}

	// The lock is released, so a second pass is allowed.
	if _, err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := serveIDs(t, "42\n")
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoints(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newCrawler(t, cfg, &stubResolver{}, st)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		has, err := st.Has(context.Background(), 42)
		if err != nil {
			t.Fatalf("Has: %v", err)
		}
		if has {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("crawler never stored the listed id")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
