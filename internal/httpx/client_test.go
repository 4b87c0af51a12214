package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"animap/internal/httpx"
	"animap/internal/services"
)

func TestGetJSONSendsUserAgentAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "animap/test" {
			t.Errorf("unexpected user agent %q", got)
		}
		if got := r.Header.Get("X-Api-Version"); got != "2" {
			t.Errorf("unexpected static header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": "Frieren"})
	}))
	defer srv.Close()

	client := httpx.New("kitsu", httpx.WithUserAgent("animap/test"), httpx.WithHeader("X-Api-Version", "2"))
	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if out.ID != 7 || out.Name != "Frieren" {
		t.Fatalf("unexpected payload %+v", out)
	}
}

func TestPostJSONEncodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": body["query"]})
	}))
	defer srv.Close()

	client := httpx.New("anilist")
	var out struct {
		Echo string `json:"echo"`
	}
	if err := client.PostJSON(context.Background(), srv.URL, map[string]string{"query": "{ Media }"}, &out); err != nil {
		t.Fatalf("PostJSON returned error: %v", err)
	}
	if out.Echo != "{ Media }" {
		t.Fatalf("unexpected echo %q", out.Echo)
	}
}

func TestGetJSONWithHeaderOverridesStaticHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Values("Authorization"); len(got) != 1 || got[0] != "Bearer fresh" {
			t.Errorf("unexpected authorization %v", got)
		}
		if got := r.Header.Get("X-Api-Version"); got != "2" {
			t.Errorf("static header lost: %q", got)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := httpx.New("tvdb", httpx.WithHeader("Authorization", "Bearer stale"), httpx.WithHeader("X-Api-Version", "2"))
	var out struct {
		OK bool `json:"ok"`
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer fresh")
	if err := client.GetJSONWithHeader(context.Background(), srv.URL, header, &out); err != nil {
		t.Fatalf("GetJSONWithHeader returned error: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded payload")
	}
}

func TestRetriesTooManyRequestsHonouringRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var slept []time.Duration
	client := httpx.New("jikan", httpx.WithRetry(3, time.Millisecond), httpx.WithSleeper(func(d time.Duration) {
		slept = append(slept, d)
	}))
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if !out.OK || calls.Load() != 3 {
		t.Fatalf("expected success on third call, got ok=%v calls=%d", out.OK, calls.Load())
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("expected two Retry-After sleeps of 2s, got %v", slept)
	}
}

func TestRateLimitedAfterRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := httpx.New("jikan", httpx.WithRetry(1, time.Millisecond), httpx.WithSleeper(func(time.Duration) {}))
	err := client.GetJSON(context.Background(), srv.URL, nil)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestOtherFailuresAreNotRetried(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusInternalServerError, services.ErrTransient},
	}
	for _, tc := range cases {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(tc.status)
		}))
		client := httpx.New("tmdb", httpx.WithSleeper(func(time.Duration) {}))
		err := client.GetJSON(context.Background(), srv.URL, nil)
		srv.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
		var statusErr *httpx.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.status {
			t.Fatalf("status %d: expected StatusError in chain, got %v", tc.status, err)
		}
		if calls.Load() != 1 {
			t.Fatalf("status %d: expected a single call, got %d", tc.status, calls.Load())
		}
	}
}

func TestRateLimitResetHeader(t *testing.T) {
	var calls atomic.Int32
	reset := time.Now().Add(10 * time.Second).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var slept []time.Duration
	client := httpx.New("kitsu", httpx.WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	if err := client.GetJSON(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if len(slept) != 1 || slept[0] <= 5*time.Second || slept[0] > 10*time.Second {
		t.Fatalf("expected a sleep derived from X-RateLimit-Reset, got %v", slept)
	}
}

func TestNewLimiter(t *testing.T) {
	if l := httpx.NewLimiter(0); l.Limit() != httpx.NewLimiter(-1).Limit() {
		t.Fatal("expected non-positive budgets to be unlimited")
	}
	if l := httpx.NewLimiter(0.5); l.Burst() != 1 {
		t.Fatalf("expected burst of 1 for sub-unit budgets, got %d", l.Burst())
	}
	if l := httpx.NewLimiter(20); l.Burst() != 20 {
		t.Fatalf("expected burst of 20, got %d", l.Burst())
	}
}
