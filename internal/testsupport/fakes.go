package testsupport

import (
	"context"
	"sync"
	"time"

	"animap/internal/catalog"
	"animap/internal/services"
)

// FakeSubjects is an in-memory primary source.
type FakeSubjects struct {
	mu       sync.Mutex
	Subjects map[int64]*catalog.Subject
	Err      error
	calls    int
}

// NewFakeSubjects seeds the source with the given subjects.
func NewFakeSubjects(subjects ...*catalog.Subject) *FakeSubjects {
	f := &FakeSubjects{Subjects: make(map[int64]*catalog.Subject, len(subjects))}
	for _, s := range subjects {
		f.Subjects[s.ID] = s
	}
	return f
}

// FetchSubject implements catalog.SubjectSource. Unknown ids yield ErrNotFound.
func (f *FakeSubjects) FetchSubject(_ context.Context, id int64) (*catalog.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}
	s, ok := f.Subjects[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "anilist", "fetch subject", "unknown id", nil)
	}
	clone := *s
	return &clone, nil
}

// Calls returns how many fetches were made.
func (f *FakeSubjects) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Gauge records the peak number of concurrent calls across fakes.
type Gauge struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (g *Gauge) enter() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.current++
	g.peak = max(g.peak, g.current)
	g.mu.Unlock()
}

func (g *Gauge) exit() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.current--
	g.mu.Unlock()
}

// Peak returns the highest concurrency observed.
func (g *Gauge) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

// FakeCatalog implements catalog.Searcher, DetailFetcher and EpisodeFetcher
// from canned data.
type FakeCatalog struct {
	CatalogName catalog.Name
	Candidates  []catalog.Candidate
	SearchErr   error
	Details     map[string]*catalog.Detail
	DetailErr   error
	Episodes    map[string][]catalog.Episode
	EpisodeErr  error
	Delay       time.Duration
	Gauge       *Gauge

	mu       sync.Mutex
	queries  []string
	detailed []string
	listed   []string
	hints    []catalog.Hints
}

// NewFakeCatalog returns a catalog answering every search with candidates.
func NewFakeCatalog(name catalog.Name, candidates ...catalog.Candidate) *FakeCatalog {
	return &FakeCatalog{
		CatalogName: name,
		Candidates:  candidates,
		Details:     map[string]*catalog.Detail{},
		Episodes:    map[string][]catalog.Episode{},
	}
}

// Name implements catalog.Searcher.
func (f *FakeCatalog) Name() catalog.Name { return f.CatalogName }

// Search implements catalog.Searcher.
func (f *FakeCatalog) Search(ctx context.Context, query string, _ catalog.Hints) ([]catalog.Candidate, error) {
	f.Gauge.enter()
	defer f.Gauge.exit()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return append([]catalog.Candidate(nil), f.Candidates...), nil
}

// FetchDetail implements catalog.DetailFetcher.
func (f *FakeCatalog) FetchDetail(ctx context.Context, id string, _ catalog.Hints) (*catalog.Detail, error) {
	f.Gauge.enter()
	defer f.Gauge.exit()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.detailed = append(f.detailed, id)
	f.mu.Unlock()
	if f.DetailErr != nil {
		return nil, f.DetailErr
	}
	d, ok := f.Details[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, string(f.CatalogName), "fetch detail", id, nil)
	}
	return d, nil
}

// FetchEpisodes implements catalog.EpisodeFetcher.
func (f *FakeCatalog) FetchEpisodes(ctx context.Context, id string, hints catalog.Hints) ([]catalog.Episode, error) {
	f.Gauge.enter()
	defer f.Gauge.exit()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.listed = append(f.listed, id)
	f.hints = append(f.hints, hints)
	f.mu.Unlock()
	if f.EpisodeErr != nil {
		return nil, f.EpisodeErr
	}
	return f.Episodes[id], nil
}

func (f *FakeCatalog) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queries returns the search strings received so far.
func (f *FakeCatalog) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// DetailCalls returns the ids detail was requested for.
func (f *FakeCatalog) DetailCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.detailed...)
}

// EpisodeCalls returns the ids episodes were requested for.
func (f *FakeCatalog) EpisodeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listed...)
}

// EpisodeHints returns the hints passed to each episode fetch.
func (f *FakeCatalog) EpisodeHints() []catalog.Hints {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Hints(nil), f.hints...)
}
