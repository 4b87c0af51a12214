package resolve

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"animap/internal/catalog"
	"animap/internal/logging"
	"animap/internal/matching"
	"animap/internal/merge"
	"animap/internal/services"
)

const (
	defaultConcurrency = 8
	anilistSiteURL     = "https://anilist.co/anime/"
)

// Resolver maps one primary-source subject onto every bound catalog and merges
// the results. It is safe for concurrent use; each Resolve call owns its
// state.
type Resolver struct {
	subjects    catalog.SubjectSource
	bindings    []Binding
	matcher     *matching.Matcher
	logger      *slog.Logger
	clock       func() time.Time
	concurrency int
	timeout     time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMatcher overrides the default matcher.
func WithMatcher(m *matching.Matcher) Option {
	return func(r *Resolver) {
		if m != nil {
			r.matcher = m
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClock overrides the time source used for ResolvedAt.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithConcurrency bounds how many gateway calls run at once within a wave.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRequestTimeout bounds every individual gateway call.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// New builds a Resolver over the primary source and catalog bindings.
func New(subjects catalog.SubjectSource, bindings []Binding, opts ...Option) *Resolver {
	r := &Resolver{
		subjects:    subjects,
		bindings:    append([]Binding(nil), bindings...),
		matcher:     matching.New(matching.DefaultOptions()),
		clock:       time.Now,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "resolver")
	return r
}

// Resolve produces the merged entity for subjectID. Only a primary-source
// failure is returned as an error; every other catalog failure degrades to
// an absent mapping.
func (r *Resolver) Resolve(ctx context.Context, subjectID int64) (*merge.Entity, error) {
	ctx = services.WithSubjectID(ctx, subjectID)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, r.logger)
	started := r.clock()

	subject, err := r.fetchSubject(ctx, subjectID)
	if err != nil {
		logging.ErrorWithContext(logger, "primary source fetch failed", "primary_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the id exists on AniList and the API is reachable"),
		)
		return nil, err
	}

	mappings := r.identify(ctx, subject)
	details, episodes := r.enrich(ctx, subject, mappings)

	entity := merge.Merge(*subject, details, mappings)
	entity.Episodes = merge.MergeEpisodes(episodes)
	entity.ResolvedAt = r.clock()

	logger.Info("resolution complete",
		logging.Int("linked_catalogs", len(mappings.Links())),
		logging.Int("details", len(details)),
		logging.Int("stream_episodes", entity.Episodes.Count()),
		logging.Duration("elapsed", entity.ResolvedAt.Sub(started)),
	)
	return &entity, nil
}

func (r *Resolver) fetchSubject(ctx context.Context, subjectID int64) (*catalog.Subject, error) {
	if r.subjects == nil {
		return nil, services.Wrap(services.ErrPrimarySource, "resolver", "fetch subject", "no primary source configured", nil)
	}
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	subject, err := r.subjects.FetchSubject(callCtx, subjectID)
	if err != nil {
		return nil, services.Wrap(services.ErrPrimarySource, "resolver", "fetch subject", "id "+strconv.FormatInt(subjectID, 10), err)
	}
	if subject == nil {
		return nil, services.Wrap(services.ErrPrimarySource, "resolver", "fetch subject", "id "+strconv.FormatInt(subjectID, 10), services.ErrNotFound)
	}
	return subject, nil
}

// identify runs the first wave: one search-and-match task per binding, each
// writing only its own slot.
func (r *Resolver) identify(ctx context.Context, subject *catalog.Subject) catalog.Mappings {
	slots := make([]catalog.Mapping, len(r.bindings))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, b := range r.bindings {
		g.Go(func() error {
			slots[i] = r.identifyOne(ctx, subject, b)
			return nil
		})
	}
	_ = g.Wait()

	mappings := catalog.Mappings{catalog.AniList: selfMapping(subject)}
	for i, b := range r.bindings {
		mappings[b.Catalog] = slots[i]
	}
	return mappings
}

func (r *Resolver) identifyOne(ctx context.Context, subject *catalog.Subject, b Binding) catalog.Mapping {
	ctx = services.WithCatalog(ctx, string(b.Catalog))
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldWave, "identify"))

	var candidates []catalog.Candidate
	if b.Searcher != nil {
		query := b.query(subject)
		callCtx, cancel := r.callContext(ctx)
		found, err := b.Searcher.Search(callCtx, query, catalog.HintsFor(subject))
		cancel()
		if err != nil {
			logging.WarnWithContext(logger, "catalog search failed", "catalog_search_failed",
				logging.Error(err),
				logging.String("query", query),
				logging.String(logging.FieldErrorHint, "catalog may be down or rate limiting; the next refresh retries it"),
				logging.String(logging.FieldImpact, "catalog omitted from mappings"),
			)
			return catalog.Absent{}
		}
		candidates = found
	}

	names := subject.Titles.Variants()
	if b.Split != nil {
		var sub, dub []catalog.Candidate
		for _, c := range candidates {
			if b.Split(c) == catalog.TrackDub {
				dub = append(dub, c)
			} else {
				sub = append(sub, c)
			}
		}
		m := catalog.SubDubMatch{Sub: r.matcher.Match(names, sub), Dub: r.matcher.Match(names, dub)}
		logger.Debug("sub/dub match evaluated",
			logging.Int("candidates", len(candidates)),
			logging.Bool("sub", m.Sub != nil),
			logging.Bool("dub", m.Dub != nil),
		)
		if m.Sub == nil && m.Dub == nil {
			return catalog.Absent{}
		}
		return m
	}

	if match := r.matcher.Match(names, candidates); match != nil {
		logger.Debug("catalog match accepted",
			logging.String("match_type", string(match.MatchType)),
			logging.Float64("similarity", match.Similarity),
			logging.String("catalog_id", match.BestMatch.ID),
		)
		return catalog.SingleMatch{Result: *match}
	}

	if b.Fallback != nil {
		callCtx, cancel := r.callContext(ctx)
		match, err := b.Fallback.Match(callCtx, subject)
		cancel()
		if err != nil {
			logging.WarnWithContext(logger, "catalog fallback failed", "catalog_fallback_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the cross-reference dataset download"),
				logging.String(logging.FieldImpact, "catalog omitted from mappings"),
			)
			return catalog.Absent{}
		}
		if match != nil {
			logger.Debug("catalog matched by fallback", logging.String("catalog_id", match.BestMatch.ID))
			return catalog.SingleMatch{Result: *match}
		}
	}

	logger.Debug("no acceptable candidate", logging.Int("candidates", len(candidates)))
	return catalog.Absent{}
}

type enrichTask struct {
	source  catalog.Source
	id      string
	binding Binding
	detail  bool
}

type enrichResult struct {
	detail   *catalog.Detail
	episodes []catalog.Episode
	ok       bool
}

// enrich runs the second wave: one task per linked (catalog, track,
// capability).
func (r *Resolver) enrich(ctx context.Context, subject *catalog.Subject, mappings catalog.Mappings) (catalog.Details, catalog.EpisodeLists) {
	var tasks []enrichTask
	for _, b := range r.bindings {
		for _, link := range catalog.IDs(mappings.Get(b.Catalog)) {
			src := catalog.Source{Catalog: b.Catalog, Track: link.Track}
			id := link.Result.BestMatch.ID
			if b.Details != nil {
				tasks = append(tasks, enrichTask{source: src, id: id, binding: b, detail: true})
			}
			if b.Episodes != nil {
				tasks = append(tasks, enrichTask{source: src, id: id, binding: b})
			}
		}
	}

	hints := catalog.HintsFor(subject)
	slots := make([]enrichResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			slots[i] = r.enrichOne(ctx, task, hints)
			return nil
		})
	}
	_ = g.Wait()

	details := make(catalog.Details)
	episodes := make(catalog.EpisodeLists)
	for i, task := range tasks {
		res := slots[i]
		if !res.ok {
			continue
		}
		if task.detail {
			details[task.source] = res.detail
		} else {
			episodes[task.source] = res.episodes
		}
	}
	return details, episodes
}

func (r *Resolver) enrichOne(ctx context.Context, task enrichTask, hints catalog.Hints) enrichResult {
	ctx = services.WithCatalog(ctx, string(task.source.Catalog))
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldWave, "enrich"),
		logging.String(logging.FieldTrack, string(task.source.Track)),
		logging.String("catalog_id", task.id),
	)
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	if task.detail {
		detail, err := task.binding.Details.FetchDetail(callCtx, task.id, hints)
		if err != nil || detail == nil {
			warnEnrich(logger, "detail", err)
			return enrichResult{}
		}
		return enrichResult{detail: detail, ok: true}
	}
	list, err := task.binding.Episodes.FetchEpisodes(callCtx, task.id, hints)
	if err != nil {
		warnEnrich(logger, "episodes", err)
		return enrichResult{}
	}
	logger.Debug("episodes fetched", logging.Int("count", len(list)))
	return enrichResult{episodes: list, ok: true}
}

func warnEnrich(logger *slog.Logger, what string, err error) {
	if err == nil {
		err = services.ErrNotFound
	}
	logging.WarnWithContext(logger, "catalog "+what+" fetch failed", "catalog_"+what+"_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "catalog may be down or the mapped id stale"),
		logging.String(logging.FieldImpact, "merged entity lacks this catalog's "+what),
	)
}

func (r *Resolver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// selfMapping records the primary source as a strict match of itself.
func selfMapping(subject *catalog.Subject) catalog.Mapping {
	id := strconv.FormatInt(subject.ID, 10)
	return catalog.SingleMatch{Result: catalog.MatchResult{
		Index:      0,
		Similarity: 1,
		MatchType:  catalog.MatchStrict,
		BestMatch: catalog.Candidate{
			ID:        id,
			Title:     firstNonEmpty(subject.Titles.English, subject.Titles.UserPreferred),
			AltTitles: subject.Titles.Variants(),
			Image:     subject.CoverImage,
			URL:       anilistSiteURL + id,
			Year:      catalog.HintsFor(subject).Year,
			Format:    subject.Format,
		},
	}}
}
