package xref

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"animap/internal/logging"
)

// Fetcher downloads the raw dataset. *httpx.Client satisfies it.
type Fetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Source keeps the dataset on disk and in memory, refreshing both once the
// cache is older than the TTL. A stale cache is served when a refresh fails.
type Source struct {
	url       string
	cachePath string
	ttl       time.Duration
	fetcher   Fetcher
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	dataset  *Dataset
	loadedAt time.Time
}

// Option configures a Source.
type Option func(*Source)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSource builds a Source for url cached at cachePath.
func NewSource(url, cachePath string, ttl time.Duration, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Source {
	s := &Source{
		url:       url,
		cachePath: cachePath,
		ttl:       ttl,
		fetcher:   fetcher,
		logger:    logging.NewComponentLogger(logger, "xref"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dataset returns the current dataset, loading or refreshing it as needed.
func (s *Source) Dataset(ctx context.Context) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset != nil && s.fresh(s.loadedAt) {
		return s.dataset, nil
	}

	cached, modTime, cacheErr := s.readCache()
	if cacheErr == nil && s.fresh(modTime) {
		s.dataset, s.loadedAt = cached, modTime
		return cached, nil
	}

	downloaded, err := s.download(ctx)
	if err == nil {
		s.dataset, s.loadedAt = downloaded, s.now()
		return downloaded, nil
	}

	stale := s.dataset
	if cacheErr == nil {
		stale = cached
	}
	if stale == nil {
		return nil, err
	}
	logging.WarnWithContext(s.logger, "xref refresh failed; serving stale dataset", "xref_refresh_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check network access to "+s.url),
		logging.String(logging.FieldImpact, "cross-reference ids may be out of date"),
	)
	s.dataset, s.loadedAt = stale, s.now()
	return stale, nil
}

func (s *Source) fresh(at time.Time) bool {
	return s.ttl > 0 && s.now().Sub(at) < s.ttl
}

func (s *Source) readCache() (*Dataset, time.Time, error) {
	if s.cachePath == "" {
		return nil, time.Time{}, fs.ErrNotExist
	}
	info, err := os.Stat(s.cachePath)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read xref cache: %w", err)
	}
	dataset, err := Parse(data)
	if err != nil {
		return nil, time.Time{}, err
	}
	return dataset, info.ModTime(), nil
}

func (s *Source) download(ctx context.Context) (*Dataset, error) {
	if s.fetcher == nil {
		return nil, errors.New("xref: no fetcher configured")
	}
	started := s.now()
	body, err := s.fetcher.GetText(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("download xref dataset: %w", err)
	}
	dataset, err := Parse([]byte(body))
	if err != nil {
		return nil, err
	}
	if err := s.writeCache([]byte(body)); err != nil {
		logging.WarnWithContext(s.logger, "xref cache write failed", "xref_cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+s.cachePath),
			logging.String(logging.FieldImpact, "dataset will be downloaded again next run"),
		)
	}
	s.logger.Info("xref dataset refreshed",
		logging.Int("entries", dataset.Len()),
		logging.Duration("elapsed", s.now().Sub(started)),
	)
	return dataset, nil
}

func (s *Source) writeCache(data []byte) error {
	if s.cachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return err
	}
	tmp := s.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cachePath)
}
