package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"animap/internal/config"
	"animap/internal/logging"
	"animap/internal/merge"
	"animap/internal/services"
)

// Resolver builds one merged entity. *resolve.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, subjectID int64) (*merge.Entity, error)
}

// Store persists resolved entities. *store.Store satisfies it.
type Store interface {
	Save(ctx context.Context, entity *merge.Entity) error
	IDs(ctx context.Context) ([]int64, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
}

// Fetcher downloads the id list. *httpx.Client satisfies it.
type Fetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Options configures a Crawler.
type Options struct {
	IDsURL          string
	LockPath        string
	NewIDsInterval  time.Duration
	RefreshInterval time.Duration
}

// OptionsFromConfig reads the [crawl] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IDsURL:          cfg.Crawl.IDsURL,
		LockPath:        cfg.LockPath(),
		NewIDsInterval:  time.Duration(cfg.Crawl.NewIDsIntervalMinutes) * time.Minute,
		RefreshInterval: time.Duration(cfg.Crawl.RefreshIntervalMinutes) * time.Minute,
	}
}

// Stats summarizes one pass.
type Stats struct {
	Listed   int
	Skipped  int
	Resolved int
	Failed   int
}

func (s Stats) add(other Stats) Stats {
	return Stats{
		Listed:   s.Listed + other.Listed,
		Skipped:  s.Skipped + other.Skipped,
		Resolved: s.Resolved + other.Resolved,
		Failed:   s.Failed + other.Failed,
	}
}

// Crawler keeps the store in step with the published id list.
type Crawler struct {
	opts     Options
	resolver Resolver
	store    Store
	fetcher  Fetcher
	logger   *slog.Logger
	lock     *flock.Flock
}

// New constructs a crawler. The lock is not taken until Run or RunOnce.
func New(opts Options, resolver Resolver, st Store, fetcher Fetcher, logger *slog.Logger) (*Crawler, error) {
	if resolver == nil || st == nil || fetcher == nil {
		return nil, errors.New("crawl: resolver, store, and fetcher are required")
	}
	opts.IDsURL = strings.TrimSpace(opts.IDsURL)
	if opts.IDsURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "crawl", "init", "ids url is required", nil)
	}
	if strings.TrimSpace(opts.LockPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "crawl", "init", "lock path is required", nil)
	}
	if opts.NewIDsInterval <= 0 {
		opts.NewIDsInterval = 5 * time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Hour
	}
	return &Crawler{
		opts:     opts,
		resolver: resolver,
		store:    st,
		fetcher:  fetcher,
		logger:   logging.NewComponentLogger(logger, "crawl"),
		lock:     flock.New(opts.LockPath),
	}, nil
}

func (c *Crawler) acquire() error {
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire crawl lock: %w", err)
	}
	if !ok {
		return errors.New("another crawler is already running")
	}
	return nil
}

func (c *Crawler) release() {
	if err := c.lock.Unlock(); err != nil {
		logging.WarnWithContext(c.logger, "failed to release crawl lock", "crawl_lock_release_failed",
			logging.String("lock_path", c.opts.LockPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next crawler start may report a stale lock"),
		)
	}
}

// RunOnce resolves new ids and then refreshes active entries, holding the
// lock for the duration.
func (c *Crawler) RunOnce(ctx context.Context) (Stats, error) {
	if err := c.acquire(); err != nil {
		return Stats{}, err
	}
	defer c.release()

	added, err := c.SyncNew(ctx)
	if err != nil {
		return added, err
	}
	refreshed, err := c.RefreshActive(ctx)
	return added.add(refreshed), err
}

// Run performs an initial sync and then keeps polling until ctx is done.
// A cancelled context ends the loop without error.
func (c *Crawler) Run(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	c.logger.Info("crawler started",
		logging.String("ids_url", c.opts.IDsURL),
		logging.Duration("new_ids_interval", c.opts.NewIDsInterval),
		logging.Duration("refresh_interval", c.opts.RefreshInterval),
	)
	if _, err := c.SyncNew(ctx); err != nil && ctx.Err() == nil {
		c.warnPass("sync", err)
	}

	newTicker := time.NewTicker(c.opts.NewIDsInterval)
	defer newTicker.Stop()
	refreshTicker := time.NewTicker(c.opts.RefreshInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("crawler stopped")
			return nil
		case <-newTicker.C:
			if _, err := c.SyncNew(ctx); err != nil && ctx.Err() == nil {
				c.warnPass("sync", err)
			}
		case <-refreshTicker.C:
			if _, err := c.RefreshActive(ctx); err != nil && ctx.Err() == nil {
				c.warnPass("refresh", err)
			}
		}
	}
}

func (c *Crawler) warnPass(pass string, err error) {
	logging.WarnWithContext(c.logger, "crawl pass failed", "crawl_pass_failed",
		logging.String("pass", pass),
		logging.Error(err),
		logging.String(logging.FieldImpact, "pass retried on the next tick"),
	)
}

// SyncNew fetches the id list and resolves every id the store does not hold.
func (c *Crawler) SyncNew(ctx context.Context) (Stats, error) {
	body, err := c.fetcher.GetText(ctx, c.opts.IDsURL)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch id list: %w", err)
	}
	ids := ParseIDs(body)

	known, err := c.store.IDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list stored ids: %w", err)
	}
	stored := make(map[int64]struct{}, len(known))
	for _, id := range known {
		stored[id] = struct{}{}
	}

	pending := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := stored[id]; !ok {
			pending = append(pending, id)
		}
	}
	stats := Stats{Listed: len(ids), Skipped: len(ids) - len(pending)}
	if len(pending) == 0 {
		c.logger.Info("no new ids to process", logging.Int("listed", len(ids)))
		return stats, nil
	}
	c.logger.Info("processing new ids", logging.Int("pending", len(pending)), logging.Int("listed", len(ids)))

	processed, err := c.resolveAll(ctx, pending, "new")
	return stats.add(processed), err
}

// RefreshActive re-resolves every stored entity that is still airing.
func (c *Crawler) RefreshActive(ctx context.Context) (Stats, error) {
	ids, err := c.store.ActiveIDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list active ids: %w", err)
	}
	c.logger.Info("refreshing active entries", logging.Int("active", len(ids)))
	stats, err := c.resolveAll(ctx, ids, "refresh")
	stats.Listed = len(ids)
	return stats, err
}

// resolveAll handles ids one at a time; gateway rate limits already bound
// throughput. Per-id failures are logged and counted, only cancellation stops
// the pass.
func (c *Crawler) resolveAll(ctx context.Context, ids []int64, pass string) (Stats, error) {
	var stats Stats
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := c.resolveOne(ctx, id); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			hint := "check catalog availability; the id is retried on the next pass"
			if !services.IsRetryable(err) {
				hint = "inspect the primary source entry for this id"
			}
			logging.WarnWithContext(c.logger, "failed to resolve id", "crawl_resolve_failed",
				logging.Int64(logging.FieldSubjectID, id),
				logging.String("pass", pass),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hint),
			)
			continue
		}
		stats.Resolved++
		c.logger.Debug("entity stored", logging.Int64(logging.FieldSubjectID, id), logging.String("pass", pass))
	}
	c.logger.Info("crawl pass complete",
		logging.String("pass", pass),
		logging.Int("resolved", stats.Resolved),
		logging.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (c *Crawler) resolveOne(ctx context.Context, id int64) error {
	ctx = services.WithSubjectID(ctx, id)
	entity, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, entity); err != nil {
		return fmt.Errorf("save entity %d: %w", id, err)
	}
	return nil
}

// ParseIDs reads one id per line. Blank and non-numeric lines are ignored and
// duplicates keep their first position.
func ParseIDs(body string) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
