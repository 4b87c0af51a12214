package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"animap/internal/catalog"
	"animap/internal/merge"
)

// Summary is the lightweight row used for listings.
type Summary struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	SourceStatus string    `json:"sourceStatus"`
	Active       bool      `json:"active"`
	Links        int       `json:"links"`
	ResolvedAt   time.Time `json:"resolvedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Save upserts an entity and replaces its match_results rows.
func (s *Store) Save(ctx context.Context, entity *merge.Entity) error {
	if entity == nil {
		return errors.New("save entity: entity is nil")
	}
	if entity.ID <= 0 {
		return fmt.Errorf("save entity: invalid id %d", entity.ID)
	}
	ctx = ensureContext(ctx)

	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode entity %d: %w", entity.ID, err)
	}
	resolvedAt := entity.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = s.now()
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	links := entity.Mappings.Links()

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `INSERT INTO entities (id, id_mal, title, source_status, active, entity_json, resolved_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				id_mal = excluded.id_mal,
				title = excluded.title,
				source_status = excluded.source_status,
				active = excluded.active,
				entity_json = excluded.entity_json,
				resolved_at = excluded.resolved_at,
				updated_at = excluded.updated_at`,
			entity.ID,
			nullInt(entity.IDMal),
			displayTitle(entity.Title),
			entity.SourceStatus,
			boolToInt(merge.IsActive(entity.SourceStatus)),
			string(payload),
			resolvedAt.UTC().Format(time.RFC3339Nano),
			now,
		); err != nil {
			return fmt.Errorf("upsert entity %d: %w", entity.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM match_results WHERE entity_id = ?`, entity.ID); err != nil {
			return fmt.Errorf("clear match results %d: %w", entity.ID, err)
		}
		for _, link := range links {
			r := link.Result
			if _, err := tx.ExecContext(ctx, `INSERT INTO match_results
				(entity_id, catalog, track, catalog_id, match_type, similarity, candidate_index, candidate_title, url)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				entity.ID,
				string(link.Catalog),
				string(link.Track),
				r.BestMatch.ID,
				string(r.MatchType),
				r.Similarity,
				r.Index,
				r.BestMatch.Title,
				r.BestMatch.URL,
			); err != nil {
				return fmt.Errorf("insert match result %d/%s: %w", entity.ID, link.Catalog, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit entity %d: %w", entity.ID, err)
		}
		return nil
	})
}

// Get returns the stored entity, or nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id int64) (*merge.Entity, error) {
	ctx = ensureContext(ctx)
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT entity_json FROM entities WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity %d: %w", id, err)
	}
	var entity merge.Entity
	if err := json.Unmarshal([]byte(payload), &entity); err != nil {
		return nil, fmt.Errorf("decode entity %d: %w", id, err)
	}
	return &entity, nil
}

// Has reports whether an entity has been stored.
func (s *Store) Has(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM entities WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check entity %d: %w", id, err)
	}
	return n > 0, nil
}

// IDs returns every stored entity id in ascending order.
func (s *Store) IDs(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT id FROM entities ORDER BY id`)
}

// ActiveIDs returns ids whose primary status may still change.
func (s *Store) ActiveIDs(ctx context.Context) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT id FROM entities WHERE active = 1 ORDER BY id`)
}

// FindByCatalogID returns the entities that resolved to a catalog id.
func (s *Store) FindByCatalogID(ctx context.Context, name catalog.Name, catalogID string) ([]int64, error) {
	return s.queryIDs(ctx,
		`SELECT DISTINCT entity_id FROM match_results WHERE catalog = ? AND catalog_id = ? ORDER BY entity_id`,
		string(name), strings.TrimSpace(catalogID),
	)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns entity summaries, optionally restricted to active entries.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]Summary, error) {
	query := `SELECT e.id, e.title, COALESCE(e.source_status, ''), e.active, e.resolved_at, e.updated_at,
		(SELECT COUNT(1) FROM match_results m WHERE m.entity_id = e.id)
		FROM entities e`
	if activeOnly {
		query += ` WHERE e.active = 1`
	}
	query += ` ORDER BY e.id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum        Summary
			active     int
			resolvedAt string
			updatedAt  string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.SourceStatus, &active, &resolvedAt, &updatedAt, &sum.Links); err != nil {
			return nil, fmt.Errorf("scan entity summary: %w", err)
		}
		sum.Active = active == 1
		sum.ResolvedAt = parseTime(resolvedAt)
		sum.UpdatedAt = parseTime(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Links returns the flattened match provenance of one entity.
func (s *Store) Links(ctx context.Context, id int64) ([]catalog.Link, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT catalog, track, catalog_id, match_type, similarity, candidate_index,
		COALESCE(candidate_title, ''), COALESCE(url, '')
		FROM match_results WHERE entity_id = ? ORDER BY catalog, track`, id)
	if err != nil {
		return nil, fmt.Errorf("query links %d: %w", id, err)
	}
	defer rows.Close()

	var out []catalog.Link
	for rows.Next() {
		var (
			name, track, catalogID, matchType, title, url string
			similarity                                    float64
			index                                         int
		)
		if err := rows.Scan(&name, &track, &catalogID, &matchType, &similarity, &index, &title, &url); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, catalog.Link{
			Catalog: catalog.Name(name),
			Track:   catalog.Track(track),
			Result: &catalog.MatchResult{
				Index:      index,
				Similarity: similarity,
				MatchType:  catalog.MatchType(matchType),
				BestMatch:  catalog.Candidate{ID: catalogID, Title: title, URL: url},
			},
		})
	}
	return out, rows.Err()
}

// Delete removes an entity and its match results.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entity %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func displayTitle(t catalog.TitleSet) string {
	for _, v := range []string{t.UserPreferred, t.English, t.Romaji, t.Native} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
