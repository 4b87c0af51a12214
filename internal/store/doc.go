// Package store persists resolved entities in SQLite.
//
// Each entity is stored whole as JSON alongside a flattened match_results
// table, so provenance ("which kitsu id did subject 16498 map to, and how
// confidently") can be queried without decoding entities. The active flag
// mirrors merge.IsActive on the primary source's raw status and drives the
// crawler's refresh loop.
//
// Schema changes bump schemaVersion in schema.go; existing databases are
// rejected with ErrSchemaMismatch and must be deleted and re-crawled.
package store
