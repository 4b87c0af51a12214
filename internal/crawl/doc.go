// Package crawl keeps the entity store in step with a published list of
// primary-source ids.
//
// A Crawler fetches the newline-separated id list, resolves ids the store has
// not seen, and periodically re-resolves entries whose primary status is
// still active. A file lock next to the database keeps a second crawler from
// running against the same store.
package crawl
