// Package resolve orchestrates one resolution: fetch the subject from the
// primary source, identify it in every bound catalog, enrich each match with
// details and episodes, and merge.
//
// Both waves run on an errgroup bounded by the configured concurrency. Task
// functions never return errors, so one catalog failing never cancels its
// siblings; each task writes only its own result slot and the slots are
// folded into maps after the wave joins.
package resolve
