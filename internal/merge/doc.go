// Package merge folds the primary subject and every catalog contribution into
// one Entity.
//
// Single-valued fields follow the fixed per-field priority tables in this
// package, multi-valued fields are unioned with case-insensitive
// de-duplication, and episode lists are aligned on the anchor catalogs by
// episode number. Everything here is pure: no clocks, no I/O, no logging.
package merge
