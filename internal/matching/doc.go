// Package matching selects the catalog candidate that corresponds to a
// subject using strict, loose and fuzzy tiers over normalized titles.
package matching
