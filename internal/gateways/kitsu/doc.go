// Package kitsu adapts the Kitsu JSON:API to the catalog search and detail
// interfaces. Kitsu is the first choice for most merged descriptive fields,
// so the detail mapping fills ratings, artwork and genres as well as titles.
package kitsu
