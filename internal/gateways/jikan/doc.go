// Package jikan adapts the Jikan API (an unofficial MyAnimeList mirror) to the
// catalog interfaces: title search, the /full detail record, and paginated
// episode lists.
package jikan
