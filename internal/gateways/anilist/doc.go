// Package anilist loads the primary subject record from the AniList GraphQL
// API. Every resolution starts here; the returned catalog.Subject carries the
// titles the other catalogs are searched with.
package anilist
