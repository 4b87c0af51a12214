// Package title canonicalizes free-text anime titles.
//
// Normalize yields the comparison form consumed by the matcher: lowercase
// ASCII, diacritics stripped, annotations and release qualifiers removed, and
// season/cour/part markers collapsed to a bare trailing number so that
// "Title 2nd Season" and "Title 2" compare equal. Clean yields the lighter
// form sent to catalog search endpoints.
package title
