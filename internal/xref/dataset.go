package xref

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Well-known fields of the community anime-list dataset.
const (
	FieldAniList = "anilist_id"
	FieldMAL     = "mal_id"
	FieldAniDB   = "anidb_id"
	FieldKitsu   = "kitsu_id"
	FieldTVDB    = "thetvdb_id"
	FieldTMDB    = "themoviedb_id"
	FieldIMDB    = "imdb_id"
	FieldType    = "type"
)

// Entry is one cross-reference row with every value rendered as a string.
type Entry map[string]string

// Get returns the value of field, or "" when the row lacks it.
func (e Entry) Get(field string) string {
	return e[field]
}

// Dataset answers id lookups across catalogs. Indexes are built per field on
// first use.
type Dataset struct {
	entries []Entry

	mu      sync.Mutex
	indexes map[string]map[string]int
}

// Parse decodes the dataset JSON: an array of objects whose values may be
// numbers, strings or null.
func Parse(data []byte) (*Dataset, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode xref dataset: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, row := range raw {
		entry := make(Entry, len(row))
		for key, value := range row {
			if s, ok := scalar(value); ok {
				entry[key] = s
			}
		}
		entries = append(entries, entry)
	}
	return &Dataset{entries: entries, indexes: make(map[string]map[string]int)}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.entries)
}

// Lookup returns the first row whose field equals value.
func (d *Dataset) Lookup(field, value string) (Entry, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	d.mu.Lock()
	index, ok := d.indexes[field]
	if !ok {
		index = make(map[string]int)
		for i, entry := range d.entries {
			key := entry[field]
			if key == "" {
				continue
			}
			if _, seen := index[key]; !seen {
				index[key] = i
			}
		}
		d.indexes[field] = index
	}
	d.mu.Unlock()

	i, ok := index[value]
	if !ok {
		return nil, false
	}
	return d.entries[i], true
}

// LookupInt is Lookup for numeric ids.
func (d *Dataset) LookupInt(field string, value int64) (Entry, bool) {
	if value <= 0 {
		return nil, false
	}
	return d.Lookup(field, strconv.FormatInt(value, 10))
}

func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	case '[', '{':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}
