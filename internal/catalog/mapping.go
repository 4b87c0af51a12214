package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Mapping is the outcome of identity resolution for one catalog. It is one of
// SingleMatch, SubDubMatch or Absent.
type Mapping interface {
	mapping()
}

// SingleMatch links a catalog through one matched record.
type SingleMatch struct {
	Result MatchResult
}

// SubDubMatch links a catalog that lists subtitled and dubbed releases
// separately. Either side may be nil.
type SubDubMatch struct {
	Sub *MatchResult
	Dub *MatchResult
}

// Absent records that a catalog produced no acceptable match.
type Absent struct{}

func (SingleMatch) mapping() {}
func (SubDubMatch) mapping() {}
func (Absent) mapping()      {}

// Mappings is the provenance record of one resolution: every configured
// catalog appears, matched or not.
type Mappings map[Name]Mapping

// Get returns the mapping for a catalog, Absent when unknown.
func (m Mappings) Get(name Name) Mapping {
	if v, ok := m[name]; ok && v != nil {
		return v
	}
	return Absent{}
}

// Linked reports whether the catalog resolved to at least one record.
func (m Mappings) Linked(name Name) bool {
	return len(IDs(m.Get(name))) > 0
}

// Link is a flattened view of one resolved catalog id.
type Link struct {
	Catalog Name         `json:"catalog"`
	Track   Track        `json:"track,omitempty"`
	Result  *MatchResult `json:"result"`
}

// IDs flattens a mapping into its resolved tracks.
func IDs(m Mapping) []Link {
	switch v := m.(type) {
	case SingleMatch:
		r := v.Result
		return []Link{{Track: TrackNone, Result: &r}}
	case SubDubMatch:
		out := make([]Link, 0, 2)
		if v.Sub != nil {
			out = append(out, Link{Track: TrackSub, Result: v.Sub})
		}
		if v.Dub != nil {
			out = append(out, Link{Track: TrackDub, Result: v.Dub})
		}
		return out
	case Absent, nil:
		return nil
	default:
		panic(fmt.Sprintf("catalog: unknown mapping %T", m))
	}
}

// Links flattens every resolved catalog in stable name order.
func (m Mappings) Links() []Link {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, string(name))
	}
	sort.Strings(names)
	var out []Link
	for _, n := range names {
		for _, link := range IDs(m[Name(n)]) {
			link.Catalog = Name(n)
			out = append(out, link)
		}
	}
	return out
}

type subDubJSON struct {
	Sub *MatchResult `json:"sub"`
	Dub *MatchResult `json:"dub"`
}

// MarshalJSON renders SingleMatch as a match object, SubDubMatch as
// {"sub":...,"dub":...} and Absent as null.
func (m Mappings) MarshalJSON() ([]byte, error) {
	raw := make(map[Name]any, len(m))
	for name, v := range m {
		switch mv := v.(type) {
		case SingleMatch:
			raw[name] = mv.Result
		case SubDubMatch:
			raw[name] = subDubJSON{Sub: mv.Sub, Dub: mv.Dub}
		case Absent, nil:
			raw[name] = nil
		default:
			return nil, fmt.Errorf("catalog: unknown mapping %T for %s", v, name)
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON restores the variants written by MarshalJSON.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	var raw map[Name]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Mappings, len(raw))
	for name, value := range raw {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			out[name] = Absent{}
			continue
		}
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return fmt.Errorf("decode mapping %s: %w", name, err)
		}
		_, hasSub := keys["sub"]
		_, hasDub := keys["dub"]
		if hasSub || hasDub {
			var sd subDubJSON
			if err := json.Unmarshal(trimmed, &sd); err != nil {
				return fmt.Errorf("decode mapping %s: %w", name, err)
			}
			out[name] = SubDubMatch{Sub: sd.Sub, Dub: sd.Dub}
			continue
		}
		var result MatchResult
		if err := json.Unmarshal(trimmed, &result); err != nil {
			return fmt.Errorf("decode mapping %s: %w", name, err)
		}
		out[name] = SingleMatch{Result: result}
	}
	*m = out
	return nil
}
