package matching

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"animap/internal/catalog"
	"animap/internal/title"
)

// Options tunes the loose and fuzzy tiers.
type Options struct {
	// LooseOverlap is the minimum shared-word ratio for a loose match.
	LooseOverlap float64
	// LooseSimilarity is the similarity reported for loose matches.
	LooseSimilarity float64
	// MaxExtraWords bounds the word-count difference for a loose match.
	MaxExtraWords int
	// RequireNumberOverlap rejects loose matches whose numeric tokens disagree.
	RequireNumberOverlap bool
	// RequireQualifierParity rejects loose matches whose sub/dub tokens differ.
	RequireQualifierParity bool
	// FuzzyThreshold is the minimum Levenshtein similarity for a partial match.
	FuzzyThreshold float64
}

// DefaultOptions returns the calibrated defaults.
func DefaultOptions() Options {
	return Options{
		LooseOverlap:           0.8,
		LooseSimilarity:        0.8,
		MaxExtraWords:          2,
		RequireNumberOverlap:   true,
		RequireQualifierParity: true,
		FuzzyThreshold:         0.7,
	}
}

// Matcher picks the best candidate for a subject. It holds no mutable state
// and is safe for concurrent use.
type Matcher struct {
	opts      Options
	normalize func(string) string
}

// New builds a matcher. Zero-valued thresholds fall back to the defaults.
func New(opts Options) *Matcher {
	def := DefaultOptions()
	if opts.LooseOverlap <= 0 {
		opts.LooseOverlap = def.LooseOverlap
	}
	if opts.LooseSimilarity <= 0 {
		opts.LooseSimilarity = def.LooseSimilarity
	}
	if opts.MaxExtraWords < 0 {
		opts.MaxExtraWords = def.MaxExtraWords
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = def.FuzzyThreshold
	}
	return &Matcher{opts: opts, normalize: title.Normalize}
}

// Options returns the effective thresholds.
func (m *Matcher) Options() Options { return m.opts }

type entry struct {
	index     int
	candidate catalog.Candidate
	names     []string
}

// Match runs the strict, loose and fuzzy tiers in order and returns the first
// tier's winner, or nil when no candidate is acceptable. Ties go to the
// earliest candidate in input order.
func (m *Matcher) Match(subject []string, candidates []catalog.Candidate) *catalog.MatchResult {
	subjects := m.normalizeAll(subject)
	if len(subjects) == 0 || len(candidates) == 0 {
		return nil
	}

	entries := make([]entry, 0, len(candidates))
	for i, c := range candidates {
		names := m.normalizeAll(c.Names())
		if len(names) == 0 {
			continue
		}
		entries = append(entries, entry{index: i, candidate: c, names: names})
	}
	if len(entries) == 0 {
		return nil
	}

	if r := m.strict(subjects, entries); r != nil {
		return r
	}
	if r := m.loose(subjects, entries); r != nil {
		return r
	}
	return m.fuzzy(subjects, entries)
}

func (m *Matcher) strict(subjects []string, entries []entry) *catalog.MatchResult {
	want := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		want[s] = struct{}{}
	}
	for _, e := range entries {
		for _, name := range e.names {
			if _, ok := want[name]; ok {
				return result(e, 1, catalog.MatchStrict)
			}
		}
	}
	return nil
}

func (m *Matcher) loose(subjects []string, entries []entry) *catalog.MatchResult {
	for _, e := range entries {
		for _, name := range e.names {
			for _, s := range subjects {
				if looseMatch(s, name, m.opts) {
					return result(e, m.opts.LooseSimilarity, catalog.MatchLoose)
				}
			}
		}
	}
	return nil
}

func (m *Matcher) fuzzy(subjects []string, entries []entry) *catalog.MatchResult {
	best := -1.0
	var winner *entry
	for i := range entries {
		score := 0.0
		for _, name := range entries[i].names {
			for _, s := range subjects {
				if v := Similarity(s, name); v > score {
					score = v
				}
			}
		}
		if score > best {
			best = score
			winner = &entries[i]
		}
	}
	if winner == nil || best < m.opts.FuzzyThreshold {
		return nil
	}
	return result(*winner, best, catalog.MatchPartial)
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), measured in runes.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func result(e entry, similarity float64, kind catalog.MatchType) *catalog.MatchResult {
	return &catalog.MatchResult{
		Index:      e.index,
		Similarity: similarity,
		BestMatch:  e.candidate,
		MatchType:  kind,
	}
}

func (m *Matcher) normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		n := m.normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
