package matching

import (
	"strings"
)

// qualifierClass folds the release-track tokens onto their track.
var qualifierClass = map[string]string{
	"sub":    "sub",
	"subbed": "sub",
	"dub":    "dub",
	"dubbed": "dub",
}

type tokenSet map[string]struct{}

func newTokenSet(words []string) tokenSet {
	set := make(tokenSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s tokenSet) intersects(other tokenSet) bool {
	for k := range s {
		if _, ok := other[k]; ok {
			return true
		}
	}
	return false
}

func (s tokenSet) equal(other tokenSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// looseMatch compares two normalized titles word by word.
func looseMatch(a, b string, opts Options) bool {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	diff := len(wordsA) - len(wordsB)
	if diff < 0 {
		diff = -diff
	}
	if diff > opts.MaxExtraWords {
		return false
	}

	setA := newTokenSet(wordsA)
	setB := newTokenSet(wordsB)
	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	if float64(shared)/float64(max(len(setA), len(setB))) < opts.LooseOverlap {
		return false
	}

	if opts.RequireNumberOverlap {
		numsA, numsB := numericTokens(wordsA), numericTokens(wordsB)
		if (len(numsA) > 0 || len(numsB) > 0) && !numsA.intersects(numsB) {
			return false
		}
	}

	if opts.RequireQualifierParity {
		qa, qb := qualifierTokens(wordsA), qualifierTokens(wordsB)
		if (len(qa) > 0 || len(qb) > 0) && !qa.equal(qb) {
			return false
		}
	}
	return true
}

func numericTokens(words []string) tokenSet {
	set := tokenSet{}
	for _, w := range words {
		if isDigits(w) {
			set[strings.TrimLeft(w, "0")] = struct{}{}
		}
	}
	return set
}

func qualifierTokens(words []string) tokenSet {
	set := tokenSet{}
	for _, w := range words {
		if class, ok := qualifierClass[w]; ok {
			set[class] = struct{}{}
		}
	}
	return set
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
