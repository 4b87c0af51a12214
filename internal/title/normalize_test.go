package title_test

import (
	"strings"
	"testing"

	"animap/internal/title"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "trailing punctuation", in: "Your Name.", want: "your name"},
		{name: "diacritics", in: "Pokémon: Mewtwo Strikes Back", want: "pokemon mewtwo strikes back"},
		{name: "season suffix", in: "Mob Psycho 100 Season 2", want: "mob psycho 100 2"},
		{name: "ordinal season", in: "Mob Psycho 100 2nd Season", want: "mob psycho 100 2"},
		{name: "cour", in: "Spy x Family Cour 2", want: "spy x family 2"},
		{name: "season and part", in: "Attack on Titan Season 3 Part 2 (Dub)", want: "attack on titan 3 2"},
		{name: "qualifiers", in: "Hellsing Ultimate Uncut Dubbed", want: "hellsing ultimate"},
		{name: "bracketed annotation", in: "Made in Abyss [BD] (TV)", want: "made in abyss"},
		{name: "phonetic collapse", in: "Yuuki Yuuna wa Yuusha de Aru", want: "yuki yuna wa yusha de aru"},
		{name: "repeated vowels collapse fully", in: "Yuuuki", want: "yuki"},
		{name: "ouh", in: "Ouhsama Ranking", want: "ohsama ranking"},
		{name: "native script drops", in: "君の名は。", want: ""},
		{name: "whitespace", in: "  Cowboy   Bebop  ", want: "cowboy bebop"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := title.Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeSeasonFormsAgree(t *testing.T) {
	a := title.Normalize("Kaguya-sama 2")
	b := title.Normalize("Kaguya-sama 2nd Season")
	c := title.Normalize("Kaguya-sama: Season 2")
	if a != b || b != c {
		t.Fatalf("expected season forms to agree, got %q %q %q", a, b, c)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Attack on Titan Season 3 Part 2 (Dub)",
		"Re:Zero kara Hajimeru Isekai Seikatsu 2nd Season",
		"Yuuuuki Yuuna",
		"Fate/stay night [Unlimited Blade Works] (TV)",
		"((nested)) Title",
		"Sea-son of Part-time Subs",
		strings.Repeat("Longword ", 30),
		strings.Repeat("x", 150),
		"Jujutsu Kaisen 0 Movie",
		"Ōkami Kakushi",
	}
	for _, in := range inputs {
		once := title.Normalize(in)
		twice := title.Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeTruncatesOnWordBoundary(t *testing.T) {
	got := title.Normalize(strings.Repeat("abcdefghi ", 20))
	if len(got) > title.MaxLength {
		t.Fatalf("expected at most %d bytes, got %d", title.MaxLength, len(got))
	}
	if strings.HasSuffix(got, " ") || !strings.HasSuffix(got, "abcdefghi") {
		t.Fatalf("expected whole-word truncation, got %q", got)
	}
}

func TestClean(t *testing.T) {
	if got := title.Clean("Re:Zero - Starting Life in Another World!"); got != "Re Zero Starting Life in Another World" {
		t.Fatalf("unexpected clean output %q", got)
	}
	if got := title.Clean("君の名は。"); got != "君の名は" {
		t.Fatalf("expected native script preserved, got %q", got)
	}
	long := title.Clean(strings.Repeat("a", 250))
	if len([]rune(long)) != title.MaxLength {
		t.Fatalf("expected clean to truncate to %d runes, got %d", title.MaxLength, len([]rune(long)))
	}
}
