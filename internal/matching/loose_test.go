package matching

import "testing"

func TestLooseMatch(t *testing.T) {
	opts := DefaultOptions()
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "one extra word", a: "attack on titan 3", b: "attack on titan 3 2", want: true},
		{name: "too many extra words", a: "one piece", b: "one piece film red strong world", want: false},
		{name: "low overlap", a: "sword art online", b: "sword art offline", want: false},
		{name: "numbers disagree", a: "a b c d e f g 2", b: "a b c d e f g 3", want: false},
		{name: "number only on one side", a: "a b c d e f g", b: "a b c d e f g 2", want: false},
		{name: "leading zeros agree", a: "a b c d e 02", b: "a b c d e 2", want: true},
		{name: "dub versus none", a: "a b c d e dub", b: "a b c d e", want: false},
		{name: "dubbed versus dub", a: "a b c d e dubbed", b: "a b c d e dub", want: true},
		{name: "sub versus dub", a: "a b c d e f sub", b: "a b c d e f dub", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := looseMatch(tc.a, tc.b, opts); got != tc.want {
				t.Fatalf("looseMatch(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestLooseMatchTogglesAreHonoured(t *testing.T) {
	opts := DefaultOptions()
	opts.RequireNumberOverlap = false
	opts.RequireQualifierParity = false
	if !looseMatch("a b c d e f g 2", "a b c d e f g 3", opts) {
		t.Fatal("expected number check to be skipped")
	}
	if !looseMatch("a b c d e f dub", "a b c d e f sub", opts) {
		t.Fatal("expected qualifier check to be skipped")
	}
}
