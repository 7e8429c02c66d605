package metadata

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already clean", input: "My Track", want: "My Track"},
		{name: "lowercase with extension", input: "my track.mp3", want: "My Track"},
		{name: "uppercase extension", input: "Song Name.M4A", want: "Song Name"},
		{name: "dash track number", input: "01 - First Song", want: "First Song"},
		{name: "underscore track number", input: "12_Second_Song", want: "Second Song"},
		{name: "dotted track number", input: "3. Third", want: "Third"},
		{name: "bracket track number", input: "7) Seventh", want: "Seventh"},
		{name: "leading whitespace before number", input: "  04: Fourth", want: "Fourth"},
		{name: "parentheses", input: "Chapter (1)", want: "Chapter 1"},
		{name: "mixed separators", input: "hello_world-test", want: "Hello World Test"},
		{name: "surrounding spaces", input: "   Spaces   ", want: "Spaces"},
		{name: "shouting", input: "THE BIG BAD WOLF", want: "The Big Bad Wolf"},
		{name: "digits break words", input: "the 1st day", want: "The 1St Day"},
		{name: "four digit year kept", input: "2024 Recap", want: "2024 Recap"},
		{name: "number without separator kept", input: "99Luftballons", want: "99Luftballons"},
		{name: "non ascii replaced", input: "Café Olé", want: "Caf Ol"},
		{name: "other extension untouched", input: "notes.txt", want: "Notes Txt"},
		{name: "only punctuation", input: "--__..", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{"First Song", "My Track", "Chapter 1", "Hello World Test", "The 1St Day", ""}
	for _, in := range inputs {
		once := NormalizeTitle(in)
		if twice := NormalizeTitle(once); twice != once {
			t.Errorf("NormalizeTitle not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
