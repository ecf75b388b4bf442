package similarity

import (
	"math"
	"testing"
)

func TestNormalizeSteps(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"lowercase", Lowercase, "HeLLo ÉTÉ", "hello été"},
		{"brackets", func(s string) string { return CollapseSpaces(StripBrackets(s)) }, "Song (Remastered 2011) [Live] B", "Song B"},
		{"featuring dot", StripFeaturing, "Song feat. Someone Else", "Song"},
		{"featuring ft", StripFeaturing, "Song ft. Someone", "Song"},
		{"featuring word", StripFeaturing, "Song featuring Someone", "Song"},
		{"featuring inside word untouched", StripFeaturing, "Defeat", "Defeat"},
		{"diacritics", FoldDiacritics, "Beyoncé Sigur Rós", "Beyonce Sigur Ros"},
		{"punctuation", StripPunctuation, "Don't stop - now!", "Dont stop  now"},
		{"spaces", CollapseSpaces, "  a   b \t c ", "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Hey Jude (Remastered 2015)":  "hey jude",
		"Crazy in Love (feat. Jay-Z)": "crazy in love",
		"Don't Stop Me Now - Live":    "dont stop me now live",
		"Beyoncé":                     "beyonce",
		"":                            "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeArtistBase(t *testing.T) {
	tests := map[string]string{
		"Beyoncé feat. Jay-Z":     "beyonce",
		"Simon & Garfunkel":       "simon",
		"Calvin Harris, Dua Lipa": "calvin harris",
		"Skrillex x Diplo":        "skrillex",
		"Malcolm X":               "malcolm x",
		"Eminem ft. Rihanna":      "eminem",
		"Queen":                   "queen",
	}
	for in, want := range tests {
		if got := NormalizeArtistBase(in); got != want {
			t.Errorf("NormalizeArtistBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "", 0},
		{"kitten", "sitting", 1 - 3.0/7.0},
		{"beyonce", "beyonc", 1 - 1.0/7.0},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBaseArtistIgnoresCollaborators(t *testing.T) {
	got := Similarity(NormalizeArtistBase("Beyoncé feat. Jay-Z"), Normalize("Beyoncé"))
	if got != 1.0 {
		t.Errorf("expected similarity 1.0, got %f", got)
	}
}

func TestScore(t *testing.T) {
	c := Candidate{Title: "Yesterday", Artist: "The Beatles"}
	if got := Score(c, "The Beatles", "Yesterday (Remastered 2009)"); got != 1.0 {
		t.Errorf("expected perfect score, got %f", got)
	}
}

func TestBestMatch(t *testing.T) {
	cands := []Candidate{
		{ID: "cover", Title: "Yesterday", Artist: "Some Cover Band"},
		{ID: "orig", Title: "Yesterday", Artist: "The Beatles"},
		{ID: "dup", Title: "Yesterday", Artist: "The Beatles"},
	}
	m, ok := BestMatch(cands, "The Beatles", "Yesterday", MinMatchScore)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Candidate.ID != "orig" {
		t.Errorf("expected first best candidate, got %s", m.Candidate.ID)
	}
	if m.Score != 1.0 {
		t.Errorf("expected score 1.0, got %f", m.Score)
	}
}

func TestBestMatchBelowThreshold(t *testing.T) {
	cands := []Candidate{{ID: "x", Title: "Completely Different", Artist: "Nobody"}}
	if _, ok := BestMatch(cands, "The Beatles", "Yesterday", MinMatchScore); ok {
		t.Error("expected no match below threshold")
	}
	if _, ok := BestMatch(nil, "The Beatles", "Yesterday", MinMatchScore); ok {
		t.Error("expected no match for empty candidate list")
	}
}
