// Package similarity normalises track and artist strings and scores how
// closely a search result matches a query.
//
// Normalisation is a fixed sequence of named steps so each step can be tested
// on its own:
//
//	lowercase -> strip brackets -> strip featuring -> fold diacritics -> strip punctuation -> collapse spaces
package similarity

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketed     = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	featuring     = regexp.MustCompile(`(?i)\s*\b(?:feat\.?|ft\.?|featuring)(?:\s+|$).*$`)
	artistSplit   = regexp.MustCompile(`(?i)\s*\b(?:feat\.?|ft\.?|featuring)(?:\s+|$)|\s+x\s+|\s*&\s*|,`)
	multipleSpace = regexp.MustCompile(`\s+`)

	lower = cases.Lower(language.Und)
)

// Lowercase folds s to lower case using Unicode rules.
func Lowercase(s string) string {
	return lower.String(s)
}

// StripBrackets removes parenthesised and square-bracketed segments such as
// "(Remastered 2011)" or "[Live]".
func StripBrackets(s string) string {
	return bracketed.ReplaceAllString(s, " ")
}

// StripFeaturing removes a trailing "feat. X", "ft. X" or "featuring X" clause.
func StripFeaturing(s string) string {
	return featuring.ReplaceAllString(s, "")
}

// FoldDiacritics maps accented letters to their base letters ("é" -> "e").
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// StripPunctuation drops every rune that is not a letter, digit or space.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// CollapseSpaces trims s and reduces internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(multipleSpace.ReplaceAllString(s, " "))
}

// Normalize runs the full normalisation pipeline.
func Normalize(s string) string {
	s = Lowercase(s)
	s = StripBrackets(s)
	s = StripFeaturing(s)
	s = FoldDiacritics(s)
	s = StripPunctuation(s)
	return CollapseSpaces(s)
}

// NormalizeArtistBase reduces a possibly multi-artist credit to its primary
// artist, so "Artist A feat. Artist B" compares equal to "Artist A".
func NormalizeArtistBase(artist string) string {
	first := artistSplit.Split(artist, 2)[0]
	return Normalize(first)
}

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = true
	return strutil.Similarity(a, b, lev)
}

// Title and artist weights for Score.
const (
	TitleWeight  = 0.6
	ArtistWeight = 0.4
)

// Score combines title and base-artist similarity of a candidate against the
// query. Both sides are normalised before comparison.
func Score(c Candidate, artist, title string) float64 {
	titleSim := Similarity(Normalize(c.Title), Normalize(title))
	artistSim := Similarity(NormalizeArtistBase(c.Artist), NormalizeArtistBase(artist))
	return TitleWeight*titleSim + ArtistWeight*artistSim
}
