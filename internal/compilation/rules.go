package compilation

import "regexp"

// Rule is one row of a scoring table.
type Rule struct {
	Pattern *regexp.Regexp
	Points  int
	Label   string
}

func rule(pattern string, points int, label string) Rule {
	return Rule{Pattern: regexp.MustCompile(`(?i)` + pattern), Points: points, Label: label}
}

// AlbumKeywords scores retrospective album titles. Only the first matching
// rule counts, so stronger phrases are listed before the weaker words they
// contain ("greatest hits" before "hits").
var AlbumKeywords = []Rule{
	rule(`\bgreatest hits\b`, 40, "greatest hits"),
	rule(`\bbest of\b`, 35, "best of"),
	rule(`\banthology\b`, 35, "anthology"),
	rule(`\bthe (?:very )?best\b`, 35, "the best"),
	rule(`\bessentials?\b`, 30, "essential"),
	rule(`\bcollection\b`, 30, "collection"),
	rule(`\bdefinitive\b`, 30, "definitive"),
	rule(`\bretrospective\b`, 30, "retrospective"),
	rule(`\bultimate\b`, 30, "ultimate"),
	rule(`\b(?:19|20)\d{2}\s*[-–]\s*(?:19|20)\d{2}\b`, 25, "year range"),
	rule(`\bnumber ones\b|#1s\b`, 25, "number ones"),
	rule(`\bhits\b`, 25, "hits"),
	rule(`\bsingles\b`, 20, "singles"),
	rule(`\bgold\b`, 20, "gold"),
	rule(`\bplatinum\b`, 20, "platinum"),
	rule(`\bclassics?\b`, 20, "classics"),
	rule(`\b(?:19|20)?\d0'?s\b`, 15, "decade"),
	rule(`\blove songs\b`, 15, "love songs"),
}

// ReissueKeywords scores re-release markers, independently of AlbumKeywords.
var ReissueKeywords = []Rule{
	rule(`\banniversary\b`, 20, "anniversary"),
	rule(`\bremaster(?:ed)?\b`, 15, "remaster"),
	rule(`\bdeluxe\b`, 15, "deluxe"),
	rule(`\bexpanded\b`, 15, "expanded"),
	rule(`\bedition\b`, 10, "edition"),
}

// ReissueLabels matches catalogue and compilation imprints.
var ReissueLabels = []Rule{
	rule(`\brhino\b`, 25, "Rhino"),
	rule(`\blegacy\b`, 25, "Legacy"),
	rule(`\bsony music (?:cmg|catalog)\b`, 25, "Sony Music catalogue"),
	rule(`\buniversal music (?:special markets|catalogue|catalog)\b`, 25, "Universal catalogue"),
	rule(`\bum[ce]\b`, 25, "UMC/UME"),
	rule(`\bwarner strategic marketing\b`, 25, "Warner Strategic Marketing"),
	rule(`\bk-tel\b`, 25, "K-tel"),
	rule(`\bmusic club\b`, 25, "Music Club"),
	rule(`\bcamden\b`, 25, "Camden"),
	rule(`\bspectrum music\b`, 25, "Spectrum"),
	rule(`\bcrimson\b`, 25, "Crimson"),
	rule(`\bdemon music\b`, 25, "Demon Music"),
	rule(`\bcherry red\b`, 25, "Cherry Red"),
	rule(`\bsanctuary records\b`, 25, "Sanctuary"),
	rule(`\bnow music\b|\bnow that's what i call\b`, 25, "NOW Music"),
}

// firstMatch returns the first rule whose pattern matches s.
func firstMatch(rules []Rule, s string) (Rule, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(s) {
			return r, true
		}
	}
	return Rule{}, false
}

// Track count tiers. Only the highest applicable tier scores.
var trackCountTiers = []struct {
	Above  int
	Points int
}{
	{30, 25},
	{20, 15},
	{15, 8},
}

// Fixed points for album-level signals.
const (
	explicitCompilationPoints = 50
	variousArtistsPoints      = 40
	differentAlbumArtist      = 15
)

// Score thresholds for confidence tiers.
const (
	thresholdVeryHigh = 70
	thresholdHigh     = 50
	thresholdMedium   = 30
	thresholdLow      = 15
)
