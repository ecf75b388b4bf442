package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/track"
)

// FlagType names a review finding.
type FlagType string

// Flag taxonomy.
const (
	FlagCompilation         FlagType = "compilation"
	FlagCompilationResolved FlagType = "compilation_resolved"
	FlagYearConflict        FlagType = "year_conflict"
	FlagMultipleArtists     FlagType = "multiple_artists"
	FlagRemixRemaster       FlagType = "remix_remaster"
	FlagLargeYearDiff       FlagType = "large_year_diff"
	FlagNoValidation        FlagType = "no_validation"
	FlagCriticalCompilation FlagType = "critical_compilation"
)

// AllFlagTypes returns the taxonomy in the order flags are applied.
func AllFlagTypes() []FlagType {
	return []FlagType{
		FlagCompilation,
		FlagCompilationResolved,
		FlagYearConflict,
		FlagMultipleArtists,
		FlagRemixRemaster,
		FlagLargeYearDiff,
		FlagNoValidation,
		FlagCriticalCompilation,
	}
}

// Severity grades a flag.
type Severity string

// Flag severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Flag is a structured finding that asks for human review.
type Flag struct {
	Type     FlagType          `json:"type"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
}

// Year differences that raise flags.
const (
	LargeYearDiff    = 5
	CriticalYearDiff = 10
)

var (
	versionMarker  = regexp.MustCompile(`(?i)\b(?:remix(?:ed)?|remaster(?:ed)?|live|acoustic|demo)\b`)
	artistSplitter = regexp.MustCompile(`(?i)\bfeat\.|\bft\.|&|, `)
)

// applyFlags attaches the review flags and escalates the status. The pass is
// deterministic and only ever escalates status.
func applyFlags(at *AnalyzedTrack) {
	rec := &at.Recommendation
	isComp := at.Compilation.IsCompilation
	disagree := !rec.SourcesAgree && len(rec.Sources) > 0
	catalogYear := at.Year
	diff := 0
	if catalogYear > 0 && rec.BestYear > 0 {
		diff = abs(catalogYear - rec.BestYear)
	}

	add := func(ft FlagType, sev Severity, msg string, details map[string]string) {
		at.Flags = append(at.Flags, Flag{Type: ft, Severity: sev, Message: msg, Details: details})
		switch sev {
		case SeverityWarning:
			at.Status = at.Status.Escalate(StatusYellow)
		case SeverityError:
			at.Status = at.Status.Escalate(StatusRed)
		}
	}

	if isComp {
		add(FlagCompilation, SeverityInfo,
			"Track comes from a compilation or reissue",
			map[string]string{
				"score":      strconv.Itoa(at.Compilation.Score),
				"confidence": string(at.Compilation.Confidence),
				"reasons":    strings.Join(at.Compilation.Reasons, "; "),
			})
		if catalogYear > 0 && rec.BestYear < catalogYear && rec.Confidence.AtLeast(track.ConfidenceHigh) {
			add(FlagCompilationResolved, SeverityInfo,
				fmt.Sprintf("Original release year %d found for compilation dated %d", rec.BestYear, catalogYear),
				yearDetails(catalogYear, rec.BestYear))
		}
		// Any disagreement on a compilation still needs a reviewer, resolved or not.
		if disagree {
			add(FlagYearConflict, SeverityWarning,
				"Sources disagree on the year of this compilation track",
				voteDetails(at))
		}
	}

	if artistSplitter.MatchString(at.Artist) {
		add(FlagMultipleArtists, SeverityInfo, "Track credits multiple artists", nil)
	}

	if versionMarker.MatchString(at.Title) && disagree {
		add(FlagRemixRemaster, SeverityWarning,
			"Title marks a remix, remaster or alternate version and sources disagree",
			map[string]string{"marker": strings.ToLower(versionMarker.FindString(at.Title))})
	}

	if disagree && !isComp {
		add(FlagYearConflict, SeverityWarning, "Sources disagree on the release year", voteDetails(at))
	}

	if diff >= LargeYearDiff {
		add(FlagLargeYearDiff, SeverityWarning,
			fmt.Sprintf("Catalog year %d is %d years from the recommended year %d", catalogYear, diff, rec.BestYear),
			yearDetails(catalogYear, rec.BestYear))
	}

	if !hasIndependentSignal(rec.Sources) {
		add(FlagNoValidation, SeverityInfo, "No source besides the catalog year could confirm this track", nil)
	}

	if isComp && diff >= CriticalYearDiff {
		add(FlagCriticalCompilation, SeverityError,
			fmt.Sprintf("Compilation year is %d years after the original release", diff),
			yearDetails(catalogYear, rec.BestYear))
	}
}

// hasIndependentSignal reports whether anything beyond the plain catalog year
// contributed a signal.
func hasIndependentSignal(sources []provider.YearSignal) bool {
	for _, s := range sources {
		if s.Provider != provider.NameSpotify {
			return true
		}
	}
	return false
}

func yearDetails(catalog, recommended int) map[string]string {
	return map[string]string{
		"catalog_year":     strconv.Itoa(catalog),
		"recommended_year": strconv.Itoa(recommended),
	}
}

func voteDetails(at *AnalyzedTrack) map[string]string {
	d := make(map[string]string, len(at.Recommendation.Sources))
	for _, s := range at.Recommendation.Sources {
		d[string(s.Provider)] = strconv.Itoa(s.Year)
	}
	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
