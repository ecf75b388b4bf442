// Package reconcile cross-validates year signals from several providers and
// recommends a single release year.
package reconcile

import (
	"sort"

	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/track"
)

// Vote is the tally for one candidate year.
type Vote struct {
	Count     int                     `json:"count"`
	Weight    int                     `json:"weight"`
	Providers []provider.ProviderName `json:"providers"`
}

// Recommendation is the outcome of reconciling a track's signals.
type Recommendation struct {
	BestYear      int                   `json:"best_year"`
	Confidence    track.Confidence      `json:"confidence"`
	SourcesAgree  bool                  `json:"sources_agree"`
	MajorityAgree bool                  `json:"majority_agree"`
	Overridden    bool                  `json:"overridden,omitempty"`
	Sources       []provider.YearSignal `json:"sources"`
	Votes         map[int]Vote          `json:"votes"`
}

// Reconcile runs weighted voting over the signals. Signals without a year are
// ignored. With no usable signal the catalog year is returned at low
// confidence. The result depends only on its inputs.
func Reconcile(t track.Track, signals []provider.YearSignal) Recommendation {
	sources := make([]provider.YearSignal, 0, len(signals))
	for _, s := range signals {
		if s.Year > 0 {
			sources = append(sources, s)
		}
	}

	if len(sources) == 0 {
		return Recommendation{
			BestYear:   t.Year,
			Confidence: track.ConfidenceLow,
			Sources:    sources,
			Votes:      map[int]Vote{},
		}
	}

	votes := tally(sources)
	best := winner(votes)
	n := len(sources)
	winning := votes[best]

	rec := Recommendation{
		BestYear:      best,
		SourcesAgree:  len(votes) == 1,
		MajorityAgree: winning.Count >= (n+1)/2,
		Sources:       sources,
		Votes:         votes,
	}

	switch {
	case rec.SourcesAgree && n >= 2:
		rec.Confidence = track.ConfidenceVeryHigh
	case rec.MajorityAgree && winning.Count >= 2:
		rec.Confidence = track.ConfidenceHigh
	case n >= 2:
		rec.Confidence = track.ConfidenceMedium
	default:
		rec.Confidence = track.ConfidenceLow
	}

	if year, ok := secondaryConsensus(t, sources); ok {
		rec.BestYear = year
		rec.Confidence = track.ConfidenceVeryHigh
		rec.Overridden = true
	}

	return rec
}

func tally(sources []provider.YearSignal) map[int]Vote {
	votes := make(map[int]Vote)
	for _, s := range sources {
		v := votes[s.Year]
		v.Count++
		v.Weight += s.Weight
		v.Providers = append(v.Providers, s.Provider)
		votes[s.Year] = v
	}
	return votes
}

// winner picks the year with the highest weight, then the highest count, then
// the lowest year.
func winner(votes map[int]Vote) int {
	years := make([]int, 0, len(votes))
	for y := range votes {
		years = append(years, y)
	}
	sort.Ints(years)

	best := years[0]
	for _, y := range years[1:] {
		v, b := votes[y], votes[best]
		if v.Weight > b.Weight || (v.Weight == b.Weight && v.Count > b.Count) {
			best = y
		}
	}
	return best
}

// secondaryConsensus reports the year on which exactly two independent
// secondary providers agree against the catalog year.
func secondaryConsensus(t track.Track, sources []provider.YearSignal) (int, bool) {
	var secondary []provider.YearSignal
	for _, s := range sources {
		if s.Provider.IsSecondary() {
			secondary = append(secondary, s)
		}
	}
	if len(secondary) != 2 {
		return 0, false
	}
	a, b := secondary[0], secondary[1]
	if a.Provider == b.Provider || a.Year != b.Year {
		return 0, false
	}
	if a.Year == catalogYear(t, sources) {
		return 0, false
	}
	return a.Year, true
}

func catalogYear(t track.Track, sources []provider.YearSignal) int {
	for _, s := range sources {
		if s.Provider == provider.NameSpotify {
			return s.Year
		}
	}
	return t.Year
}
