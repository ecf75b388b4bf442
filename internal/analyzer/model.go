package analyzer

import (
	"errors"
	"fmt"

	"github.com/sydlexius/trackyear/internal/compilation"
	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/reconcile"
	"github.com/sydlexius/trackyear/internal/track"
)

// Status is the traffic-light review state of an analyzed track.
type Status string

// Review states, in escalation order.
const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

func (s Status) rank() int {
	switch s {
	case StatusYellow:
		return 1
	case StatusRed:
		return 2
	default:
		return 0
	}
}

// Escalate returns the more severe of s and to. Status never moves back
// toward green.
func (s Status) Escalate(to Status) Status {
	if to.rank() > s.rank() {
		return to
	}
	return s
}

// Match methods recorded on an analyzed track. All but MatchNone and
// MatchError name the strongest lookup path that produced a secondary signal.
const (
	MatchISRC     = provider.MethodISRC
	MatchOriginal = provider.MethodOriginal
	MatchTrack    = provider.MethodTrack
	MatchAlbum    = provider.MethodAlbum
	MatchSearch   = provider.MethodSearch
	MatchNone     = "none"
	MatchError    = "error"
)

// AnalyzedTrack is a track together with everything the pipeline found out
// about its year. The reviewer fields are only set through Approve.
type AnalyzedTrack struct {
	track.Track
	AlbumInfo      *track.AlbumInfo         `json:"album_info,omitempty"`
	Compilation    compilation.Signal       `json:"compilation"`
	Recommendation reconcile.Recommendation `json:"recommendation"`
	Flags          []Flag                   `json:"flags"`
	Status         Status                   `json:"status"`
	MatchMethod    string                   `json:"match_method"`
	Error          string                   `json:"error,omitempty"`

	Verified     bool   `json:"verified"`
	VerifiedYear int    `json:"verified_year,omitempty"`
	ChosenSource string `json:"chosen_source,omitempty"`
}

// ErrInvalidYear is returned when approving a non-positive year.
var ErrInvalidYear = errors.New("invalid year")

// Approve records a reviewer's decision. It does not change Status.
func (at *AnalyzedTrack) Approve(year int, source string) error {
	if year <= 0 {
		return fmt.Errorf("approving track %s: %w %d", at.ID, ErrInvalidYear, year)
	}
	at.Verified = true
	at.VerifiedYear = year
	at.ChosenSource = source
	return nil
}

// ApproveRecommendation accepts the pipeline's recommended year.
func (at *AnalyzedTrack) ApproveRecommendation() error {
	return at.Approve(at.Recommendation.BestYear, "recommendation")
}

// FinalYear is the verified year when approved, else the recommended year.
func (at *AnalyzedTrack) FinalYear() int {
	if at.Verified {
		return at.VerifiedYear
	}
	return at.Recommendation.BestYear
}

// Failed reports whether the track is an error placeholder.
func (at *AnalyzedTrack) Failed() bool {
	return at.MatchMethod == MatchError
}

// HasFlag reports whether a flag of the given type is attached.
func (at *AnalyzedTrack) HasFlag(ft FlagType) bool {
	for _, f := range at.Flags {
		if f.Type == ft {
			return true
		}
	}
	return false
}

// Summary counts tracks per outcome.
type Summary struct {
	Total    int `json:"total"`
	Green    int `json:"green"`
	Yellow   int `json:"yellow"`
	Red      int `json:"red"`
	Errors   int `json:"errors"`
	Verified int `json:"verified"`
}

// Summarize counts the tracks per status. Error placeholders are counted
// separately and not by status.
func Summarize(tracks []AnalyzedTrack) Summary {
	s := Summary{Total: len(tracks)}
	for i := range tracks {
		at := &tracks[i]
		if at.Verified {
			s.Verified++
		}
		if at.Failed() {
			s.Errors++
			continue
		}
		switch at.Status {
		case StatusRed:
			s.Red++
		case StatusYellow:
			s.Yellow++
		default:
			s.Green++
		}
	}
	return s
}
