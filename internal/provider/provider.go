package provider

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/trackyear/internal/track"
)

// ProviderName uniquely identifies a year source.
type ProviderName string

// Known provider names. The primary catalog contributes two distinct signals:
// its plain release year and a re-derived original album year.
const (
	NameSpotify         ProviderName = "spotify"
	NameSpotifyOriginal ProviderName = "spotify_original"
	NameMusicBrainz     ProviderName = "musicbrainz"
	NameLastFM          ProviderName = "lastfm"
)

// AllProviderNames returns all known provider names in query order.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameSpotify,
		NameSpotifyOriginal,
		NameMusicBrainz,
		NameLastFM,
	}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameSpotify:
		return "Spotify"
	case NameSpotifyOriginal:
		return "Spotify (original album)"
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameLastFM:
		return "Last.fm"
	default:
		return string(n)
	}
}

// Weight is the fixed vote weight of the provider's signals. The plain catalog
// year is the most prone to reissue contamination and counts least.
func (n ProviderName) Weight() int {
	switch n {
	case NameSpotify:
		return 1
	case NameSpotifyOriginal:
		return 3
	case NameMusicBrainz, NameLastFM:
		return 2
	default:
		return 1
	}
}

// IsSecondary reports whether the provider is independent of the primary catalog.
func (n ProviderName) IsSecondary() bool {
	return n == NameMusicBrainz || n == NameLastFM
}

// Match methods recorded on a YearSignal.
const (
	MethodCatalog  = "catalog"
	MethodOriginal = "original"
	MethodISRC     = "isrc"
	MethodSearch   = "search"
	MethodTrack    = "track"
	MethodAlbum    = "album"
)

// YearSignal is one provider's opinion on a track's release year.
type YearSignal struct {
	Provider        ProviderName      `json:"provider"`
	Year            int               `json:"year,omitempty"`
	Weight          int               `json:"weight"`
	MatchConfidence float64           `json:"match_confidence,omitempty"`
	Method          string            `json:"method,omitempty"`
	ExternalID      string            `json:"external_id,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
}

// NewSignal builds a signal with the provider's fixed weight.
func NewSignal(name ProviderName, year int, method string) *YearSignal {
	return &YearSignal{
		Provider: name,
		Year:     year,
		Weight:   name.Weight(),
		Method:   method,
	}
}

// CatalogSignal returns the weight-1 signal for the catalog's own release year,
// or nil when the catalog did not supply one.
func CatalogSignal(t track.Track) *YearSignal {
	if t.Year <= 0 {
		return nil
	}
	s := NewSignal(NameSpotify, t.Year, MethodCatalog)
	s.ExternalID = t.ID
	s.MatchConfidence = 1
	return s
}

// SignalSource is the interface every year-providing adapter implements.
type SignalSource interface {
	// Name returns the unique provider identifier.
	Name() ProviderName

	// Lookup returns the provider's year signal for the track. A provider with
	// no data returns *ErrNotFound.
	Lookup(ctx context.Context, t track.Track) (*YearSignal, error)
}

var yearToken = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// ParseYear extracts a 4-digit year from a partial or free-form date string.
// ISO-like strings use their numeric prefix; anything else falls back to the
// first plausible year token. It returns 0 when no year is present.
func ParseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) >= 4 {
		if y, err := strconv.Atoi(s[:4]); err == nil && (len(s) == 4 || !isDigit(s[4])) {
			if plausibleYear(y) {
				return y
			}
			return 0
		}
	}
	if m := yearToken.FindString(s); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	return 0
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func plausibleYear(y int) bool {
	return y >= 1800 && y <= time.Now().Year()+1
}

// ErrProviderUnavailable indicates a transient failure (timeout, network, server error).
type ErrProviderUnavailable struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrRateLimited indicates the provider asked the caller to slow down.
type ErrRateLimited struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	msg := fmt.Sprintf("provider %s rate limited the request, back off", e.Provider)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" for %s", e.RetryAfter)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ErrRateLimited) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the request. It is a
// normal outcome, not a fault. Cause is set when a response was unusable.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
	Cause    error
}

func (e *ErrNotFound) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s not found: %v", e.Provider, e.ID, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

func (e *ErrNotFound) Unwrap() error { return e.Cause }

// ErrAuthFailed indicates missing or rejected credentials.
type ErrAuthFailed struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrAuthFailed) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("provider %s: authentication failed", e.Provider)
	}
	return fmt.Sprintf("provider %s: authentication failed: %v", e.Provider, e.Cause)
}

func (e *ErrAuthFailed) Unwrap() error { return e.Cause }
