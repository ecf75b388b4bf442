// Package compilation estimates whether a track's album is a retrospective or
// reissue, whose catalog year reflects repackaging rather than recording.
package compilation

import (
	"fmt"
	"strings"

	"github.com/sydlexius/trackyear/internal/similarity"
	"github.com/sydlexius/trackyear/internal/track"
)

// Signal is the result of album analysis.
type Signal struct {
	IsCompilation bool             `json:"is_compilation"`
	Score         int              `json:"score"`
	Confidence    track.Confidence `json:"confidence"`
	Reasons       []string         `json:"reasons"`
}

// Detect scores the track's album. album may be nil when extended metadata
// could not be fetched. The result depends only on its inputs.
func Detect(t track.Track, album *track.AlbumInfo) Signal {
	var (
		score   int
		reasons []string
	)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if t.AlbumType == track.AlbumTypeCompilation {
		add(explicitCompilationPoints, "Album is marked as a compilation by the catalog")
	}

	albumName := t.Album
	if albumName == "" && album != nil {
		albumName = album.Name
	}
	if r, ok := firstMatch(AlbumKeywords, albumName); ok {
		add(r.Points, fmt.Sprintf("Album name matches %q", r.Label))
	}
	if r, ok := firstMatch(ReissueKeywords, albumName); ok {
		add(r.Points, fmt.Sprintf("Album name contains re-release marker %q", r.Label))
	}

	if album != nil {
		for _, tier := range trackCountTiers {
			if album.TotalTracks > tier.Above {
				add(tier.Points, fmt.Sprintf("Album has %d tracks", album.TotalTracks))
				break
			}
		}

		switch {
		case isVariousArtists(album.AlbumArtist):
			add(variousArtistsPoints, "Album artist is Various Artists")
		case album.AlbumArtist != "" &&
			similarity.NormalizeArtistBase(album.AlbumArtist) != similarity.NormalizeArtistBase(t.Artist):
			add(differentAlbumArtist, fmt.Sprintf("Album artist %q differs from track artist", album.AlbumArtist))
		}

		if r, ok := firstMatch(ReissueLabels, album.Label); ok {
			add(r.Points, fmt.Sprintf("Label %q is a known reissue label (%s)", album.Label, r.Label))
		}
	}

	return Signal{
		IsCompilation: score >= thresholdHigh,
		Score:         score,
		Confidence:    Tier(score),
		Reasons:       reasons,
	}
}

// Tier maps a score to its confidence tier.
func Tier(score int) track.Confidence {
	switch {
	case score >= thresholdVeryHigh:
		return track.ConfidenceVeryHigh
	case score >= thresholdHigh:
		return track.ConfidenceHigh
	case score >= thresholdMedium:
		return track.ConfidenceMedium
	case score >= thresholdLow:
		return track.ConfidenceLow
	default:
		return track.ConfidenceNone
	}
}

func isVariousArtists(name string) bool {
	switch strings.TrimSpace(similarity.Normalize(name)) {
	case "various artists", "various", "va", "verschiedene interpreten":
		return true
	}
	return false
}
