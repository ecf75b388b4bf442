package spotify

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/sydlexius/trackyear/internal/provider"
)

var base62ID = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// ErrInvalidPlaylistRef marks input that is not a playlist URL, URI or ID.
var ErrInvalidPlaylistRef = errors.New("invalid playlist reference")

// ParsePlaylistRef extracts the playlist ID from an open.spotify.com URL, a
// spotify:playlist: URI or a bare ID. Anything else is reported as NotFound
// wrapping ErrInvalidPlaylistRef.
func ParsePlaylistRef(ref string) (spotifyapi.ID, error) {
	ref = strings.TrimSpace(ref)
	id := ref

	switch {
	case strings.HasPrefix(ref, "spotify:"):
		parts := strings.Split(ref, ":")
		if len(parts) < 3 || parts[len(parts)-2] != "playlist" {
			return "", badRef(ref)
		}
		id = parts[len(parts)-1]

	case strings.Contains(ref, "/"):
		u, err := url.Parse(ref)
		if err != nil || !strings.HasSuffix(u.Host, "spotify.com") {
			return "", badRef(ref)
		}
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		id = ""
		for i := 0; i < len(segs)-1; i++ {
			if segs[i] == "playlist" {
				id = segs[i+1]
				break
			}
		}
	}

	if !base62ID.MatchString(id) {
		return "", badRef(ref)
	}
	return spotifyapi.ID(id), nil
}

func badRef(ref string) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidPlaylistRef, ref,
		&provider.ErrNotFound{Provider: provider.NameSpotify, ID: "playlist " + ref})
}
