// Package spotify adapts the Spotify Web API as the primary catalog: it
// fetches playlists and album metadata and re-derives a track's original
// album year by searching the catalog for earlier releases of the recording.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/sydlexius/trackyear/internal/compilation"
	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/similarity"
	"github.com/sydlexius/trackyear/internal/track"
)

// OriginalMatchScore is the combined similarity a search hit needs to count as
// the same recording.
const OriginalMatchScore = 0.8

const searchLimit = 20

// Adapter wraps a Spotify Web API client.
type Adapter struct {
	client  *spotifyapi.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
}

// New creates a Spotify adapter around an authenticated client.
func New(client *spotifyapi.Client, limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:  client,
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "spotify")),
	}
}

// Name returns the provider name of the signal Lookup produces.
func (a *Adapter) Name() provider.ProviderName { return provider.NameSpotifyOriginal }

// FetchPlaylist loads every track of a playlist given as URL, URI or bare ID.
// Local files and entries without a track ID are skipped.
func (a *Adapter) FetchPlaylist(ctx context.Context, ref string) (*track.Playlist, error) {
	id, err := ParsePlaylistRef(ref)
	if err != nil {
		return nil, err
	}

	if err := a.wait(ctx, provider.NameSpotify); err != nil {
		return nil, err
	}
	a.logger.Debug("fetching playlist", slog.String("playlist_id", string(id)))
	res, err := a.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, classify(err, provider.NameSpotify, string(id))
	}

	pl := &track.Playlist{
		ID:    string(res.ID),
		Name:  res.Name,
		Owner: res.Owner.DisplayName,
		Total: int(res.Tracks.Total),
	}
	if pl.Owner == "" {
		pl.Owner = res.Owner.ID
	}

	page := res.Tracks
	for {
		for i := range page.Tracks {
			item := &page.Tracks[i]
			if item.IsLocal || item.Track.ID == "" {
				continue
			}
			pl.Tracks = append(pl.Tracks, toTrack(&item.Track))
		}

		if err := a.wait(ctx, provider.NameSpotify); err != nil {
			return nil, err
		}
		err = a.client.NextPage(ctx, &page)
		if errors.Is(err, spotifyapi.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("paging playlist %s: %w", id, classify(err, provider.NameSpotify, string(id)))
		}
	}

	a.logger.Debug("fetched playlist",
		slog.String("playlist_id", pl.ID),
		slog.Int("tracks", len(pl.Tracks)),
		slog.Int("total", pl.Total))
	return pl, nil
}

// GetAlbum returns extended metadata for an album.
func (a *Adapter) GetAlbum(ctx context.Context, albumID string) (*track.AlbumInfo, error) {
	if albumID == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, ID: "album"}
	}
	if err := a.wait(ctx, provider.NameSpotify); err != nil {
		return nil, err
	}
	album, err := a.client.GetAlbum(ctx, spotifyapi.ID(albumID))
	if err != nil {
		return nil, classify(err, provider.NameSpotify, albumID)
	}

	info := &track.AlbumInfo{
		ID:          string(album.ID),
		Name:        album.Name,
		TotalTracks: int(album.Tracks.Total),
		ReleaseDate: album.ReleaseDate,
	}
	if len(album.Artists) > 0 {
		info.AlbumArtist = album.Artists[0].Name
	}
	if len(album.Copyrights) > 0 {
		info.Label = LabelFromCopyright(album.Copyrights[0].Text)
	}
	return info, nil
}

// Lookup searches the catalog for other releases of the same recording and
// reports the earliest release year among non-compilation albums.
func (a *Adapter) Lookup(ctx context.Context, t track.Track) (*provider.YearSignal, error) {
	if err := a.wait(ctx, provider.NameSpotifyOriginal); err != nil {
		return nil, err
	}
	query := searchQuery(t.Artist, t.Title)
	a.logger.Debug("searching original release", slog.String("query", query))
	res, err := a.client.Search(ctx, query, spotifyapi.SearchTypeTrack, spotifyapi.Limit(searchLimit))
	if err != nil {
		return nil, classify(err, provider.NameSpotifyOriginal, query)
	}
	if res.Tracks == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotifyOriginal, ID: query}
	}

	var (
		best      *provider.YearSignal
		bestAlbum string
	)
	for i := range res.Tracks.Tracks {
		cand := toTrack(&res.Tracks.Tracks[i])
		if cand.Year == 0 {
			continue
		}
		score := similarity.Score(similarity.Candidate{Title: cand.Title, Artist: cand.Artist}, t.Artist, t.Title)
		if score < OriginalMatchScore {
			continue
		}
		if compilation.Detect(cand, nil).IsCompilation {
			continue
		}
		if best == nil || cand.Year < best.Year {
			best = provider.NewSignal(provider.NameSpotifyOriginal, cand.Year, provider.MethodOriginal)
			best.ExternalID = cand.ID
			best.MatchConfidence = score
			bestAlbum = cand.Album
		}
	}
	if best == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotifyOriginal, ID: query}
	}
	best.Details = map[string]string{"album": bestAlbum}
	return best, nil
}

// wait takes a token from the shared catalog bucket; name tags the error.
func (a *Adapter) wait(ctx context.Context, name provider.ProviderName) error {
	if err := a.limiter.Wait(ctx, provider.NameSpotify); err != nil {
		return &provider.ErrProviderUnavailable{
			Provider: name,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}
	return nil
}

func toTrack(ft *spotifyapi.FullTrack) track.Track {
	artists := make([]string, len(ft.Artists))
	for i, ar := range ft.Artists {
		artists[i] = ar.Name
	}
	return track.Track{
		ID:         string(ft.ID),
		Title:      ft.Name,
		Artist:     strings.Join(artists, ", "),
		AlbumID:    string(ft.Album.ID),
		Album:      ft.Album.Name,
		AlbumType:  track.ParseAlbumType(ft.Album.AlbumType),
		Year:       provider.ParseYear(ft.Album.ReleaseDate),
		ISRC:       ft.ExternalIDs["isrc"],
		Popularity: int(ft.Popularity),
		DurationMs: int(ft.Duration),
	}
}

// searchQuery restricts the search to the title and the primary artist.
func searchQuery(artist, title string) string {
	clean := strings.NewReplacer(`"`, "", ":", " ")
	q := fmt.Sprintf(`track:"%s"`, clean.Replace(title))
	if base := primaryArtist(artist); base != "" {
		q += fmt.Sprintf(` artist:"%s"`, clean.Replace(base))
	}
	return q
}

func primaryArtist(artist string) string {
	if i := strings.Index(artist, ", "); i >= 0 {
		artist = artist[:i]
	}
	return strings.TrimSpace(artist)
}

var copyrightPrefix = regexp.MustCompile(`^(?:\s*(?:©|℗|\([cCpP]\)|[cCpP]\s)\s*|\s*(?:1[89]|20)\d{2}[,.]?\s+)+`)

// LabelFromCopyright strips copyright markers and the year from a copyright
// line, leaving the rights holder.
func LabelFromCopyright(text string) string {
	return strings.TrimSpace(copyrightPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
}

// classify maps client errors onto the provider taxonomy, tagged with the
// signal the failed call was serving.
func classify(err error, name provider.ProviderName, id string) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return &provider.ErrAuthFailed{Provider: name, Cause: err}
	}

	var se spotifyapi.Error
	if errors.As(err, &se) {
		switch {
		case se.Status == http.StatusUnauthorized:
			return &provider.ErrAuthFailed{Provider: name, Cause: err}
		case se.Status == http.StatusNotFound || se.Status == http.StatusBadRequest:
			return &provider.ErrNotFound{Provider: name, ID: id}
		case se.Status == http.StatusTooManyRequests:
			return &provider.ErrRateLimited{Provider: name, Cause: err, RetryAfter: 5 * time.Second}
		}
	}

	return &provider.ErrProviderUnavailable{Provider: name, Cause: err}
}
