package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/track"
	"github.com/sydlexius/trackyear/internal/version"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Last.fm API error codes.
const (
	codeAuthFailed       = 4
	codeNotFound         = 6
	codeOperationFailed  = 8
	codeInvalidAPIKey    = 10
	codeServiceOffline   = 11
	codeTemporaryFailure = 16
	codeSuspendedAPIKey  = 26
	codeRateLimited      = 29
)

// yearTag matches tags that are nothing but a year, like "1975".
var yearTag = regexp.MustCompile(`^\s*(1[89]\d{2}|20\d{2})\s*$`)

// Adapter implements provider.SignalSource for Last.fm.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	apiKey  string
	logger  *slog.Logger
	baseURL string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		apiKey:  apiKey,
		logger:  logger.With(slog.String("provider", "lastfm")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameLastFM }

// Lookup resolves the track's year from track.getInfo, falling back to
// album.getInfo when the track record carries no year.
func (a *Adapter) Lookup(ctx context.Context, t track.Track) (*provider.YearSignal, error) {
	info, err := a.GetTrackInfo(ctx, t.Artist, t.Title)
	if err != nil {
		return nil, err
	}

	details := map[string]string{}
	if info.Listeners != "" {
		details["listeners"] = info.Listeners
	}
	if info.Playcount != "" {
		details["playcount"] = info.Playcount
	}

	if year := TrackYear(info); year > 0 {
		sig := provider.NewSignal(provider.NameLastFM, year, provider.MethodTrack)
		sig.ExternalID = info.MBID
		sig.MatchConfidence = 1
		sig.Details = details
		return sig, nil
	}

	albumTitle := t.Album
	if info.Album != nil && info.Album.Title != "" {
		albumTitle = info.Album.Title
	}
	if albumTitle == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: t.Artist + " - " + t.Title}
	}

	album, err := a.GetAlbumInfo(ctx, t.Artist, albumTitle)
	if err != nil {
		return nil, err
	}
	year := AlbumYear(album)
	if year == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: t.Artist + " - " + albumTitle}
	}

	details["album"] = album.Name
	sig := provider.NewSignal(provider.NameLastFM, year, provider.MethodAlbum)
	sig.ExternalID = album.MBID
	sig.MatchConfidence = 1
	sig.Details = details
	return sig, nil
}

// GetTrackInfo fetches track.getInfo for the artist and title.
func (a *Adapter) GetTrackInfo(ctx context.Context, artist, title string) (*TrackInfo, error) {
	params := url.Values{
		"method":      {"track.getInfo"},
		"artist":      {artist},
		"track":       {title},
		"autocorrect": {"1"},
	}
	body, err := a.call(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp TrackInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.logger.Warn("malformed track info", slog.String("error", err.Error()))
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: artist + " - " + title, Cause: err}
	}
	if resp.Track.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: artist + " - " + title}
	}
	return &resp.Track, nil
}

// GetAlbumInfo fetches album.getInfo for the artist and album.
func (a *Adapter) GetAlbumInfo(ctx context.Context, artist, album string) (*AlbumInfo, error) {
	params := url.Values{
		"method":      {"album.getInfo"},
		"artist":      {artist},
		"album":       {album},
		"autocorrect": {"1"},
	}
	body, err := a.call(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp AlbumInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.logger.Warn("malformed album info", slog.String("error", err.Error()))
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: artist + " - " + album, Cause: err}
	}
	if resp.Album.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: artist + " - " + album}
	}
	return &resp.Album, nil
}

// TrackYear extracts a year from the track's album release date or, failing
// that, from the first year-like top tag.
func TrackYear(info *TrackInfo) int {
	if info.Album != nil {
		if y := provider.ParseYear(info.Album.ReleaseDate); y > 0 {
			return y
		}
	}
	return tagYear(info.TopTags.Tag)
}

// AlbumYear extracts a year from the album's release date or year-like tags.
func AlbumYear(info *AlbumInfo) int {
	if y := provider.ParseYear(info.ReleaseDate); y > 0 {
		return y
	}
	return tagYear(info.Tags.Tag)
}

func tagYear(tags []Tag) int {
	for _, tag := range tags {
		if m := yearTag.FindStringSubmatch(tag.Name); m != nil {
			y, _ := strconv.Atoi(m[1])
			return y
		}
	}
	return 0
}

// call adds the credentials and format to params and performs the request.
func (a *Adapter) call(ctx context.Context, params url.Values) ([]byte, error) {
	if a.apiKey == "" {
		return nil, &provider.ErrAuthFailed{
			Provider: provider.NameLastFM,
			Cause:    errors.New("no API key configured"),
		}
	}
	params.Set("api_key", a.apiKey)
	params.Set("format", "json")
	return a.doRequest(ctx, a.baseURL+"/?"+params.Encode())
}

func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameLastFM); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "trackyear/"+version.Version)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("method", methodOf(reqURL)))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + API params
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("reading response: %w", err),
		}
	}

	// Last.fm reports most failures as a JSON error body, regardless of the
	// HTTP status.
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
		return nil, mapAPIError(apiErr, resp.Header.Get("Retry-After"))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &provider.ErrRateLimited{
			Provider:   provider.NameLastFM,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: provider.RetryAfter(resp.Header.Get("Retry-After"), time.Second),
		}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, &provider.ErrAuthFailed{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: methodOf(reqURL)}
	case resp.StatusCode != http.StatusOK:
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	return body, nil
}

// mapAPIError translates a Last.fm error code into the provider taxonomy.
func mapAPIError(e apiError, retryAfter string) error {
	cause := fmt.Errorf("last.fm error %d: %s", e.Code, e.Message)
	switch e.Code {
	case codeNotFound:
		return &provider.ErrNotFound{Provider: provider.NameLastFM, ID: e.Message}
	case codeRateLimited:
		return &provider.ErrRateLimited{
			Provider:   provider.NameLastFM,
			Cause:      cause,
			RetryAfter: provider.RetryAfter(retryAfter, time.Second),
		}
	case codeAuthFailed, codeInvalidAPIKey, codeSuspendedAPIKey:
		return &provider.ErrAuthFailed{Provider: provider.NameLastFM, Cause: cause}
	case codeOperationFailed, codeServiceOffline, codeTemporaryFailure:
		return &provider.ErrProviderUnavailable{Provider: provider.NameLastFM, Cause: cause}
	default:
		// Invalid service, method or format: a request this client built wrong.
		return &provider.ErrProviderUnavailable{Provider: provider.NameLastFM, Cause: cause}
	}
}

// methodOf returns the API method of a request URL without leaking the key
// into logs.
func methodOf(reqURL string) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("method")
}
