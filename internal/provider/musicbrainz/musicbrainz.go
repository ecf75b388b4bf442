package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/similarity"
	"github.com/sydlexius/trackyear/internal/track"
	"github.com/sydlexius/trackyear/internal/version"
)

const (
	defaultBaseURL = "https://musicbrainz.org/ws/2"
	searchLimit    = 10
)

// Adapter implements provider.SignalSource for MusicBrainz.
type Adapter struct {
	client    *http.Client
	limiter   *provider.RateLimiterMap
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:   limiter,
		logger:    logger.With(slog.String("provider", "musicbrainz")),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultUserAgent(),
	}
}

// SetUserAgent overrides the User-Agent sent with every request. MusicBrainz
// asks clients to identify themselves with a contact address.
func (a *Adapter) SetUserAgent(ua string) {
	if ua != "" {
		a.userAgent = ua
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameMusicBrainz }

// Lookup resolves the track's year. The ISRC path is authoritative for a
// specific recording and is tried first; text search runs only when the track
// has no ISRC or the ISRC is unknown to MusicBrainz.
func (a *Adapter) Lookup(ctx context.Context, t track.Track) (*provider.YearSignal, error) {
	if t.HasISRC() {
		sig, err := a.LookupISRC(ctx, t.ISRC)
		if err == nil {
			return sig, nil
		}
		if !provider.IsNotFound(err) {
			return nil, err
		}
		a.logger.Debug("isrc not found, falling back to search", slog.String("isrc", t.ISRC))
	}

	cands, err := a.SearchRecordings(ctx, t.Artist, t.Title)
	if err != nil {
		return nil, err
	}
	dated := cands[:0:0]
	for _, c := range cands {
		if c.Year > 0 {
			dated = append(dated, c)
		}
	}
	best, ok := similarity.BestMatch(dated, t.Artist, t.Title, similarity.MinMatchScore)
	if !ok {
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: t.Artist + " - " + t.Title}
	}

	sig := provider.NewSignal(provider.NameMusicBrainz, best.Candidate.Year, provider.MethodSearch)
	sig.ExternalID = best.Candidate.ID
	sig.MatchConfidence = best.Score
	sig.Details = map[string]string{
		"title":  best.Candidate.Title,
		"artist": best.Candidate.Artist,
	}
	return sig, nil
}

// LookupISRC returns the earliest release year across every recording
// registered under the ISRC.
func (a *Adapter) LookupISRC(ctx context.Context, isrc string) (*provider.YearSignal, error) {
	params := url.Values{
		"inc": {"releases"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/isrc/" + url.PathEscape(strings.ToUpper(isrc)) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp ISRCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.logger.Warn("malformed isrc response", slog.String("isrc", isrc), slog.String("error", err.Error()))
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: isrc, Cause: err}
	}

	var (
		year        int
		recordingID string
	)
	for i := range resp.Recordings {
		if y := earliestYear(&resp.Recordings[i]); y > 0 && (year == 0 || y < year) {
			year = y
			recordingID = resp.Recordings[i].ID
		}
	}
	if year == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: isrc}
	}

	sig := provider.NewSignal(provider.NameMusicBrainz, year, provider.MethodISRC)
	sig.ExternalID = recordingID
	sig.MatchConfidence = 1
	sig.Details = map[string]string{
		"isrc":       isrc,
		"recordings": strconv.Itoa(len(resp.Recordings)),
	}
	return sig, nil
}

// SearchRecordings searches MusicBrainz for recordings by artist and title.
// Candidates keep the provider's result order; each carries its earliest
// release year (0 when undated).
func (a *Adapter) SearchRecordings(ctx context.Context, artist, title string) ([]similarity.Candidate, error) {
	params := url.Values{
		"query": {searchQuery(artist, title)},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	reqURL := a.baseURL + "/recording?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp RecordingSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		a.logger.Warn("malformed search response", slog.String("error", err.Error()))
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: artist + " - " + title, Cause: err}
	}

	cands := make([]similarity.Candidate, 0, len(resp.Recordings))
	for i := range resp.Recordings {
		rec := &resp.Recordings[i]
		album := ""
		if len(rec.Releases) > 0 {
			album = rec.Releases[0].Title
		}
		cands = append(cands, similarity.Candidate{
			ID:     rec.ID,
			Title:  rec.Title,
			Artist: creditName(rec.ArtistCredit),
			Album:  album,
			Year:   earliestYear(rec),
		})
	}
	return cands, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameMusicBrainz); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped query
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{
			Provider: provider.NameMusicBrainz,
			ID:       reqURL,
		}
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrRateLimited{
			Provider:   provider.NameMusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: provider.RetryAfter(resp.Header.Get("Retry-After"), 2*time.Second),
		}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// earliestYear is the lowest year among the recording's first release date
// and the dates of the releases it appears on.
func earliestYear(rec *MBRecording) int {
	year := provider.ParseYear(rec.FirstReleaseDate)
	for _, rel := range rec.Releases {
		if y := provider.ParseYear(rel.Date); y > 0 && (year == 0 || y < year) {
			year = y
		}
	}
	return year
}

// creditName renders an artist credit the way MusicBrainz displays it.
func creditName(credits []MBArtistCredit) string {
	var b strings.Builder
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		b.WriteString(name)
		b.WriteString(c.JoinPhrase)
	}
	return b.String()
}

// searchQuery builds a Lucene query against the recording index.
func searchQuery(artist, title string) string {
	clean := strings.NewReplacer(`"`, "", `\`, "")
	q := fmt.Sprintf(`recording:"%s"`, clean.Replace(title))
	if artist != "" {
		q += fmt.Sprintf(` AND artist:"%s"`, clean.Replace(artist))
	}
	return q
}

func defaultUserAgent() string {
	return fmt.Sprintf("trackyear/%s (https://github.com/sydlexius/trackyear)", version.Version)
}
