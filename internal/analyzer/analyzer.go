// Package analyzer validates tracks against every configured year source and
// attaches a recommendation, review flags and a traffic-light status.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sydlexius/trackyear/internal/compilation"
	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/reconcile"
	"github.com/sydlexius/trackyear/internal/track"
)

// DefaultAbortThreshold is the number of consecutive failed tracks after
// which a playlist run gives up.
const DefaultAbortThreshold = 5

// ErrValidationAborted is returned when too many consecutive tracks failed,
// which points at an unreachable provider rather than bad tracks.
var ErrValidationAborted = errors.New("validation aborted")

// AbortError ends a playlist run. It matches ErrValidationAborted and wraps
// the failure of the last track.
type AbortError struct {
	Consecutive int
	Cause       error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%v after %d consecutive failed tracks: %v", ErrValidationAborted, e.Consecutive, e.Cause)
}

func (e *AbortError) Unwrap() []error { return []error{ErrValidationAborted, e.Cause} }

// TrackError reports that no source could be reached for a track.
type TrackError struct {
	TrackID string
	Title   string
	Cause   error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("analyzing track %s (%s): %v", e.TrackID, e.Title, e.Cause)
}

func (e *TrackError) Unwrap() error { return e.Cause }

// AlbumSource fetches extended album metadata.
type AlbumSource interface {
	GetAlbum(ctx context.Context, albumID string) (*track.AlbumInfo, error)
}

// ProgressFunc is called after each track of a playlist run.
type ProgressFunc func(done, total int, at AnalyzedTrack)

// Analyzer runs the per-track pipeline. It holds no per-run state, so one
// instance may serve concurrent runs.
type Analyzer struct {
	albums         AlbumSource
	registry       *provider.Registry
	logger         *slog.Logger
	abortThreshold int
}

// New creates an analyzer. albums may be nil, in which case compilation
// detection works from the track alone.
func New(albums AlbumSource, registry *provider.Registry, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		albums:         albums,
		registry:       registry,
		logger:         logger.With(slog.String("component", "analyzer")),
		abortThreshold: DefaultAbortThreshold,
	}
}

// SetAbortThreshold changes the consecutive failure limit. Values below one
// restore the default.
func (a *Analyzer) SetAbortThreshold(n int) {
	if n < 1 {
		n = DefaultAbortThreshold
	}
	a.abortThreshold = n
}

// AnalyzeTrack queries every source for the track and reconciles the results.
// A source failure only drops that source's signal; the track fails with a
// *TrackError when every source failed. Primary catalog credential failures
// are returned immediately since no later track can succeed either; a
// rejected secondary key counts as an ordinary failure of that source.
func (a *Analyzer) AnalyzeTrack(ctx context.Context, t track.Track) (AnalyzedTrack, error) {
	at := AnalyzedTrack{Track: t, Status: StatusGreen}
	log := a.logger.With(slog.String("track_id", t.ID))

	if a.albums != nil && t.AlbumID != "" {
		album, err := a.albums.GetAlbum(ctx, t.AlbumID)
		switch {
		case err == nil:
			at.AlbumInfo = album
		case provider.IsCatalogAuthFailed(err):
			return at, fmt.Errorf("fetching album %s: %w", t.AlbumID, err)
		default:
			log.Debug("album metadata unavailable", slog.String("album_id", t.AlbumID), slog.String("error", err.Error()))
		}
	}

	var signals []provider.YearSignal
	if s := provider.CatalogSignal(t); s != nil {
		signals = append(signals, *s)
	}

	var (
		attempted, failed int
		lastErr           error
	)
	for _, src := range a.registry.All() {
		attempted++
		sig, err := src.Lookup(ctx, t)
		switch {
		case err == nil:
			if sig != nil && sig.Year > 0 {
				signals = append(signals, *sig)
			}
		case provider.IsCatalogAuthFailed(err):
			return at, fmt.Errorf("querying %s: %w", src.Name(), err)
		case provider.IsNotFound(err):
			log.Debug("no data", slog.String("provider", string(src.Name())))
		default:
			failed++
			lastErr = err
			log.Warn("provider lookup failed",
				slog.String("provider", string(src.Name())),
				slog.String("error", err.Error()))
		}
	}
	if attempted > 0 && failed == attempted {
		return at, &TrackError{TrackID: t.ID, Title: t.Title, Cause: lastErr}
	}

	for _, s := range signals {
		if s.Provider == provider.NameSpotifyOriginal {
			at.OriginalYear = s.Year
		}
	}

	at.Compilation = compilation.Detect(t, at.AlbumInfo)
	at.Recommendation = reconcile.Reconcile(t, signals)
	at.MatchMethod = matchMethod(signals)
	applyFlags(&at)
	return at, nil
}

// AnalyzePlaylist analyzes tracks strictly in order. A failed track is kept as
// an error placeholder and the run continues until the abort threshold of
// consecutive failures is reached. Cancellation is checked between tracks;
// the tracks analyzed so far are returned with every error.
func (a *Analyzer) AnalyzePlaylist(ctx context.Context, tracks []track.Track, onProgress ProgressFunc) ([]AnalyzedTrack, error) {
	results := make([]AnalyzedTrack, 0, len(tracks))
	consecutive := 0

	for i, t := range tracks {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		at, err := a.AnalyzeTrack(ctx, t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			if provider.IsCatalogAuthFailed(err) {
				a.logger.Error("aborting run on credential failure", slog.String("error", err.Error()))
				return results, err
			}

			consecutive++
			a.logger.Warn("track failed",
				slog.String("track_id", t.ID),
				slog.Int("consecutive", consecutive),
				slog.String("error", err.Error()))
			at = placeholder(t, err)
			results = append(results, at)
			if onProgress != nil {
				onProgress(i+1, len(tracks), at)
			}

			if consecutive >= a.abortThreshold {
				a.logger.Error("aborting run",
					slog.Int("consecutive_failures", consecutive),
					slog.Int("analyzed", len(results)),
					slog.Int("total", len(tracks)))
				return results, &AbortError{Consecutive: consecutive, Cause: err}
			}
			continue
		}

		consecutive = 0
		results = append(results, at)
		if onProgress != nil {
			onProgress(i+1, len(tracks), at)
		}
	}
	return results, nil
}

// placeholder records a failed track. Its status is left green; the error
// field and match method mark it unresolved.
func placeholder(t track.Track, err error) AnalyzedTrack {
	return AnalyzedTrack{
		Track:          t,
		Recommendation: reconcile.Reconcile(t, nil),
		Status:         StatusGreen,
		MatchMethod:    MatchError,
		Error:          err.Error(),
	}
}

// matchRank orders lookup paths from the most to the least specific.
var matchRank = map[string]int{
	MatchISRC:     1,
	MatchOriginal: 2,
	MatchTrack:    3,
	MatchAlbum:    4,
	MatchSearch:   5,
}

func matchMethod(signals []provider.YearSignal) string {
	method := MatchNone
	for _, s := range signals {
		rank, ok := matchRank[s.Method]
		if !ok {
			continue
		}
		if method == MatchNone || rank < matchRank[method] {
			method = s.Method
		}
	}
	return method
}
