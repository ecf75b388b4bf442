package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/track"
)

// PlaylistSource loads a playlist by reference.
type PlaylistSource interface {
	FetchPlaylist(ctx context.Context, ref string) (*track.Playlist, error)
}

// StatsRecorder folds a finished run into the aggregate.
type StatsRecorder interface {
	Record(ctx context.Context, playlistName string, tracks []analyzer.AnalyzedTrack) error
}

// Progress is reported after the playlist is fetched and after each track.
type Progress struct {
	RunID   string                  `json:"run_id"`
	Done    int                     `json:"done"`
	Total   int                     `json:"total"`
	Track   *analyzer.AnalyzedTrack `json:"track,omitempty"`
	Summary analyzer.Summary        `json:"summary"`
}

// Runner fetches a playlist, analyzes it and stores the run.
type Runner struct {
	playlists PlaylistSource
	analyzer  *analyzer.Analyzer
	runs      *Service
	stats     StatsRecorder
	logger    *slog.Logger
}

// NewRunner creates a runner. stats may be nil.
func NewRunner(playlists PlaylistSource, a *analyzer.Analyzer, runs *Service, stats StatsRecorder, logger *slog.Logger) *Runner {
	return &Runner{
		playlists: playlists,
		analyzer:  a,
		runs:      runs,
		stats:     stats,
		logger:    logger.With(slog.String("component", "runner")),
	}
}

// Run analyzes the playlist. An aborted run is still saved with status error
// and whatever tracks were analyzed, and is returned together with the
// error. Stats are only recorded for complete runs.
func (r *Runner) Run(ctx context.Context, ref string, onProgress func(Progress)) (*Run, error) {
	pl, err := r.playlists.FetchPlaylist(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}

	run := NewRun(pl)
	log := r.logger.With(slog.String("run_id", run.ID), slog.String("playlist", pl.Name))
	log.Info("run started", slog.Int("tracks", len(pl.Tracks)))
	if onProgress != nil {
		onProgress(Progress{RunID: run.ID, Total: len(pl.Tracks)})
	}

	var partial []analyzer.AnalyzedTrack
	results, runErr := r.analyzer.AnalyzePlaylist(ctx, pl.Tracks, func(done, total int, at analyzer.AnalyzedTrack) {
		partial = append(partial, at)
		if onProgress != nil {
			onProgress(Progress{
				RunID:   run.ID,
				Done:    done,
				Total:   total,
				Track:   &at,
				Summary: analyzer.Summarize(partial),
			})
		}
	})
	run.Tracks = results

	if runErr != nil {
		run.Status = StatusError
		run.Error = runErr.Error()
		// Save with a fresh context so a cancelled run is still kept.
		if err := r.runs.Save(context.WithoutCancel(ctx), run); err != nil {
			return run, errors.Join(runErr, err)
		}
		log.Error("run failed", slog.Int("analyzed", len(results)), slog.String("error", runErr.Error()))
		return run, runErr
	}

	run.Status = StatusComplete
	if err := r.runs.Save(ctx, run); err != nil {
		return run, err
	}
	if r.stats != nil {
		if err := r.stats.Record(ctx, run.PlaylistName, run.Tracks); err != nil {
			log.Warn("recording stats failed", slog.String("error", err.Error()))
		}
	}

	s := run.Summary()
	log.Info("run complete",
		slog.Int("green", s.Green),
		slog.Int("yellow", s.Yellow),
		slog.Int("red", s.Red),
		slog.Int("errors", s.Errors))
	return run, nil
}
