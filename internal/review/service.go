// Package review persists analysis runs and applies reviewer decisions to
// them.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/export"
	"github.com/sydlexius/trackyear/internal/store"
)

const pathPrefix = "runs/"

// Errors returned for missing runs and tracks.
var (
	ErrRunNotFound   = errors.New("run not found")
	ErrTrackNotFound = errors.New("track not found in run")
)

// Service stores runs as documents.
type Service struct {
	docs   *store.Store
	logger *slog.Logger
}

// NewService creates a review service.
func NewService(docs *store.Store, logger *slog.Logger) *Service {
	return &Service{
		docs:   docs,
		logger: logger.With(slog.String("component", "review")),
	}
}

func runPath(id string) string { return pathPrefix + id }

// Save writes the run.
func (s *Service) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return errors.New("saving run: missing id")
	}
	run.UpdatedAt = time.Now().UTC()
	if err := s.docs.Set(ctx, runPath(run.ID), run); err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// Get loads a run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := s.docs.Get(ctx, runPath(id), &run); err != nil {
		return nil, runErr(id, err)
	}
	return &run, nil
}

// List returns every stored run, newest first.
func (s *Service) List(ctx context.Context) ([]RunInfo, error) {
	entries, err := s.docs.List(ctx, pathPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	infos := make([]RunInfo, 0, len(entries))
	for _, e := range entries {
		var run Run
		if err := json.Unmarshal(e.Value, &run); err != nil {
			s.logger.Warn("skipping unreadable run",
				slog.String("path", e.Path),
				slog.String("error", err.Error()))
			continue
		}
		infos = append(infos, RunInfo{
			ID:           run.ID,
			PlaylistName: run.PlaylistName,
			Status:       run.Status,
			CreatedAt:    run.CreatedAt,
			Summary:      run.Summary(),
		})
	}
	return infos, nil
}

// Delete removes a run.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, runPath(id)); err != nil {
		return runErr(id, err)
	}
	return nil
}

// Approve records a reviewer's year for one track of a run.
func (s *Service) Approve(ctx context.Context, runID, trackID string, year int, source string) (*analyzer.AnalyzedTrack, error) {
	var approved analyzer.AnalyzedTrack
	err := s.modify(ctx, runID, func(run *Run) error {
		at := run.findTrack(trackID)
		if at == nil {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
		}
		if source == "" {
			source = "manual"
		}
		if err := at.Approve(year, source); err != nil {
			return err
		}
		approved = *at
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("track approved",
		slog.String("run_id", runID),
		slog.String("track_id", trackID),
		slog.Int("year", year),
		slog.String("source", source))
	return &approved, nil
}

// ApproveAllGreen accepts the recommendation for every green track that is
// not yet verified and not an error placeholder. It returns the number of
// tracks approved.
func (s *Service) ApproveAllGreen(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.modify(ctx, runID, func(run *Run) error {
		for i := range run.Tracks {
			at := &run.Tracks[i]
			if at.Verified || at.Failed() || at.Status != analyzer.StatusGreen || at.Recommendation.BestYear <= 0 {
				continue
			}
			if err := at.ApproveRecommendation(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("green tracks approved", slog.String("run_id", runID), slog.Int("count", n))
	return n, nil
}

// Export renders the run's verified tracks in the given format.
func (s *Service) Export(ctx context.Context, runID, format string) ([]byte, error) {
	run, err := s.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	data, err := export.Render(format, run.PlaylistName, run.Tracks)
	if err != nil {
		return nil, fmt.Errorf("exporting run %s: %w", runID, err)
	}
	return data, nil
}

// modify applies fn to a stored run in one transaction.
func (s *Service) modify(ctx context.Context, runID string, fn func(*Run) error) error {
	err := s.docs.Update(ctx, runPath(runID), func(current json.RawMessage) (any, error) {
		if len(current) == 0 {
			return nil, store.ErrNotFound
		}
		var run Run
		if err := json.Unmarshal(current, &run); err != nil {
			return nil, fmt.Errorf("decoding run: %w", err)
		}
		if err := fn(&run); err != nil {
			return nil, err
		}
		run.UpdatedAt = time.Now().UTC()
		return &run, nil
	})
	if err != nil {
		return runErr(runID, err)
	}
	return nil
}

func runErr(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return fmt.Errorf("run %s: %w", id, err)
}
