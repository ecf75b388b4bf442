package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/track"
)

// Run states.
const (
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// Run is one analyzed playlist together with its review state.
type Run struct {
	ID           string                   `json:"id"`
	PlaylistID   string                   `json:"playlist_id"`
	PlaylistName string                   `json:"playlist_name"`
	Owner        string                   `json:"owner,omitempty"`
	Status       string                   `json:"status"`
	Error        string                   `json:"error,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	Tracks       []analyzer.AnalyzedTrack `json:"tracks"`
}

// NewRun starts a run for a fetched playlist.
func NewRun(pl *track.Playlist) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:           uuid.New().String(),
		PlaylistID:   pl.ID,
		PlaylistName: pl.Name,
		Owner:        pl.Owner,
		Status:       StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Summary counts the run's tracks per outcome.
func (r *Run) Summary() analyzer.Summary {
	return analyzer.Summarize(r.Tracks)
}

func (r *Run) findTrack(trackID string) *analyzer.AnalyzedTrack {
	for i := range r.Tracks {
		if r.Tracks[i].ID == trackID {
			return &r.Tracks[i]
		}
	}
	return nil
}

// RunInfo is the listing view of a run.
type RunInfo struct {
	ID           string           `json:"id"`
	PlaylistName string           `json:"playlist_name"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	Summary      analyzer.Summary `json:"summary"`
}
