// Package stats folds analyzed playlists into running totals and persists
// them as a single aggregate document.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/store"
	"github.com/sydlexius/trackyear/internal/track"
)

// DocumentPath is where the aggregate lives in the store.
const DocumentPath = "stats/aggregate"

// Stats are cumulative counters over every recorded playlist. Counters only
// grow; the averages are weighted by the number of samples behind them.
type Stats struct {
	Playlists    int            `json:"playlists"`
	Tracks       int            `json:"tracks"`
	Green        int            `json:"green"`
	Yellow       int            `json:"yellow"`
	Red          int            `json:"red"`
	Errors       int            `json:"errors"`
	Verified     int            `json:"verified"`
	Compilations int            `json:"compilations"`
	ByFlag       map[string]int `json:"by_flag"`
	ByConfidence map[string]int `json:"by_confidence"`

	AvgConfidenceScore float64 `json:"avg_confidence_score"`
	ConfidenceSamples  int     `json:"confidence_samples"`
	AvgYearDiff        float64 `json:"avg_year_diff"`
	YearDiffSamples    int     `json:"year_diff_samples"`

	LastPlaylist string    `json:"last_playlist,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConfidenceScore maps a tier onto 0..1 for averaging.
func ConfidenceScore(c track.Confidence) float64 {
	return float64(c.Rank()) / float64(track.ConfidenceVeryHigh.Rank())
}

// Fold adds one analyzed playlist to s and returns the result. s is not
// modified. Error placeholders count as tracks and errors only.
func Fold(s Stats, playlistName string, tracks []analyzer.AnalyzedTrack) Stats {
	out := s
	out.ByFlag = copyCounts(s.ByFlag)
	out.ByConfidence = copyCounts(s.ByConfidence)
	out.Playlists++
	out.Tracks += len(tracks)
	out.LastPlaylist = playlistName

	var (
		confSum, diffSum float64
		confN, diffN     int
	)
	for i := range tracks {
		at := &tracks[i]
		if at.Verified {
			out.Verified++
		}
		if at.Failed() {
			out.Errors++
			continue
		}

		switch at.Status {
		case analyzer.StatusRed:
			out.Red++
		case analyzer.StatusYellow:
			out.Yellow++
		default:
			out.Green++
		}
		if at.Compilation.IsCompilation {
			out.Compilations++
		}
		for _, f := range at.Flags {
			out.ByFlag[string(f.Type)]++
		}

		conf := at.Recommendation.Confidence
		out.ByConfidence[string(conf)]++
		confSum += ConfidenceScore(conf)
		confN++

		if at.Year > 0 && at.Recommendation.BestYear > 0 {
			d := at.Year - at.Recommendation.BestYear
			if d < 0 {
				d = -d
			}
			diffSum += float64(d)
			diffN++
		}
	}

	out.AvgConfidenceScore, out.ConfidenceSamples = weightedMean(s.AvgConfidenceScore, s.ConfidenceSamples, confSum, confN)
	out.AvgYearDiff, out.YearDiffSamples = weightedMean(s.AvgYearDiff, s.YearDiffSamples, diffSum, diffN)
	return out
}

func weightedMean(avg float64, n int, sum float64, m int) (float64, int) {
	if m == 0 {
		return avg, n
	}
	total := n + m
	return (avg*float64(n) + sum) / float64(total), total
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DocumentStore is the part of the store the service needs.
type DocumentStore interface {
	Get(ctx context.Context, path string, dst any) error
	Update(ctx context.Context, path string, fn func(current json.RawMessage) (any, error)) error
}

// Service records playlists into the persisted aggregate.
type Service struct {
	store  DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a stats service.
func NewService(store DocumentStore, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With(slog.String("component", "stats")),
		now:    time.Now,
	}
}

// Record folds a playlist into the aggregate in one read-modify-write.
func (s *Service) Record(ctx context.Context, playlistName string, tracks []analyzer.AnalyzedTrack) error {
	var result Stats
	err := s.store.Update(ctx, DocumentPath, func(current json.RawMessage) (any, error) {
		var prev Stats
		if len(current) > 0 {
			if err := json.Unmarshal(current, &prev); err != nil {
				return nil, fmt.Errorf("decoding stats: %w", err)
			}
		}
		result = Fold(prev, playlistName, tracks)
		result.UpdatedAt = s.now().UTC()
		return result, nil
	})
	if err != nil {
		return fmt.Errorf("recording stats: %w", err)
	}

	s.logger.Info("stats recorded",
		slog.String("playlist", playlistName),
		slog.Int("tracks", len(tracks)),
		slog.Int("total_playlists", result.Playlists))
	return nil
}

// Get returns the aggregate. Before anything was recorded it returns zero
// stats.
func (s *Service) Get(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.store.Get(ctx, DocumentPath, &st)
	if errors.Is(err, store.ErrNotFound) {
		return Stats{ByFlag: map[string]int{}, ByConfidence: map[string]int{}}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("getting stats: %w", err)
	}
	return st, nil
}
