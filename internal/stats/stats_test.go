package stats

import (
	"context"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/compilation"
	"github.com/sydlexius/trackyear/internal/database"
	"github.com/sydlexius/trackyear/internal/reconcile"
	"github.com/sydlexius/trackyear/internal/store"
	"github.com/sydlexius/trackyear/internal/track"
)

func analyzed(id string, catalog, best int, conf track.Confidence, status analyzer.Status, flags ...analyzer.FlagType) analyzer.AnalyzedTrack {
	at := analyzer.AnalyzedTrack{
		Track:          track.Track{ID: id, Year: catalog},
		Recommendation: reconcile.Recommendation{BestYear: best, Confidence: conf},
		Status:         status,
		MatchMethod:    analyzer.MatchISRC,
	}
	for _, f := range flags {
		at.Flags = append(at.Flags, analyzer.Flag{Type: f})
	}
	return at
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		c    track.Confidence
		want float64
	}{
		{track.ConfidenceNone, 0},
		{track.ConfidenceLow, 0.25},
		{track.ConfidenceMedium, 0.5},
		{track.ConfidenceHigh, 0.75},
		{track.ConfidenceVeryHigh, 1},
	}
	for _, tt := range tests {
		if got := ConfidenceScore(tt.c); got != tt.want {
			t.Errorf("ConfidenceScore(%s): expected %v, got %v", tt.c, tt.want, got)
		}
	}
}

func TestFold(t *testing.T) {
	comp := analyzed("c", 2008, 1976, track.ConfidenceVeryHigh, analyzer.StatusRed,
		analyzer.FlagCompilation, analyzer.FlagCriticalCompilation)
	comp.Compilation = compilation.Signal{IsCompilation: true}
	comp.Verified = true

	tracks := []analyzer.AnalyzedTrack{
		analyzed("a", 1975, 1975, track.ConfidenceHigh, analyzer.StatusGreen),
		analyzed("b", 1999, 1997, track.ConfidenceMedium, analyzer.StatusYellow, analyzer.FlagYearConflict),
		comp,
		{Track: track.Track{ID: "e", Year: 2000}, MatchMethod: analyzer.MatchError, Error: "down", Status: analyzer.StatusGreen},
	}

	got := Fold(Stats{}, "Mix", tracks)

	if got.Playlists != 1 || got.Tracks != 4 {
		t.Errorf("expected 1 playlist and 4 tracks, got %d/%d", got.Playlists, got.Tracks)
	}
	if got.Green != 1 || got.Yellow != 1 || got.Red != 1 || got.Errors != 1 {
		t.Errorf("unexpected status counts: %+v", got)
	}
	if got.Verified != 1 || got.Compilations != 1 {
		t.Errorf("expected 1 verified and 1 compilation, got %d/%d", got.Verified, got.Compilations)
	}
	if got.ByFlag["year_conflict"] != 1 || got.ByFlag["critical_compilation"] != 1 {
		t.Errorf("unexpected flag counts: %v", got.ByFlag)
	}
	if got.ByConfidence["very_high"] != 1 || got.ByConfidence["high"] != 1 || got.ByConfidence["medium"] != 1 {
		t.Errorf("unexpected confidence counts: %v", got.ByConfidence)
	}
	if got.ConfidenceSamples != 3 {
		t.Errorf("expected 3 confidence samples, got %d", got.ConfidenceSamples)
	}
	if want := (0.75 + 0.5 + 1) / 3; math.Abs(got.AvgConfidenceScore-want) > 1e-9 {
		t.Errorf("expected avg confidence %v, got %v", want, got.AvgConfidenceScore)
	}
	if want := (0.0 + 2 + 32) / 3; math.Abs(got.AvgYearDiff-want) > 1e-9 {
		t.Errorf("expected avg year diff %v, got %v", want, got.AvgYearDiff)
	}
	if got.LastPlaylist != "Mix" {
		t.Errorf("expected last playlist Mix, got %q", got.LastPlaylist)
	}
}

func TestFoldWeightedMean(t *testing.T) {
	first := Fold(Stats{}, "one", []analyzer.AnalyzedTrack{
		analyzed("a", 2000, 1990, track.ConfidenceVeryHigh, analyzer.StatusGreen),
	})
	second := Fold(first, "two", []analyzer.AnalyzedTrack{
		analyzed("b", 2000, 2000, track.ConfidenceNone, analyzer.StatusGreen),
		analyzed("c", 2000, 2000, track.ConfidenceNone, analyzer.StatusGreen),
		analyzed("d", 2000, 2000, track.ConfidenceNone, analyzer.StatusGreen),
	})

	if math.Abs(second.AvgConfidenceScore-0.25) > 1e-9 {
		t.Errorf("expected weighted mean 0.25, got %v", second.AvgConfidenceScore)
	}
	if math.Abs(second.AvgYearDiff-2.5) > 1e-9 {
		t.Errorf("expected weighted year diff 2.5, got %v", second.AvgYearDiff)
	}
}

func TestFoldDoesNotMutateInput(t *testing.T) {
	prev := Fold(Stats{}, "one", []analyzer.AnalyzedTrack{
		analyzed("a", 2000, 2000, track.ConfidenceHigh, analyzer.StatusYellow, analyzer.FlagYearConflict),
	})
	_ = Fold(prev, "two", []analyzer.AnalyzedTrack{
		analyzed("b", 2000, 2000, track.ConfidenceHigh, analyzer.StatusYellow, analyzer.FlagYearConflict),
	})
	if prev.ByFlag["year_conflict"] != 1 || prev.Playlists != 1 {
		t.Errorf("expected previous stats untouched, got %+v", prev)
	}
}

func TestFoldCountersNeverDecrease(t *testing.T) {
	s := Stats{}
	batches := [][]analyzer.AnalyzedTrack{
		{analyzed("a", 2000, 2000, track.ConfidenceHigh, analyzer.StatusGreen)},
		nil,
		{analyzed("b", 1990, 1980, track.ConfidenceLow, analyzer.StatusRed, analyzer.FlagLargeYearDiff)},
	}
	for _, b := range batches {
		next := Fold(s, "p", b)
		if next.Tracks < s.Tracks || next.Green < s.Green || next.Red < s.Red || next.Playlists <= s.Playlists {
			t.Fatalf("counter decreased: %+v -> %+v", s, next)
		}
		s = next
	}
}

func setupService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewService(store.New(db, logger), logger)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func TestServiceGetEmpty(t *testing.T) {
	svc := setupService(t)

	st, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Playlists != 0 || st.ByFlag == nil {
		t.Errorf("expected zero stats with initialized maps, got %+v", st)
	}
}

func TestServiceRecord(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		if err := svc.Record(ctx, name, []analyzer.AnalyzedTrack{
			analyzed(name, 2000, 2000, track.ConfidenceHigh, analyzer.StatusGreen),
		}); err != nil {
			t.Fatalf("Record %s: %v", name, err)
		}
	}

	st, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Playlists != 2 || st.Tracks != 2 || st.Green != 2 {
		t.Errorf("expected two recorded playlists, got %+v", st)
	}
	if st.LastPlaylist != "two" {
		t.Errorf("expected last playlist two, got %q", st.LastPlaylist)
	}
	if !st.UpdatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected updated_at %v", st.UpdatedAt)
	}
}
