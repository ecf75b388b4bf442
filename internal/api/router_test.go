package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/database"
	"github.com/sydlexius/trackyear/internal/export"
	"github.com/sydlexius/trackyear/internal/provider"
	"github.com/sydlexius/trackyear/internal/provider/spotify"
	"github.com/sydlexius/trackyear/internal/review"
	"github.com/sydlexius/trackyear/internal/stats"
	"github.com/sydlexius/trackyear/internal/store"
	"github.com/sydlexius/trackyear/internal/track"
)

type fakePlaylists struct{}

func (fakePlaylists) FetchPlaylist(_ context.Context, ref string) (*track.Playlist, error) {
	switch ref {
	case "seventies":
		return &track.Playlist{
			ID:   "37i9dQZF1DXcBWIGoYBM5M",
			Name: "Seventies Classics",
			Tracks: []track.Track{
				{ID: "t1", Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", AlbumType: track.AlbumTypeAlbum, Year: 1975},
				{ID: "t2", Title: "Dancing Queen", Artist: "ABBA", Album: "Arrival", AlbumType: track.AlbumTypeAlbum, Year: 1976},
			},
		}, nil
	case "down":
		tracks := make([]track.Track, 6)
		for i := range tracks {
			tracks[i] = track.Track{ID: string(rune('a' + i)), Title: "Song", Artist: "Band", Year: 1990}
		}
		return &track.Playlist{ID: "down", Name: "Down", Tracks: tracks}, nil
	default:
		if _, err := spotify.ParsePlaylistRef(ref); err != nil {
			return nil, err
		}
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, ID: ref}
	}
}

// mb agrees with the catalog for t1 and dates t2 a year earlier. It is
// unreachable for every other track.
type mb struct{}

func (mb) Name() provider.ProviderName { return provider.NameMusicBrainz }

func (mb) Lookup(_ context.Context, t track.Track) (*provider.YearSignal, error) {
	switch t.ID {
	case "t1":
		return provider.NewSignal(provider.NameMusicBrainz, 1975, provider.MethodISRC), nil
	case "t2":
		return provider.NewSignal(provider.NameMusicBrainz, 1975, provider.MethodISRC), nil
	}
	return nil, &provider.ErrProviderUnavailable{Provider: provider.NameMusicBrainz, Cause: errors.New("HTTP 503")}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	docs := store.New(db, logger)
	reg := provider.NewRegistry()
	reg.Register(mb{})
	runs := review.NewService(docs, logger)
	st := stats.NewService(docs, logger)
	runner := review.NewRunner(fakePlaylists{}, analyzer.New(nil, reg, logger), runs, st, logger)

	router := NewRouter(ctx, RouterDeps{
		Runner:        runner,
		Runs:          runs,
		Stats:         st,
		Logger:        logger,
		BasePath:      "/ty",
		AnalysisBurst: 10,
	})
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return srv
}

type sseEvent struct {
	name string
	data streamEvent
}

func readEvents(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		name   string
	)
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var ev streamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("decoding event %s: %v", name, err)
			}
			events = append(events, sseEvent{name: name, data: ev})
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	return events
}

func startAnalysis(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/ty/api/v1/analyses", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST analyses: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ty/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := startAnalysis(t, srv, `{"playlist":"seventies"}`)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %s", ct)
	}
	events := readEvents(t, resp)
	if len(events) != 4 {
		t.Fatalf("expected 3 progress events and 1 result, got %d", len(events))
	}
	for _, ev := range events[:3] {
		if ev.name != "progress" || ev.data.Status != review.StatusProcessing {
			t.Errorf("unexpected event %+v", ev)
		}
	}
	last := events[3]
	if last.name != "complete" || last.data.Run == nil || len(last.data.Run.Tracks) != 2 {
		t.Fatalf("unexpected final event %+v", last)
	}
	runID := last.data.Run.ID

	// Fetch the stored run.
	getResp, err := http.Get(srv.URL + "/ty/api/v1/analyses/" + runID)
	if err != nil {
		t.Fatalf("GET run: %v", err)
	}
	defer getResp.Body.Close() //nolint:errcheck
	var got struct {
		review.Run
		Summary analyzer.Summary `json:"summary"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding run: %v", err)
	}
	if got.Summary.Green != 1 || got.Summary.Yellow != 1 {
		t.Errorf("expected one green and one yellow track, got %+v", got.Summary)
	}

	// Approve the conflicting track by hand and the rest in bulk.
	approve, err := http.Post(srv.URL+"/ty/api/v1/analyses/"+runID+"/tracks/t2/approve", "application/json",
		strings.NewReader(`{"year":1976,"source":"spotify"}`))
	if err != nil {
		t.Fatalf("POST approve: %v", err)
	}
	approve.Body.Close() //nolint:errcheck
	if approve.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d", approve.StatusCode)
	}
	bulk, err := http.Post(srv.URL+"/ty/api/v1/analyses/"+runID+"/approve-green", "application/json", nil)
	if err != nil {
		t.Fatalf("POST approve-green: %v", err)
	}
	bulk.Body.Close() //nolint:errcheck

	exp, err := http.Get(srv.URL + "/ty/api/v1/analyses/" + runID + "/export?format=songs")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer exp.Body.Close() //nolint:errcheck
	var doc export.Document
	if err := json.NewDecoder(exp.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(doc.Songs) != 2 || doc.Songs[1].Year != 1976 {
		t.Errorf("unexpected export %+v", doc)
	}

	statsResp, err := http.Get(srv.URL + "/ty/api/v1/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer statsResp.Body.Close() //nolint:errcheck
	var st stats.Stats
	if err := json.NewDecoder(statsResp.Body).Decode(&st); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if st.Playlists != 1 || st.Tracks != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestAnalysisAbortStreamsError(t *testing.T) {
	srv := newTestServer(t)

	events := readEvents(t, startAnalysis(t, srv, `{"playlist":"down"}`))
	last := events[len(events)-1]
	if last.name != "error" || last.data.Status != review.StatusError {
		t.Fatalf("expected error event, got %+v", last)
	}
	if last.data.Kind != "aborted" {
		t.Errorf("expected aborted kind, got %q", last.data.Kind)
	}
	if last.data.Run == nil || len(last.data.Run.Tracks) != analyzer.DefaultAbortThreshold {
		t.Errorf("expected partial run with %d tracks, got %+v", analyzer.DefaultAbortThreshold, last.data.Run)
	}
	if !strings.Contains(last.data.Error, "MusicBrainz") {
		t.Errorf("expected message naming the provider, got %q", last.data.Error)
	}
}

func TestAnalysisBadPlaylistIsLocalized(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/ty/api/v1/analyses", strings.NewReader(`{"playlist":"not a playlist"}`))
	req.Header.Set("Accept-Language", "de")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST analyses: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	events := readEvents(t, resp)
	if len(events) != 1 || events[0].name != "error" {
		t.Fatalf("expected a single error event, got %+v", events)
	}
	if events[0].data.Kind != "bad_input" || !strings.Contains(events[0].data.Error, "Spotify-Playlist") {
		t.Errorf("unexpected error event %+v", events[0].data)
	}
}

func TestAnalysisRequiresPlaylist(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`{}`, `not json`} {
		resp := startAnalysis(t, srv, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/ty/api/v1/analyses/missing", "", http.StatusNotFound},
		{http.MethodGet, "/ty/api/v1/analyses/missing/export?format=game", "", http.StatusNotFound},
		{http.MethodPost, "/ty/api/v1/analyses/missing/tracks/t1/approve", `{"year":1975}`, http.StatusNotFound},
		{http.MethodDelete, "/ty/api/v1/analyses/missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close() //nolint:errcheck
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, resp.StatusCode)
		}
	}
}

func TestStatusFor(t *testing.T) {
	if statusFor("bad_input") != http.StatusBadRequest || statusFor("internal") != http.StatusInternalServerError {
		t.Error("unexpected status mapping")
	}
}
