package export

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/sydlexius/trackyear/internal/analyzer"
	"github.com/sydlexius/trackyear/internal/reconcile"
	"github.com/sydlexius/trackyear/internal/track"
)

func reviewed() []analyzer.AnalyzedTrack {
	mk := func(id, title, artist string, best int) analyzer.AnalyzedTrack {
		return analyzer.AnalyzedTrack{
			Track:          track.Track{ID: id, Title: title, Artist: artist, Year: best},
			Recommendation: reconcile.Recommendation{BestYear: best},
		}
	}
	tracks := []analyzer.AnalyzedTrack{
		mk("t1", "Bohemian Rhapsody", "Queen", 1975),
		mk("t2", "Dancing Queen", "ABBA", 2008),
		mk("t3", "Heroes", "David Bowie", 1977),
		mk("t4", "Wonderwall", "Oasis", 1995),
	}
	_ = tracks[0].ApproveRecommendation()
	_ = tracks[1].Approve(1976, "musicbrainz")
	_ = tracks[3].ApproveRecommendation()
	return tracks
}

func TestPrepareForExport(t *testing.T) {
	songs := PrepareForExport(reviewed())

	want := []Song{
		{SpotifyID: "t1", Title: "Bohemian Rhapsody", Artist: "Queen", Year: 1975},
		{SpotifyID: "t2", Title: "Dancing Queen", Artist: "ABBA", Year: 1976},
		{SpotifyID: "t4", Title: "Wonderwall", Artist: "Oasis", Year: 1995},
	}
	if !reflect.DeepEqual(songs, want) {
		t.Errorf("expected %+v, got %+v", want, songs)
	}
}

func TestRoundTrip(t *testing.T) {
	songs := PrepareForExport(reviewed())

	data, err := ToJSON("Seventies Classics", songs)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	doc, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if doc.PlaylistName != "Seventies Classics" {
		t.Errorf("expected playlist name, got %q", doc.PlaylistName)
	}
	if doc.ExportedAt.IsZero() {
		t.Error("expected exportedAt to be set")
	}
	if !reflect.DeepEqual(doc.Songs, songs) {
		t.Errorf("expected %+v, got %+v", songs, doc.Songs)
	}
}

func TestToJSONShape(t *testing.T) {
	data, err := ToJSON("Empty", nil)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	for _, key := range []string{"playlistName", "exportedAt", "songs"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %s in %s", key, data)
		}
	}
	if string(raw["songs"]) != "[]" {
		t.Errorf("expected empty songs array, got %s", raw["songs"])
	}
}

func TestParseJSONRejectsIncompleteSongs(t *testing.T) {
	_, err := ParseJSON([]byte(`{"playlistName":"x","songs":[{"spotifyId":"a","title":"t","artist":"a"}]}`))
	if err == nil {
		t.Error("expected error for song without year")
	}
	if _, err := ParseJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestGameFormat(t *testing.T) {
	cards := GameFormat(reviewed())

	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	if got := cards["t2"]; got != (GameCard{Title: "Dancing Queen", Artist: "ABBA", Year: 1976}) {
		t.Errorf("unexpected card for t2: %+v", got)
	}
	if _, ok := cards["t3"]; ok {
		t.Error("unverified track must not be exported")
	}
}

func TestRender(t *testing.T) {
	tracks := reviewed()

	data, err := Render(FormatGame, "Mix", tracks)
	if err != nil {
		t.Fatalf("Render game: %v", err)
	}
	var cards map[string]GameCard
	if err := json.Unmarshal(data, &cards); err != nil {
		t.Fatalf("decoding game export: %v", err)
	}
	if cards["t1"].Year != 1975 {
		t.Errorf("expected t1 year 1975, got %d", cards["t1"].Year)
	}

	if _, err := Render("csv", "Mix", tracks); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
