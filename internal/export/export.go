// Package export turns reviewed tracks into the plain-data shapes consumed
// outside the pipeline: a verified song list and a game card map.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sydlexius/trackyear/internal/analyzer"
)

// Supported export formats.
const (
	FormatSongs = "songs"
	FormatGame  = "game"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Song is one verified track.
type Song struct {
	SpotifyID string `json:"spotifyId"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Year      int    `json:"year"`
}

// Document is the verified songs export.
type Document struct {
	PlaylistName string    `json:"playlistName"`
	ExportedAt   time.Time `json:"exportedAt"`
	Songs        []Song    `json:"songs"`
}

// GameCard is one entry of the game format.
type GameCard struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year"`
}

// PrepareForExport returns the verified tracks in input order, each with its
// final year.
func PrepareForExport(tracks []analyzer.AnalyzedTrack) []Song {
	songs := make([]Song, 0, len(tracks))
	for i := range tracks {
		at := &tracks[i]
		if !at.Verified {
			continue
		}
		songs = append(songs, Song{
			SpotifyID: at.ID,
			Title:     at.Title,
			Artist:    at.Artist,
			Year:      at.FinalYear(),
		})
	}
	return songs
}

// ToJSON encodes the songs export stamped with the current time.
func ToJSON(playlistName string, songs []Song) ([]byte, error) {
	return encode(Document{PlaylistName: playlistName, ExportedAt: time.Now().UTC(), Songs: songs})
}

func encode(doc Document) ([]byte, error) {
	if doc.Songs == nil {
		doc.Songs = []Song{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return data, nil
}

// ParseJSON decodes a songs export.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	for i, s := range doc.Songs {
		if s.SpotifyID == "" || s.Year <= 0 {
			return nil, fmt.Errorf("decoding export: song %d is missing an id or year", i)
		}
	}
	return &doc, nil
}

// GameFormat keys the verified tracks by track ID.
func GameFormat(tracks []analyzer.AnalyzedTrack) map[string]GameCard {
	cards := make(map[string]GameCard)
	for _, s := range PrepareForExport(tracks) {
		cards[s.SpotifyID] = GameCard{Title: s.Title, Artist: s.Artist, Year: s.Year}
	}
	return cards
}

// Render encodes tracks in the named format.
func Render(format, playlistName string, tracks []analyzer.AnalyzedTrack) ([]byte, error) {
	switch format {
	case FormatSongs, "":
		return ToJSON(playlistName, PrepareForExport(tracks))
	case FormatGame:
		data, err := json.MarshalIndent(GameFormat(tracks), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding game export: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
