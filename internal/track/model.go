package track

import "strings"

// AlbumType classifies the release a track was fetched from.
type AlbumType string

// Album types reported by the primary catalog.
const (
	AlbumTypeAlbum       AlbumType = "album"
	AlbumTypeSingle      AlbumType = "single"
	AlbumTypeCompilation AlbumType = "compilation"
	AlbumTypeUnknown     AlbumType = "unknown"
)

// ParseAlbumType maps a catalog album type string to an AlbumType.
func ParseAlbumType(s string) AlbumType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "album":
		return AlbumTypeAlbum
	case "single", "ep":
		return AlbumTypeSingle
	case "compilation":
		return AlbumTypeCompilation
	default:
		return AlbumTypeUnknown
	}
}

// Track is a single playlist entry as fetched from the primary catalog.
// Later pipeline stages enrich copies of it and never modify the original.
type Track struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	AlbumID      string    `json:"album_id,omitempty"`
	Album        string    `json:"album"`
	AlbumType    AlbumType `json:"album_type"`
	Year         int       `json:"year"`
	ISRC         string    `json:"isrc,omitempty"`
	OriginalYear int       `json:"original_year,omitempty"`
	Popularity   int       `json:"popularity,omitempty"`
	DurationMs   int       `json:"duration_ms,omitempty"`
}

// HasISRC reports whether the track carries an external recording identifier.
func (t Track) HasISRC() bool {
	return strings.TrimSpace(t.ISRC) != ""
}

// AlbumInfo is the extended album metadata used by compilation detection.
type AlbumInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TotalTracks int    `json:"total_tracks"`
	AlbumArtist string `json:"album_artist,omitempty"`
	Label       string `json:"label,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// Playlist is an ordered list of tracks plus its catalog metadata.
type Playlist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Owner  string  `json:"owner"`
	Total  int     `json:"total"`
	Tracks []Track `json:"tracks"`
}
