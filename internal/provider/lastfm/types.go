package lastfm

import (
	"bytes"
	"encoding/json"
)

// Last.fm API response types.

// apiError is the body Last.fm returns for failed calls, often with HTTP 200.
type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// TrackInfoResponse is the top-level response from track.getInfo.
type TrackInfoResponse struct {
	Track TrackInfo `json:"track"`
}

// TrackInfo is the track record from track.getInfo.
type TrackInfo struct {
	Name      string      `json:"name"`
	MBID      string      `json:"mbid"`
	URL       string      `json:"url"`
	Duration  string      `json:"duration"`
	Listeners string      `json:"listeners"`
	Playcount string      `json:"playcount"`
	Artist    TrackArtist `json:"artist"`
	Album     *TrackAlbum `json:"album,omitempty"`
	TopTags   TagGroup    `json:"toptags"`
	Wiki      *Wiki       `json:"wiki,omitempty"`
}

// TrackArtist is the artist reference on a track.
type TrackArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
}

// TrackAlbum is the album reference on a track. ReleaseDate is only present
// on some responses.
type TrackAlbum struct {
	Artist      string `json:"artist"`
	Title       string `json:"title"`
	MBID        string `json:"mbid"`
	ReleaseDate string `json:"releasedate"`
}

// AlbumInfoResponse is the top-level response from album.getInfo.
type AlbumInfoResponse struct {
	Album AlbumInfo `json:"album"`
}

// AlbumInfo is the album record from album.getInfo.
type AlbumInfo struct {
	Name        string   `json:"name"`
	Artist      string   `json:"artist"`
	MBID        string   `json:"mbid"`
	URL         string   `json:"url"`
	ReleaseDate string   `json:"releasedate"`
	Listeners   string   `json:"listeners"`
	Playcount   string   `json:"playcount"`
	Tags        TagGroup `json:"tags"`
	Wiki        *Wiki    `json:"wiki,omitempty"`
}

// Wiki holds the editorial summary.
type Wiki struct {
	Published string `json:"published"`
	Summary   string `json:"summary"`
}

// TagGroup wraps the tag array. Last.fm sends an empty string instead of an
// object when there are no tags, and a bare object when there is only one.
type TagGroup struct {
	Tag []Tag
}

// UnmarshalJSON accepts every shape Last.fm uses for tag groups.
func (g *TagGroup) UnmarshalJSON(data []byte) error {
	g.Tag = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var raw struct {
		Tag json.RawMessage `json:"tag"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tags := bytes.TrimSpace(raw.Tag)
	switch {
	case len(tags) == 0:
		return nil
	case tags[0] == '[':
		return json.Unmarshal(tags, &g.Tag)
	case tags[0] == '{':
		var one Tag
		if err := json.Unmarshal(tags, &one); err != nil {
			return err
		}
		g.Tag = []Tag{one}
	}
	return nil
}

// Tag is a single tag.
type Tag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
