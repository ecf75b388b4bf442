package musicbrainz

// MusicBrainz API response types.

// ISRCResponse is the response from the /isrc/{isrc} lookup.
type ISRCResponse struct {
	ISRC       string        `json:"isrc"`
	Recordings []MBRecording `json:"recordings"`
}

// RecordingSearchResponse is the top-level response from the recording search endpoint.
type RecordingSearchResponse struct {
	Created    string        `json:"created"`
	Count      int           `json:"count"`
	Offset     int           `json:"offset"`
	Recordings []MBRecording `json:"recordings"`
}

// MBRecording represents a MusicBrainz recording entity.
type MBRecording struct {
	ID               string           `json:"id"`
	Score            int              `json:"score"`
	Title            string           `json:"title"`
	Length           int              `json:"length"`
	FirstReleaseDate string           `json:"first-release-date"`
	ArtistCredit     []MBArtistCredit `json:"artist-credit"`
	Releases         []MBRelease      `json:"releases"`
}

// MBArtistCredit is one credited artist with the phrase joining it to the next.
type MBArtistCredit struct {
	Name       string   `json:"name"`
	JoinPhrase string   `json:"joinphrase"`
	Artist     MBArtist `json:"artist"`
}

// MBArtist is the artist reference inside a credit.
type MBArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

// MBRelease is a release the recording appears on.
type MBRelease struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	Date         string          `json:"date"`
	Country      string          `json:"country"`
	ReleaseGroup *MBReleaseGroup `json:"release-group,omitempty"`
}

// MBReleaseGroup represents a MusicBrainz release group entity.
type MBReleaseGroup struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	PrimaryType    string   `json:"primary-type"`
	SecondaryTypes []string `json:"secondary-types"`
}
