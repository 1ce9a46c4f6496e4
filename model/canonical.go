package model

// CoverRef points at external cover art. Only URL covers exist today; the
// mime field is reserved for inline covers and always serializes as null.
type CoverRef struct {
	Kind  string  `json:"kind"`
	Value string  `json:"value"`
	Mime  *string `json:"mime"`
}

// NewURLCover builds a CoverRef for a remote image URL.
func NewURLCover(url string) *CoverRef {
	return &CoverRef{Kind: "url", Value: url}
}

// CanonicalSong is the fixed song shape this bridge guarantees regardless of
// which upstream endpoint produced the record.
type CanonicalSong struct {
	SongID     int64     `json:"song_id"`
	Title      string    `json:"title"`
	Artist     *string   `json:"artist"`
	Album      *string   `json:"album"`
	DurationMs *int64    `json:"duration_ms"`
	ExtHint    string    `json:"ext_hint"`
	Cover      *CoverRef `json:"cover"`
	StreamURL  *string   `json:"stream_url"`
	Level      string    `json:"level"`
}

// PlaylistRef carries the numeric upstream playlist id for follow-up calls.
type PlaylistRef struct {
	PlaylistID int64 `json:"playlist_id"`
}

// CanonicalPlaylist is the fixed playlist shape emitted by the bridge.
type CanonicalPlaylist struct {
	Kind        string      `json:"kind"`
	SourceID    string      `json:"source_id"`
	SourceLabel string      `json:"source_label"`
	PlaylistID  string      `json:"playlist_id"`
	Title       string      `json:"title"`
	TrackCount  *int64      `json:"track_count"`
	Cover       *CoverRef   `json:"cover"`
	PlaylistRef PlaylistRef `json:"playlist_ref"`
}
