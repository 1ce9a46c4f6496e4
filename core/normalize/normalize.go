// Package normalize converts the upstream API's heterogeneous song and
// playlist records into the bridge's canonical schema. Every transform is
// total: malformed records come back nil and are dropped by callers, never
// surfaced as errors.
package normalize

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"ncmbridge/model"
)

// Song converts one raw upstream song record. Returns nil when the record
// has no usable identifier. streamURL may be empty; level is passed through.
func Song(raw map[string]interface{}, level string, streamURL string) *model.CanonicalSong {
	id, ok := numField(raw, "id")
	if !ok || id <= 0 {
		return nil
	}
	songID := int64(id)

	title, ok := strField(raw, "name")
	if !ok {
		title = fmt.Sprintf("Song %d", songID)
	}

	song := &model.CanonicalSong{
		SongID:  songID,
		Title:   title,
		ExtHint: "mp3",
		Level:   level,
	}

	if artist := artistNames(raw); artist != "" {
		song.Artist = &artist
	}
	if album := albumName(raw); album != "" {
		song.Album = &album
	}
	// Millisecond field wins over the alternate; first finite value, no
	// unit conversion.
	if dt, ok := numField(raw, "dt"); ok {
		ms := int64(dt)
		song.DurationMs = &ms
	} else if dur, ok := numField(raw, "duration"); ok {
		ms := int64(dur)
		song.DurationMs = &ms
	}
	if streamURL != "" {
		song.StreamURL = &streamURL
		song.ExtHint = GuessExtension(streamURL, "mp3")
	}
	if cover := songCoverURL(raw); cover != "" {
		song.Cover = model.NewURLCover(cover)
	}

	return song
}

// Playlist converts one raw upstream playlist record. Returns nil when the
// record has no usable identifier.
func Playlist(raw map[string]interface{}, sourceLabel string) *model.CanonicalPlaylist {
	id, ok := numField(raw, "id")
	if !ok || id <= 0 {
		return nil
	}
	playlistID := int64(id)

	title := ""
	if name, ok := strField(raw, "name"); ok {
		title = strings.TrimSpace(name)
	}
	if title == "" {
		title = fmt.Sprintf("Playlist %d", playlistID)
	}
	if sourceLabel == "" {
		sourceLabel = "Netease Cloud Music"
	}

	playlist := &model.CanonicalPlaylist{
		Kind:        "playlist",
		SourceID:    "netease",
		SourceLabel: sourceLabel,
		PlaylistID:  fmt.Sprintf("%d", playlistID),
		Title:       title,
		PlaylistRef: model.PlaylistRef{PlaylistID: playlistID},
	}

	if count, ok := numField(raw, "trackCount"); ok {
		n := int64(count)
		playlist.TrackCount = &n
	}
	if cover, ok := strField(raw, "coverImgUrl"); ok {
		if trimmed := strings.TrimSpace(cover); trimmed != "" {
			playlist.Cover = model.NewURLCover(trimmed)
		}
	}

	return playlist
}

// GuessExtension derives a lowercase extension hint (no leading dot) from
// the URL's path. Any parse failure or missing extension yields the
// fallback unmodified; this never fails.
func GuessExtension(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallback
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return fallback
	}
	return ext
}

// artistNames prefers the artist-object list, joining non-empty names with
// " / ", and falls back to the flat artist string field.
func artistNames(raw map[string]interface{}) string {
	if list, ok := raw["ar"].([]interface{}); ok {
		names := make([]string, 0, len(list))
		for _, item := range list {
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if name, ok := strField(entry, "name"); ok {
				names = append(names, name)
			}
		}
		return strings.Join(names, " / ")
	}
	if artist, ok := strField(raw, "artist"); ok {
		return artist
	}
	return ""
}

// albumName prefers the nested album-object name over the flat album field.
func albumName(raw map[string]interface{}) string {
	if album, ok := raw["al"].(map[string]interface{}); ok {
		if name, ok := strField(album, "name"); ok {
			return name
		}
	}
	if name, ok := strField(raw, "album"); ok {
		return name
	}
	return ""
}

// songCoverURL prefers the nested album-object picture over the flat album
// object's picture.
func songCoverURL(raw map[string]interface{}) string {
	if album, ok := raw["al"].(map[string]interface{}); ok {
		if pic, ok := strField(album, "picUrl"); ok {
			return strings.TrimSpace(pic)
		}
	}
	if album, ok := raw["album"].(map[string]interface{}); ok {
		if pic, ok := strField(album, "picUrl"); ok {
			return strings.TrimSpace(pic)
		}
	}
	return ""
}

func strField(m map[string]interface{}, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func numField(m map[string]interface{}, key string) (float64, bool) {
	switch n := m[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
