package utils

import (
	"net/url"
	"path"
	"strings"

	"github.com/samber/lo"
)

// HLSContentType is what cast receivers expect for HLS playlists.
const HLSContentType = "application/x-mpegURL"

var hlsMimeMarkers = []string{"vnd.apple.mpegurl", "x-mpegurl", "mpegurl"}

// IsHLSStream reports whether mediaURL points at an HLS playlist, judged by
// its extension or, when known, its mime type.
func IsHLSStream(mediaURL, mediaType string) bool {
	if u, err := url.Parse(strings.TrimSpace(mediaURL)); err == nil && u.Path != "" {
		if strings.EqualFold(path.Ext(u.Path), ".m3u8") {
			return true
		}
	}

	mime := strings.ToLower(strings.TrimSpace(mediaType))
	return mime != "" && lo.SomeBy(hlsMimeMarkers, func(m string) bool {
		return strings.Contains(mime, m)
	})
}
