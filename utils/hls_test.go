package utils

import "testing"

func TestIsHLSStream(t *testing.T) {
	tt := []struct {
		name      string
		mediaURL  string
		mediaType string
		want      bool
	}{
		{"playlist extension", "https://example.com/live/playlist.m3u8", "", true},
		{"extension with query", "https://example.com/live/playlist.M3U8?token=abc", "", true},
		{"local playlist", "/media/show/index.m3u8", "", true},
		{"apple mime", "https://example.com/live", "application/vnd.apple.mpegurl", true},
		{"x-mpegurl mime", "https://example.com/live", "application/x-mpegURL", true},
		{"mp4", "https://example.com/video.mp4", "video/mp4", false},
		{"empty", "", "", false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsHLSStream(tc.mediaURL, tc.mediaType); got != tc.want {
				t.Fatalf("IsHLSStream(%q, %q) = %t, want %t", tc.mediaURL, tc.mediaType, got, tc.want)
			}
		})
	}
}
