package utils

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Smallest header filetype recognises as MP4.
var mp4Head = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00}

func TestGetMimeDetailsFromFile(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr bool
	}{
		{"mp4", mp4Head, "video/mp4", false},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}, "image/png", false},
		{"unknown", []byte("plain text, nothing to see"), "", true},
		{"empty", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetMimeDetailsFromFile(io.NopCloser(bytes.NewReader(tt.input)))
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetMimeDetailsFromFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("GetMimeDetailsFromFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetMimeDetailsFromURLUsesHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm; charset=binary")
	}))
	defer srv.Close()

	got, err := GetMimeDetailsFromURL(context.Background(), srv.URL+"/a.webm")
	if err != nil {
		t.Fatalf("GetMimeDetailsFromURL() error = %v", err)
	}
	if got != "video/webm" {
		t.Fatalf("GetMimeDetailsFromURL() = %q, want video/webm", got)
	}
}

func TestGetMimeDetailsFromURLSniffs(t *testing.T) {
	var ranges []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		if r.Method == http.MethodGet {
			ranges = append(ranges, r.Header.Get("Range"))
			w.Write(mp4Head)
		}
	}))
	defer srv.Close()

	got, err := GetMimeDetailsFromURL(context.Background(), srv.URL+"/blob")
	if err != nil {
		t.Fatalf("GetMimeDetailsFromURL() error = %v", err)
	}
	if got != "video/mp4" {
		t.Fatalf("GetMimeDetailsFromURL() = %q, want video/mp4", got)
	}
	if len(ranges) != 1 || ranges[0] != "bytes=0-260" {
		t.Fatalf("unexpected range requests %v", ranges)
	}
}

func TestMimeFromExtension(t *testing.T) {
	tests := map[string]string{
		"movie.MP4":  "video/mp4",
		"song.mp3":   "audio/mpeg",
		"noext":      "video/mp4",
		"cover.jpeg": "image/jpeg",
	}

	for in, want := range tests {
		if got := MimeFromExtension(in); got != want {
			t.Errorf("MimeFromExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
