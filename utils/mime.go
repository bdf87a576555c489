package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	probeHTTPClientTimeout         = 20 * time.Second
	probeHTTPDialTimeout           = 5 * time.Second
	probeHTTPKeepAlive             = 30 * time.Second
	probeHTTPTLSHandshakeTimeout   = 5 * time.Second
	probeHTTPResponseHeaderTimeout = 10 * time.Second
	probeHTTPIdleConnTimeout       = 90 * time.Second

	// filetype only needs the first 261 bytes to match.
	sniffLen = 261
)

var probeHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   probeHTTPDialTimeout,
		KeepAlive: probeHTTPKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   probeHTTPTLSHandshakeTimeout,
	ResponseHeaderTimeout: probeHTTPResponseHeaderTimeout,
	IdleConnTimeout:       probeHTTPIdleConnTimeout,
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout:   probeHTTPClientTimeout,
		Transport: probeHTTPTransport,
	}

	return retryClient.StandardClient()
}

// GetMimeDetailsFromFile sniffs the mime type of f from its header.
func GetMimeDetailsFromFile(f io.ReadCloser) (string, error) {
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("GetMimeDetailsFromFile read error: %w", err)
	}

	return matchHead(head[:n])
}

// GetMimeDetailsFromURL asks the server for the content type of u. When the
// server does not name a usable type, the first bytes are sniffed instead.
func GetMimeDetailsFromURL(ctx context.Context, u string) (string, error) {
	client := newRetryableHTTPClient(2)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return "", fmt.Errorf("GetMimeDetailsFromURL request error: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GetMimeDetailsFromURL HEAD error: %w", err)
	}
	resp.Body.Close()

	if ct := normalizeContentType(resp.Header.Get("Content-Type")); usableContentType(ct) {
		return ct, nil
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("GetMimeDetailsFromURL request error: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sniffLen-1))

	resp, err = client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GetMimeDetailsFromURL GET error: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return "", fmt.Errorf("GetMimeDetailsFromURL bad status: %s", resp.Status)
	}

	return GetMimeDetailsFromFile(resp.Body)
}

var castMimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".m3u8": "application/x-mpegurl",
}

// MimeFromExtension is the last resort when nothing can be sniffed.
func MimeFromExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := castMimeTypes[ext]; ok {
		return ct
	}

	if ct := normalizeContentType(mime.TypeByExtension(ext)); ct != "" {
		return ct
	}
	return "video/mp4"
}

func matchHead(head []byte) (string, error) {
	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("GetMimeDetailsFromFile match error: %w", err)
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("GetMimeDetailsFromFile: unknown file type")
	}

	return fmt.Sprintf("%s/%s", kind.MIME.Type, kind.MIME.Subtype), nil
}

func normalizeContentType(v string) string {
	if v == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func usableContentType(ct string) bool {
	if ct == "" || ct == "application/octet-stream" {
		return false
	}
	return strings.HasPrefix(ct, "video/") ||
		strings.HasPrefix(ct, "audio/") ||
		strings.HasPrefix(ct, "image/") ||
		ct == "application/x-mpegurl" ||
		ct == "application/vnd.apple.mpegurl"
}
