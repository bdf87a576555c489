package castprotocol

import (
	"fmt"
	"sync/atomic"

	"github.com/vishen/go-chromecast/cast"
)

const (
	defaultSender   = "sender-0"
	defaultReceiver = "receiver-0"

	namespaceConn     = "urn:x-cast:com.google.cast.tp.connection"
	namespaceReceiver = "urn:x-cast:com.google.cast.receiver"
	namespaceMedia    = "urn:x-cast:com.google.cast.media"

	// DefaultMediaReceiver is the app id of Google's styled media receiver.
	DefaultMediaReceiver = "CC1AD845"

	metadataTypeMovie = 1
)

var requestIDCounter int32

func nextRequestID() int {
	return int(atomic.AddInt32(&requestIDCounter, 1))
}

// HeaderPayload is a bare typed request such as CONNECT.
type HeaderPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId,omitempty"`
}

func (p *HeaderPayload) SetRequestId(id int) { p.RequestId = id }

// LaunchPayload asks the receiver device to start an app.
type LaunchPayload struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId"`
	AppId     string `json:"appId"`
}

func (p *LaunchPayload) SetRequestId(id int) { p.RequestId = id }

// MediaImage is an artwork reference in media metadata.
type MediaImage struct {
	URL string `json:"url"`
}

// MediaMeta is the generic/movie metadata shown by the receiver.
type MediaMeta struct {
	MetadataType int          `json:"metadataType"`
	Title        string       `json:"title,omitempty"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Studio       string       `json:"studio,omitempty"`
	Images       []MediaImage `json:"images,omitempty"`
}

// MediaItem is the media block of a LOAD request.
type MediaItem struct {
	ContentId   string     `json:"contentId"`
	ContentType string     `json:"contentType"`
	StreamType  string     `json:"streamType"`
	Duration    float64    `json:"duration,omitempty"`
	Metadata    *MediaMeta `json:"metadata,omitempty"`
}

// LoadPayload is a LOAD request carrying metadata, which the library's
// own load command does not send.
type LoadPayload struct {
	Type        string    `json:"type"`
	RequestId   int       `json:"requestId"`
	Media       MediaItem `json:"media"`
	CurrentTime float64   `json:"currentTime"`
	Autoplay    bool      `json:"autoplay"`
}

func (p *LoadPayload) SetRequestId(id int) { p.RequestId = id }

var (
	_ cast.Payload = (*HeaderPayload)(nil)
	_ cast.Payload = (*LaunchPayload)(nil)
	_ cast.Payload = (*LoadPayload)(nil)
)

// LoadRequest describes what the receiver should play.
type LoadRequest struct {
	URL          string
	ContentType  string
	StreamType   string
	StartTime    float64
	Duration     float64
	Title        string
	Subtitle     string
	Studio       string
	ThumbnailURL string
}

func newLoadPayload(req LoadRequest) *LoadPayload {
	meta := &MediaMeta{
		MetadataType: metadataTypeMovie,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Studio:       req.Studio,
	}
	if req.ThumbnailURL != "" {
		meta.Images = []MediaImage{{URL: req.ThumbnailURL}}
	}

	streamType := req.StreamType
	if streamType == "" {
		streamType = "BUFFERED"
	}

	return &LoadPayload{
		Type: "LOAD",
		Media: MediaItem{
			ContentId:   req.URL,
			ContentType: req.ContentType,
			StreamType:  streamType,
			Duration:    req.Duration,
			Metadata:    meta,
		},
		CurrentTime: req.StartTime,
		Autoplay:    true,
	}
}

func send(conn cast.Conn, payload cast.Payload, dest, namespace string) error {
	id := nextRequestID()
	payload.SetRequestId(id)

	if err := conn.Send(id, payload, defaultSender, dest, namespace); err != nil {
		return fmt.Errorf("send to %s: %w", dest, err)
	}
	return nil
}

// LaunchDefaultReceiver starts the default media receiver app.
func LaunchDefaultReceiver(conn cast.Conn) error {
	return send(conn, &LaunchPayload{Type: "LAUNCH", AppId: DefaultMediaReceiver}, defaultReceiver, namespaceReceiver)
}

// LoadWithMetadata opens a virtual connection to the media receiver app at
// transportId and sends it a LOAD request.
func LoadWithMetadata(conn cast.Conn, transportId string, req LoadRequest) error {
	if err := send(conn, &HeaderPayload{Type: "CONNECT"}, transportId, namespaceConn); err != nil {
		return fmt.Errorf("connect to media receiver: %w", err)
	}

	if err := send(conn, newLoadPayload(req), transportId, namespaceMedia); err != nil {
		return fmt.Errorf("load with metadata: %w", err)
	}
	return nil
}
