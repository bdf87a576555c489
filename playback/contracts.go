package playback

import "time"

// LocalTransport is the on-device renderer.
type LocalTransport interface {
	Play()
	Pause()
	Seek(to time.Duration)
	CurrentTime() time.Duration
	// Duration reports false until the loaded asset exposes its length.
	Duration() (time.Duration, bool)
	// Loaded reports whether media has been bound to the transport.
	Loaded() bool
}

// SessionStatus is a lifecycle signal delivered by the remote session.
type SessionStatus int

const (
	SessionOther SessionStatus = iota
	SessionStarted
	SessionResumed
	SessionEnded
	SessionFailedToStart
	SessionMediaFinished
)

func (s SessionStatus) String() string {
	switch s {
	case SessionStarted:
		return "started"
	case SessionResumed:
		return "resumed"
	case SessionEnded:
		return "ended"
	case SessionFailedToStart:
		return "failedToStart"
	case SessionMediaFinished:
		return "mediaFinished"
	default:
		return "other"
	}
}

// RemoteSession is the cast receiver collaborator. Every operation is
// asynchronous and calls its completion exactly once, from any goroutine.
type RemoteSession interface {
	AddSessionStatusListener(listener func(SessionStatus))
	HasConnectionEstablished() bool
	StartSelectedItemRemotely(info MediaInformation, at time.Duration, done func(bool))
	PlaySelectedItemRemotely(done func(bool))
	PauseSelectedItemRemotely(done func(bool))
	SeekSelectedItemRemotely(to time.Duration, done func(bool))
	RequestCurrentTime(done func(pos, dur time.Duration, ok bool))
}

// UISink receives progress and affordance updates.
type UISink interface {
	SetSliderValue(v float64)
	SetTimeLabels(current, total string)
	SetAffordance(a Affordance)
	SetBackend(b Backend)
}

// MediaItem describes the bound media. It is never modified here.
type MediaItem struct {
	Name         string
	About        string
	ThumbnailURL string
	VideoURL     string
}

// MediaInformation is the remote start request.
type MediaInformation struct {
	Title        string
	Subtitle     string
	Studio       string
	Duration     time.Duration
	ContentURL   string
	ContentType  string
	StreamType   string
	ThumbnailURL string
}

const StreamTypeBuffered = "BUFFERED"

// BuildMediaInformation builds the remote start request for item.
// ContentType is left for the session to resolve.
func BuildMediaInformation(item MediaItem, studio string, duration time.Duration) MediaInformation {
	return MediaInformation{
		Title:        item.Name,
		Subtitle:     item.About,
		Studio:       studio,
		Duration:     duration,
		ContentURL:   item.VideoURL,
		StreamType:   StreamTypeBuffered,
		ThumbnailURL: item.ThumbnailURL,
	}
}
