package castprotocol

// CastStatus represents current Chromecast playback state.
type CastStatus struct {
	PlayerState string  // "PLAYING", "PAUSED", "IDLE", "BUFFERING"
	CurrentTime float32 // Current position in seconds
	Duration    float32 // Total duration in seconds
	Volume      float32
	Muted       bool
	MediaTitle  string
	ContentType string
}

// nearEnd reports whether playback is within the last moments of the media.
func (s *CastStatus) nearEnd() bool {
	return s.Duration > 0 && s.CurrentTime >= s.Duration-1.5
}
