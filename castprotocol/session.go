package castprotocol

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go2tv.app/castplay/playback"
)

const (
	DefaultStatusInterval = time.Second
	// A receiver that misses this many status polls in a row is gone.
	maxStatusFailures = 3
	loadTimeout       = 20 * time.Second
)

// MediaResolver turns the media request into URLs and a content type the
// receiver can fetch.
type MediaResolver interface {
	Resolve(ctx context.Context, info playback.MediaInformation) (LoadRequest, error)
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// Dial creates a client for the selected receiver.
	Dial           func() (Client, error)
	Resolver       MediaResolver
	StatusInterval time.Duration
	Logger         zerolog.Logger
}

// Session is the remote playback session. It reports its lifecycle to
// listeners and runs every receiver command on its own goroutine.
type Session struct {
	mu        sync.Mutex
	client    Client
	listeners []func(playback.SessionStatus)
	stopPoll  context.CancelFunc
	pollDone  chan struct{}

	dial      func() (Client, error)
	resolver  MediaResolver
	pollEvery time.Duration
	Logger    zerolog.Logger
}

var _ playback.RemoteSession = (*Session)(nil)

// NewSession returns a session that is not connected yet.
func NewSession(opts SessionOptions) *Session {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.Resolver == nil {
		opts.Resolver = passthroughResolver{}
	}

	return &Session{
		dial:      opts.Dial,
		resolver:  opts.Resolver,
		pollEvery: opts.StatusInterval,
		Logger:    opts.Logger,
	}
}

// AddSessionStatusListener registers l for lifecycle signals.
func (s *Session) AddSessionStatusListener(l func(playback.SessionStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// HasConnectionEstablished reports whether a receiver is connected.
func (s *Session) HasConnectionEstablished() bool {
	c := s.currentClient()
	return c != nil && c.IsConnected()
}

// Connect opens a session with the receiver and reports started, or
// failedToStart on error.
func (s *Session) Connect(ctx context.Context) error {
	return s.open(ctx, playback.SessionStarted)
}

// Reconnect replaces the current connection and reports resumed, or
// failedToStart on error.
func (s *Session) Reconnect(ctx context.Context) error {
	s.teardown(false)
	return s.open(ctx, playback.SessionResumed)
}

// Disconnect closes the session, stopping media on the receiver, and
// reports ended. It is a no-op when not connected.
func (s *Session) Disconnect() {
	if s.teardown(true) {
		s.emit(playback.SessionEnded)
	}
}

func (s *Session) open(ctx context.Context, status playback.SessionStatus) error {
	if s.dial == nil {
		s.emit(playback.SessionFailedToStart)
		return errors.New("session: no receiver selected")
	}

	if err := ctx.Err(); err != nil {
		s.emit(playback.SessionFailedToStart)
		return err
	}

	c, err := s.dial()
	if err == nil {
		err = c.Connect()
	}
	if err != nil {
		s.Logger.Error().Str("Method", "open").Err(err).Msg("receiver connection failed")
		s.emit(playback.SessionFailedToStart)
		return err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.client = c
	s.stopPoll = cancel
	s.pollDone = done
	s.mu.Unlock()

	go s.monitor(pollCtx, c, done)

	s.Logger.Info().Str("Method", "open").Str("Status", status.String()).Msg("receiver connected")
	s.emit(status)
	return nil
}

// teardown closes the current client. It reports whether there was one.
func (s *Session) teardown(stopMedia bool) bool {
	s.mu.Lock()
	c, cancel, done := s.client, s.stopPoll, s.pollDone
	s.client, s.stopPoll, s.pollDone = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if c == nil {
		return false
	}

	if err := c.Close(stopMedia); err != nil {
		s.Logger.Warn().Str("Method", "teardown").Err(err).Msg("close failed")
	}
	return true
}

func (s *Session) currentClient() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Session) emit(status playback.SessionStatus) {
	s.mu.Lock()
	listeners := append([]func(playback.SessionStatus){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(status)
	}
}

// monitor polls the receiver, turning a lost receiver into ended and the
// end of the media into mediaFinished.
func (s *Session) monitor(ctx context.Context, c Client, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	var (
		failures  int
		lastState string
		finished  bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := c.GetStatus()
		if err != nil {
			failures++
			s.Logger.Debug().Str("Method", "monitor").Int("Failures", failures).Err(err).Msg("status poll failed")
			if failures >= maxStatusFailures {
				s.lost(c)
				return
			}
			continue
		}
		failures = 0

		ended := (lastState == "PLAYING" && st.PlayerState == "IDLE") ||
			(st.PlayerState == "PLAYING" && st.nearEnd())
		switch {
		case ended && !finished:
			finished = true
			s.emit(playback.SessionMediaFinished)
		case st.PlayerState == "PLAYING" && !st.nearEnd():
			finished = false
		}
		lastState = st.PlayerState
	}
}

// lost drops c if it is still the current client and reports ended.
func (s *Session) lost(c Client) {
	s.mu.Lock()
	if s.client != c {
		s.mu.Unlock()
		return
	}
	s.client, s.stopPoll, s.pollDone = nil, nil, nil
	s.mu.Unlock()

	_ = c.Close(false)
	s.Logger.Warn().Str("Method", "monitor").Msg("receiver stopped answering")
	s.emit(playback.SessionEnded)
}

// async runs op on its own goroutine and reports its outcome exactly once.
func (s *Session) async(method string, op func(c Client) error, done func(bool)) {
	c := s.currentClient()
	if c == nil {
		s.Logger.Debug().Str("Method", method).Msg("no receiver connected")
		go done(false)
		return
	}

	go func() {
		err := op(c)
		if err != nil {
			s.Logger.Warn().Str("Method", method).Err(err).Msg("receiver command failed")
		}
		done(err == nil)
	}()
}

// StartSelectedItemRemotely loads the media on the receiver at position at.
func (s *Session) StartSelectedItemRemotely(info playback.MediaInformation, at time.Duration, done func(bool)) {
	s.async("StartSelectedItemRemotely", func(c Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		req, err := s.resolver.Resolve(ctx, info)
		if err != nil {
			return err
		}
		req.StartTime = at.Seconds()

		return c.Load(ctx, req)
	}, done)
}

func (s *Session) PlaySelectedItemRemotely(done func(bool)) {
	s.async("PlaySelectedItemRemotely", Client.Play, done)
}

func (s *Session) PauseSelectedItemRemotely(done func(bool)) {
	s.async("PauseSelectedItemRemotely", Client.Pause, done)
}

func (s *Session) SeekSelectedItemRemotely(to time.Duration, done func(bool)) {
	s.async("SeekSelectedItemRemotely", func(c Client) error {
		return c.Seek(int(to.Seconds()))
	}, done)
}

// RequestCurrentTime asks the receiver for its position and duration.
func (s *Session) RequestCurrentTime(done func(pos, dur time.Duration, ok bool)) {
	c := s.currentClient()
	if c == nil {
		go done(0, 0, false)
		return
	}

	go func() {
		st, err := c.GetStatus()
		if err != nil {
			done(0, 0, false)
			return
		}
		done(seconds(st.CurrentTime), seconds(st.Duration), true)
	}()
}

func seconds(f float32) time.Duration {
	return time.Duration(float64(f) * float64(time.Second))
}

type passthroughResolver struct{}

func (passthroughResolver) Resolve(_ context.Context, info playback.MediaInformation) (LoadRequest, error) {
	return LoadRequest{
		URL:          info.ContentURL,
		ContentType:  info.ContentType,
		StreamType:   info.StreamType,
		Duration:     info.Duration.Seconds(),
		Title:        info.Title,
		Subtitle:     info.Subtitle,
		Studio:       info.Studio,
		ThumbnailURL: info.ThumbnailURL,
	}, nil
}
