// Package castprotocol drives a Chromecast receiver and exposes it as a
// remote playback session.
package castprotocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vishen/go-chromecast/application"
	"github.com/vishen/go-chromecast/cast"
)

// DefaultPort is the Chromecast control port.
const DefaultPort = 8009

var ErrNotConnected = errors.New("chromecast: not connected")

// Client is the subset of receiver control the session needs.
type Client interface {
	Connect() error
	Load(ctx context.Context, req LoadRequest) error
	Play() error
	Pause() error
	Seek(seconds int) error
	GetStatus() (*CastStatus, error)
	Close(stopMedia bool) error
	IsConnected() bool
}

// CastClient wraps go-chromecast Application for simplified API.
type CastClient struct {
	app       *application.Application
	conn      cast.Conn // kept for requests the library does not offer
	mu        sync.RWMutex
	host      string
	port      int
	connected bool
	Logger    zerolog.Logger
}

var _ Client = (*CastClient)(nil)

// NewCastClient prepares a client for the receiver at addr, given as host
// or host:port.
func NewCastClient(addr string) (*CastClient, error) {
	host, port, err := splitDeviceAddr(addr)
	if err != nil {
		return nil, err
	}

	conn := cast.NewConnection()
	app := application.NewApplication(
		application.WithConnection(conn),
		// Sleeping TVs take a few attempts to accept the connection.
		application.WithConnectionRetries(3),
	)

	return &CastClient{
		app:    app,
		conn:   conn,
		host:   host,
		port:   port,
		Logger: zerolog.Nop(),
	}, nil
}

func splitDeviceAddr(addr string) (string, int, error) {
	if addr == "" {
		return "", 0, errors.New("parse device addr: empty address")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port given.
		return addr, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("parse device addr: bad port %q", portStr)
	}
	return host, port, nil
}

// Connect establishes connection to the Chromecast device.
func (c *CastClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logger.Debug().Str("Method", "Connect").Str("Host", c.host).Int("Port", c.port).Msg("connecting")
	if err := c.app.Start(c.host, c.port); err != nil {
		c.Logger.Error().Str("Method", "Connect").Err(err).Msg("connection failed")
		return fmt.Errorf("chromecast connect: %w", err)
	}
	c.connected = true
	c.Logger.Debug().Str("Method", "Connect").Msg("connected successfully")
	return nil
}

// Load launches the default media receiver and loads req onto it.
func (c *CastClient) Load(ctx context.Context, req LoadRequest) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.Logger.Debug().Str("Method", "Load").Str("URL", req.URL).Str("ContentType", req.ContentType).Float64("StartTime", req.StartTime).Float64("Duration", req.Duration).Msg("loading media")

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := LaunchDefaultReceiver(c.conn); err != nil {
		c.Logger.Error().Str("Method", "Load").Err(err).Msg("launch receiver failed")
		return fmt.Errorf("launch receiver: %w", err)
	}

	transportId, err := c.waitForTransport(ctx)
	if err != nil {
		c.Logger.Error().Str("Method", "Load").Err(err).Msg("media receiver did not come up")
		return err
	}

	if err := LoadWithMetadata(c.conn, transportId, req); err != nil {
		c.Logger.Error().Str("Method", "Load").Err(err).Msg("failed")
		return err
	}

	c.Logger.Debug().Str("Method", "Load").Str("TransportId", transportId).Msg("load sent")
	return nil
}

// waitForTransport polls the receiver until the launched app reports its
// transport id or ctx is done.
func (c *CastClient) waitForTransport(ctx context.Context) (string, error) {
	wait := 250 * time.Millisecond

	for {
		if err := c.app.Update(); err == nil {
			if app := c.app.App(); app != nil && app.TransportId != "" {
				return app.TransportId, nil
			}
		} else {
			c.Logger.Debug().Str("Method", "waitForTransport").Err(err).Msg("app.Update")
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for media receiver: %w", ctx.Err())
		case <-time.After(wait):
		}
		if wait < 2*time.Second {
			wait *= 2
		}
	}
}

// Play resumes playback.
func (c *CastClient) Play() error {
	return c.mediaCommand("Play", c.app.Unpause)
}

// Pause pauses playback.
func (c *CastClient) Pause() error {
	return c.mediaCommand("Pause", c.app.Pause)
}

// Stop stops playback and closes the media session.
func (c *CastClient) Stop() error {
	return c.mediaCommand("Stop", c.app.Stop)
}

// Seek seeks to position in seconds from start.
func (c *CastClient) Seek(seconds int) error {
	return c.mediaCommand("Seek", func() error { return c.app.SeekFromStart(seconds) })
}

// SetVolume sets volume (0.0 to 1.0).
func (c *CastClient) SetVolume(level float32) error {
	return c.mediaCommand("SetVolume", func() error { return c.app.SetVolume(level) })
}

// SetMuted sets mute state.
func (c *CastClient) SetMuted(muted bool) error {
	return c.mediaCommand("SetMuted", func() error { return c.app.SetMuted(muted) })
}

// mediaCommand refreshes the media session first, the library needs the
// session id assigned by the receiver after our own LOAD.
func (c *CastClient) mediaCommand(method string, cmd func() error) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logger.Debug().Str("Method", method).Msg("sending")
	if err := c.app.Update(); err != nil {
		c.Logger.Error().Str("Method", method).Err(err).Msg("app.Update failed")
		return err
	}

	if err := cmd(); err != nil {
		c.Logger.Error().Str("Method", method).Err(err).Msg("failed")
		return err
	}
	return nil
}

// GetStatus returns current playback status.
func (c *CastClient) GetStatus() (*CastStatus, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	if err := c.app.Update(); err != nil {
		c.Logger.Error().Str("Method", "GetStatus").Err(err).Msg("app.Update failed")
		return nil, err
	}

	_, media, vol := c.app.Status()
	status := &CastStatus{PlayerState: "IDLE"}
	if vol != nil {
		status.Volume = float32(vol.Level)
		status.Muted = vol.Muted
	}
	if media != nil {
		status.PlayerState = media.PlayerState
		status.CurrentTime = media.CurrentTime
		if media.Media.Duration > 0 {
			status.Duration = media.Media.Duration
		}
		status.ContentType = media.Media.ContentType
		status.MediaTitle = media.Media.Metadata.Title
	}
	return status, nil
}

// Close disconnects from the Chromecast device.
func (c *CastClient) Close(stopMedia bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logger.Debug().Str("Method", "Close").Bool("StopMedia", stopMedia).Msg("closing connection")
	c.connected = false
	if err := c.app.Close(stopMedia); err != nil {
		c.Logger.Error().Str("Method", "Close").Err(err).Msg("failed")
		return err
	}
	return nil
}

// IsConnected returns whether client is connected.
func (c *CastClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Addr returns host:port of the receiver.
func (c *CastClient) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}
