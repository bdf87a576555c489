package castprotocol

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"go2tv.app/castplay/httphandlers"
	"go2tv.app/castplay/playback"
	"go2tv.app/castplay/utils"
)

// Publisher resolves media for a receiver. Remote URLs are passed through,
// local files are served over HTTP on the interface that reaches the
// receiver.
type Publisher struct {
	mu        sync.Mutex
	receiver  string
	server    *httphandlers.HTTPserver
	published map[string]string
	Logger    zerolog.Logger

	listenAddr func(target string) (string, error)
}

var _ MediaResolver = (*Publisher)(nil)

// NewPublisher returns a resolver for the receiver at receiverAddr
// (host:port).
func NewPublisher(receiverAddr string) *Publisher {
	return &Publisher{
		receiver:   receiverAddr,
		published:  make(map[string]string),
		Logger:     zerolog.Nop(),
		listenAddr: utils.ListenAddrFor,
	}
}

// Resolve fills in fetchable URLs and the content type.
func (p *Publisher) Resolve(ctx context.Context, info playback.MediaInformation) (LoadRequest, error) {
	req, _ := passthroughResolver{}.Resolve(ctx, info)

	mediaURL, err := p.publish(info.ContentURL)
	if err != nil {
		return LoadRequest{}, err
	}
	req.URL = mediaURL

	if req.ContentType == "" {
		req.ContentType = p.contentType(ctx, info.ContentURL)
	}

	if info.ThumbnailURL != "" {
		thumb, err := p.publish(info.ThumbnailURL)
		if err != nil {
			// Artwork is optional.
			p.Logger.Warn().Str("Method", "Resolve").Err(err).Msg("thumbnail not served")
			thumb = ""
		}
		req.ThumbnailURL = thumb
	}

	return req, nil
}

func (p *Publisher) publish(source string) (string, error) {
	if utils.IsURL(source) {
		return source, nil
	}

	if _, err := os.Stat(source); err != nil {
		return "", fmt.Errorf("publish %s: %w", source, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if u, ok := p.published[source]; ok {
		return u, nil
	}

	if p.server == nil {
		addr, err := p.listenAddr(p.receiver)
		if err != nil {
			return "", fmt.Errorf("publish: %w", err)
		}

		srv := httphandlers.NewServer(addr)
		srv.Logger = p.Logger
		started := make(chan error)
		go srv.StartServer(started)
		if err := <-started; err != nil {
			return "", fmt.Errorf("publish: %w", err)
		}
		p.server = srv
	}

	u, err := p.server.Publish(source, utils.MimeFromExtension(source))
	if err != nil {
		return "", err
	}
	p.published[source] = u

	p.Logger.Debug().Str("Method", "publish").Str("Source", source).Str("URL", u).Msg("serving local file")
	return u, nil
}

func (p *Publisher) contentType(ctx context.Context, source string) string {
	var (
		ct  string
		err error
	)

	if utils.IsHLSStream(source, "") {
		return utils.HLSContentType
	}

	if utils.IsURL(source) {
		ct, err = utils.GetMimeDetailsFromURL(ctx, source)
	} else {
		var f *os.File
		if f, err = os.Open(source); err == nil {
			ct, err = utils.GetMimeDetailsFromFile(f)
		}
	}

	if err != nil || ct == "" {
		p.Logger.Debug().Str("Method", "contentType").Str("Source", source).Err(err).Msg("falling back to extension")
		return utils.MimeFromExtension(source)
	}
	return ct
}

// Close stops the media server, if one was started.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		p.server.StopServer()
		p.server = nil
	}
	p.published = make(map[string]string)
}
