// Package httphandlers serves local media files to cast receivers, which
// can only fetch media over HTTP.
package httphandlers

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go2tv.app/castplay/utils"
)

// HTTPserver - new http.Server instance.
type HTTPserver struct {
	http     *http.Server
	Mux      *http.ServeMux
	handlers map[string]servedFile
	addr     string
	mu       sync.Mutex
	Logger   zerolog.Logger
}

type servedFile struct {
	path      string
	mediaType string
}

// NewServer returns a server that will listen on a once started.
func NewServer(a string) *HTTPserver {
	mux := http.NewServeMux()
	srv := &HTTPserver{
		http:     &http.Server{Addr: a, Handler: mux},
		Mux:      mux,
		handlers: make(map[string]servedFile),
		addr:     a,
		Logger:   zerolog.Nop(),
	}
	mux.HandleFunc("/", srv.ServeMediaHandler())

	return srv
}

// AddHandler serves file under path with the given content type.
func (s *HTTPserver) AddHandler(path, file, mediaType string) {
	s.mu.Lock()
	s.handlers[path] = servedFile{path: file, mediaType: mediaType}
	s.mu.Unlock()
}

// RemoveHandler stops serving path.
func (s *HTTPserver) RemoveHandler(path string) {
	s.mu.Lock()
	delete(s.handlers, path)
	s.mu.Unlock()
}

// Publish serves file under a fresh random path and returns its URL.
func (s *HTTPserver) Publish(file, mediaType string) (string, error) {
	prefix, err := utils.RandomString()
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}

	path := "/" + prefix + "/" + utils.ConvertFilename(file)
	s.AddHandler(path, file, mediaType)

	return "http://" + s.Addr() + path, nil
}

// Addr is the address the server listens on. Before StartServer it is the
// requested address.
func (s *HTTPserver) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// StartServer listens and serves until StopServer. The listen result is
// reported on serverStarted before serving begins.
func (s *HTTPserver) StartServer(serverStarted chan<- error) {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		serverStarted <- fmt.Errorf("server listen error: %w", err)
		return
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.Logger.Debug().Str("Method", "StartServer").Str("Addr", ln.Addr().String()).Msg("media server listening")
	serverStarted <- nil

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.Logger.Error().Str("Method", "StartServer").Err(err).Msg("media server stopped")
	}
}

// ServeMediaHandler serves registered files with range and HEAD support.
func (s *HTTPserver) ServeMediaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		out, exists := s.handlers[r.URL.Path]
		s.mu.Unlock()

		if !exists {
			http.Error(w, "not exists", http.StatusNotFound)
			return
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		m, err := os.Open(out.path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer m.Close()

		info, err := m.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}

		// The default receiver fetches media cross-origin.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if out.mediaType != "" {
			w.Header().Set("Content-Type", out.mediaType)
		}

		s.Logger.Debug().Str("Method", "ServeMediaHandler").Str("Path", r.URL.Path).Str("Range", r.Header.Get("Range")).Msg("serving media")
		http.ServeContent(w, r, strings.TrimLeft(r.URL.Path, "/"), info.ModTime(), m)
	}
}

// StopServer forcefully closes the HTTP server.
func (s *HTTPserver) StopServer() {
	s.http.Close()
}
