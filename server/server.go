// Package server is the beam development preview server. Every .beam page
// under the templates root is served as HTML, recompiled when it changes.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sambeau/beam/config"
	"github.com/sambeau/beam/pkg/beam"
)

// Server represents a beam preview server instance.
type Server struct {
	config     *config.Config
	configPath string
	registry   *beam.Registry
	stdout     io.Writer
	stderr     io.Writer
	mux        *http.ServeMux
	server     *http.Server
	pages      *pageCache
	watcher    *Watcher

	changeSeq atomic.Uint64 // incremented on each change, polled by live reload

	mu   sync.RWMutex
	data map[string]any
}

// New creates a preview server. Pages resolve components from registry.
func New(cfg *config.Config, configPath string, registry *beam.Registry, stdout, stderr io.Writer) (*Server, error) {
	s := &Server{
		config:     cfg,
		configPath: configPath,
		registry:   registry,
		stdout:     stdout,
		stderr:     stderr,
		mux:        http.NewServeMux(),
		pages:      newPageCache(),
	}
	if err := s.loadData(); err != nil {
		return nil, err
	}

	s.mux.Handle("/__livereload", newLiveReloadHandler(s))
	s.mux.Handle("/", &pageHandler{server: s})
	return s, nil
}

func (s *Server) loadData() error {
	data := map[string]any{}
	if s.config.Data != "" {
		var err error
		if data, err = config.LoadData(s.config.Data); err != nil {
			return fmt.Errorf("loading data: %w", err)
		}
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// vars returns a fresh scope holding the data file values.
func (s *Server) vars() beam.Vars {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vars := make(beam.Vars, len(s.data)+1)
	for k, v := range s.data {
		vars[k] = v
	}
	return vars
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = injectLiveReload(handler)
	handler = newCompressionHandler(handler, s.config.Serve.Compression)
	if !s.config.Logging.Quiet {
		handler = newRequestLogger(handler, s.stdout, s.config.Logging.Format)
	}
	return handler
}

// HandleChange reacts to a changed file: pages are recompiled on their next
// request, the data file is reloaded, and browsers are told to reload.
func (s *Server) HandleChange(path string) {
	s.pages.invalidate(path)
	if s.config.Data != "" && sameFile(path, s.config.Data) {
		if err := s.loadData(); err != nil {
			s.logError("%v", err)
		}
	}
	s.changeSeq.Add(1)
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.listenAddr()

	watcher, err := NewWatcher(s.config, s.configPath, s.HandleChange, s.stdout, s.stderr)
	if err != nil {
		s.logError("failed to create watcher: %v", err)
	} else {
		s.watcher = watcher
		if err := s.watcher.Start(ctx); err != nil {
			s.logError("failed to start watcher: %v", err)
		}
		defer s.watcher.Close()
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(s.stdout, "Serving %s on http://%s\n", s.config.Root(), addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// listenAddr returns the address to listen on based on configuration.
func (s *Server) listenAddr() string {
	host := s.config.Serve.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%d", host, s.config.Serve.Port)
}

func (s *Server) logInfo(format string, args ...any) {
	fmt.Fprintf(s.stdout, "[SERVE] "+format+"\n", args...)
}

func (s *Server) logError(format string, args ...any) {
	fmt.Fprintf(s.stderr, "[SERVE ERROR] "+format+"\n", args...)
}
