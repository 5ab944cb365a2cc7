package server

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sambeau/beam/pkg/beam"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/escape"
)

// pageHandler renders the .beam file a URL maps to: /about is about.beam or
// about/index.beam, and / is index.beam.
type pageHandler struct {
	server *Server
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, ok := h.server.resolvePage(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	tmpl, err := h.server.pages.get(file, h.server.compilePage)
	if err == nil {
		var ui beam.UI
		vars := h.server.vars()
		vars["request"] = requestVars(r)
		if ui, err = tmpl.Execute(vars); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			ui.WriteTo(w)
			return
		}
	}

	h.server.logError("%s: %v", file, err)
	writeErrorPage(w, err)
}

func requestVars(r *http.Request) map[string]any {
	query := make(map[string]any, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		query[k] = v[0]
	}
	return map[string]any{
		"path":   r.URL.Path,
		"method": r.Method,
		"query":  query,
	}
}

// resolvePage maps a URL path to a selected .beam file under the root.
func (s *Server) resolvePage(urlPath string) (string, bool) {
	clean := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	var candidates []string
	if clean == "" {
		candidates = []string{"index.beam"}
	} else {
		candidates = []string{clean + ".beam", clean + "/index.beam"}
	}

	root := s.config.Root()
	for _, rel := range candidates {
		if !s.config.Matches(rel) {
			continue
		}
		file := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			return file, true
		}
	}
	return "", false
}

// compilePage compiles file and picks its page template: the one named after
// the file, or else the first definition.
func (s *Server) compilePage(file string) (*beam.Template, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	set, err := beam.CompileFile(file, src, beam.WithRegistry(s.registry))
	if err != nil {
		return nil, err
	}
	if t := set.Lookup(beam.NameFromFile(file)); t != nil {
		return t, nil
	}
	templates := set.Templates()
	if len(templates) == 0 {
		return nil, errors.New("no templates in " + file)
	}
	return templates[0], nil
}

func writeErrorPage(w http.ResponseWriter, err error) {
	msg := err.Error()
	var be *berrors.BeamError
	if errors.As(err, &be) {
		msg = be.PrettyString()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte("<!DOCTYPE html><html><head><title>beam error</title></head><body><pre>" +
		escape.HTML(msg) + "</pre></body></html>"))
}

// pageCache keeps compiled pages until their file changes.
type pageCache struct {
	mu      sync.Mutex
	entries map[string]pageEntry
}

type pageEntry struct {
	modTime time.Time
	tmpl    *beam.Template
}

func newPageCache() *pageCache {
	return &pageCache{entries: map[string]pageEntry{}}
}

func (c *pageCache) get(file string, compile func(string) (*beam.Template, error)) (*beam.Template, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	entry, ok := c.entries[file]
	c.mu.Unlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.tmpl, nil
	}

	tmpl, err := compile(file)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[file] = pageEntry{modTime: info.ModTime(), tmpl: tmpl}
	c.mu.Unlock()
	return tmpl, nil
}

// invalidate drops path, or everything when path is not a cached page, since
// a changed template may be used by pages through a shared registry.
func (c *pageCache) invalidate(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cached := range c.entries {
		if sameFile(cached, file) {
			delete(c.entries, cached)
			return
		}
	}
	c.entries = map[string]pageEntry{}
}

func (c *pageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
