package server

import (
	"bytes"
	"net/http"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var closingBodyRe = regexp.MustCompile(`(?i)</body\s*>`)

// liveReloadScript polls the change sequence and reloads the page when it
// moves. The first answer only records the starting point.
const liveReloadScript = `<script>
(function() {
  let seq = null;
  async function poll() {
    try {
      const resp = await fetch('/__livereload', {cache: 'no-store'});
      const data = await resp.json();
      if (seq === null) {
        seq = data.seq;
      } else if (data.seq !== seq) {
        location.reload();
        return;
      }
    } catch (e) {}
    setTimeout(poll, 1000);
  }
  window.addEventListener('load', poll);
})();
</script>`

type liveReloadHandler struct {
	server *Server
}

func newLiveReloadHandler(s *Server) *liveReloadHandler {
	return &liveReloadHandler{server: s}
}

func (h *liveReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	jsoniter.NewEncoder(w).Encode(map[string]uint64{"seq": h.server.changeSeq.Load()})
}

// injectLiveReload adds the polling script to HTML responses, before </body>
// when there is one and at the end otherwise.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &reloadWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		rw.finish()
	})
}

// reloadWriter holds back HTML bodies until the handler is done.
type reloadWriter struct {
	http.ResponseWriter
	status      int
	decided     bool
	html        bool
	wroteHeader bool
	buf         bytes.Buffer
}

func (w *reloadWriter) WriteHeader(code int) {
	w.status = code
	w.decide()
	if !w.html {
		w.writeHeader()
	}
}

func (w *reloadWriter) Write(b []byte) (int, error) {
	w.decide()
	if w.html {
		return w.buf.Write(b)
	}
	w.writeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *reloadWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	w.html = strings.HasPrefix(w.Header().Get("Content-Type"), "text/html")
}

func (w *reloadWriter) writeHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *reloadWriter) finish() {
	if !w.html {
		return
	}
	body := w.buf.Bytes()
	var out []byte
	if loc := closingBodyRe.FindIndex(body); loc != nil {
		out = make([]byte, 0, len(body)+len(liveReloadScript))
		out = append(out, body[:loc[0]]...)
		out = append(out, liveReloadScript...)
		out = append(out, body[loc[0]:]...)
	} else {
		out = append(body, liveReloadScript...)
	}
	w.Header().Del("Content-Length")
	w.writeHeader()
	w.ResponseWriter.Write(out)
}
