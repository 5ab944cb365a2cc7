package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// requestLogger logs one line per request, as text or JSON.
type requestLogger struct {
	handler http.Handler
	output  io.Writer
	format  string
}

// RequestLogEntry is a single JSON request log line.
type RequestLogEntry struct {
	Timestamp  string `json:"timestamp"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	Bytes      int    `json:"bytes"`
	DurationMs int64  `json:"duration_ms"`
}

type responseCapture struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rc *responseCapture) WriteHeader(code int) {
	if rc.status == 0 {
		rc.status = code
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	n, err := rc.ResponseWriter.Write(b)
	rc.bytes += n
	return n, err
}

func newRequestLogger(handler http.Handler, output io.Writer, format string) *requestLogger {
	if format == "" {
		format = "text"
	}
	return &requestLogger{handler: handler, output: output, format: format}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rc := &responseCapture{ResponseWriter: w}
	rl.handler.ServeHTTP(rc, r)
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	duration := time.Since(start)

	entry := RequestLogEntry{
		Timestamp:  start.Format(time.RFC3339),
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     rc.status,
		Bytes:      rc.bytes,
		DurationMs: duration.Milliseconds(),
	}

	if rl.format == "json" {
		data, err := jsoniter.Marshal(entry)
		if err != nil {
			return
		}
		fmt.Fprintf(rl.output, "%s\n", data)
		return
	}
	fmt.Fprintf(rl.output, "[SERVE] %s %s %d %s\n", entry.Method, entry.Path, entry.Status, duration.Round(time.Microsecond))
}
