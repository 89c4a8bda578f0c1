package middleware

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
)

type envelope map[string]any

// errorResponse writes {"error": message} with status.
func errorResponse(w http.ResponseWriter, status int, message string) {
	js, err := json.Marshal(envelope{"error": message})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

// statusRecorder remembers the status code written through it. Nested
// middlewares share one recorder.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

// Hijack keeps websocket upgrades working behind the recorder.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}

	conn, rw, err := h.Hijack()
	if err == nil {
		rec.hijacked = true
	}
	return conn, rw, err
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Status is the code sent to the client. A hijacked connection counts as 101.
func (rec *statusRecorder) Status() int {
	switch {
	case rec.hijacked:
		return http.StatusSwitchingProtocols
	case rec.status == 0:
		return http.StatusOK
	default:
		return rec.status
	}
}
