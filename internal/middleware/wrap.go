package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
)

type wrapHandler struct {
	next  http.Handler
	level logging.HTTPLevel
	base  *zap.Logger
}

func (h *wrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ex := newExchange(r, h.level, h.base)
	ex.request(r)

	rec := &recorder{ResponseWriter: w, status: http.StatusOK}
	if h.level.LogsBody() {
		tapBody(r, ex.incoming)
		rec.onChunk = ex.outgoing
	}

	defer func() {
		if v := recover(); v != nil {
			ex.aborted(v)
			panic(v)
		}
	}()
	h.next.ServeHTTP(rec, r)

	ex.response(rec.status, r.Proto, w.Header(), time.Since(ex.start))
}

// recorder captures the response status and reports body chunks. It keeps
// Flusher and Hijacker available to the inner handler; WebSocket upgrades
// need the latter.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	onChunk     func([]byte)
}

func (rec *recorder) WriteHeader(code int) {
	if !rec.wroteHeader && code >= http.StatusOK {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *recorder) Write(p []byte) (int, error) {
	rec.wroteHeader = true
	n, err := rec.ResponseWriter.Write(p)
	if n > 0 && rec.onChunk != nil {
		rec.onChunk(p[:n])
	}
	return n, err
}

func (rec *recorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not implement http.Hijacker", rec.ResponseWriter)
	}
	conn, brw, err := h.Hijack()
	if err == nil {
		rec.status = http.StatusSwitchingProtocols
		rec.wroteHeader = true
	}
	return conn, brw, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
