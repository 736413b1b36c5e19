package middleware

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
)

// Backend selects the middleware implementation.
type Backend string

const (
	BackendWrap  Backend = "wrap"
	BackendHooks Backend = "hooks"
)

// ParseBackend validates a backend name. Empty selects BackendWrap.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendWrap:
		return BackendWrap, nil
	case BackendHooks:
		return BackendHooks, nil
	default:
		return "", fmt.Errorf("unknown log backend %q (expected %q or %q)", s, BackendWrap, BackendHooks)
	}
}

// New returns the logging middleware for backend. base may be nil, in which
// case the global logger is used. At HTTPLevelNone handlers are returned
// unwrapped.
func New(backend Backend, level logging.HTTPLevel, base *zap.Logger) (func(http.Handler) http.Handler, error) {
	if level == logging.HTTPLevelNone {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	if base == nil {
		base = logging.GetLogger()
	}

	switch backend {
	case "", BackendWrap:
		return func(next http.Handler) http.Handler {
			return &wrapHandler{next: next, level: level, base: base}
		}, nil
	case BackendHooks:
		return Trace(loggingHooks(level, base)), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// requestLogger returns a logger tagged with the connection the request
// arrived on. Requests that did not come through the server (tests) fall
// back to their RemoteAddr.
func requestLogger(r *http.Request, base *zap.Logger) *zap.Logger {
	conn, ok := logging.ConnFrom(r.Context())
	if !ok {
		host := r.RemoteAddr
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		conn = logging.Conn{Addr: host}
	}
	return conn.Logger(base)
}

// exchange holds what one request/response pair needs for logging.
type exchange struct {
	log   *zap.Logger
	level logging.HTTPLevel
	start time.Time
}

func newExchange(r *http.Request, level logging.HTTPLevel, base *zap.Logger) *exchange {
	return &exchange{
		log:   requestLogger(r, base),
		level: level,
		start: time.Now(),
	}
}

func (e *exchange) request(r *http.Request) {
	logging.LogHTTPRequest(e.log, r.Method, r.URL.Path, r.Proto)
	if e.level.LogsHeaders() {
		logging.LogHTTPHeaders(e.log, logging.Incoming, requestHeaders(r))
	}
}

func (e *exchange) incoming(chunk []byte) {
	logging.LogHTTPBodyChunk(e.log, logging.Incoming, chunk)
}

func (e *exchange) outgoing(chunk []byte) {
	logging.LogHTTPBodyChunk(e.log, logging.Outgoing, chunk)
}

func (e *exchange) response(status int, proto string, header http.Header, latency time.Duration) {
	logging.LogHTTPResponse(e.log, status, proto)
	if e.level.LogsHeaders() {
		logging.LogHTTPHeaders(e.log, logging.Outgoing, header)
	}
	logging.LogHTTPLatency(e.log, latency)
}

// aborted records a handler that gave up mid-response.
func (e *exchange) aborted(v any) {
	e.log.Warn("HTTP request aborted",
		zap.Any("reason", v),
		zap.Duration("latency", time.Since(e.start)),
	)
}

// requestHeaders returns the headers as received. net/http lifts Host out
// of the header map, so it is put back for logging.
func requestHeaders(r *http.Request) http.Header {
	if r.Host == "" || r.Header.Get("Host") != "" {
		return r.Header
	}
	h := r.Header.Clone()
	h.Set("Host", r.Host)
	return h
}

// bodyTap forwards reads to the wrapped body and reports every chunk read.
type bodyTap struct {
	io.ReadCloser
	onChunk func([]byte)
}

func (b *bodyTap) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.onChunk(p[:n])
	}
	return n, err
}

// tapBody replaces r.Body with a bodyTap. Empty bodies are left alone.
func tapBody(r *http.Request, onChunk func([]byte)) {
	if r.Body == nil || r.Body == http.NoBody {
		return
	}
	r.Body = &bodyTap{ReadCloser: r.Body, onChunk: onChunk}
}

// readerTap is bodyTap for plain readers handed to ReadFrom.
type readerTap struct {
	r       io.Reader
	onChunk func([]byte)
}

func (t readerTap) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.onChunk(p[:n])
	}
	return n, err
}
