package server

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
)

// Echo answers 200 with the request's headers and body. The body is
// streamed back as it arrives, never buffered whole. Content-Length is
// set only when the request declared one; otherwise the response is
// chunked.
//
// If reading the request body fails part way, the response is abandoned
// and the connection dropped, so the client sees a broken transfer rather
// than a truncated success.
func Echo(w http.ResponseWriter, r *http.Request) {
	header := w.Header()
	for name, values := range r.Header {
		header[name] = append([]string(nil), values...)
	}
	// net/http moves Host out of the header map.
	if r.Host != "" {
		header.Set("Host", r.Host)
	}
	header.Del("Content-Length")
	if r.ContentLength >= 0 {
		header.Set("Content-Length", strconv.FormatInt(r.ContentLength, 10))
	}

	// net/http discards the unread request body once the response starts
	// unless the exchange is full duplex.
	rc := http.NewResponseController(w)
	_ = rc.EnableFullDuplex()

	w.WriteHeader(http.StatusOK)
	if r.ContentLength < 0 {
		// Commit to a chunked response before the body arrives; net/http
		// would otherwise size small bodies itself.
		_ = rc.Flush()
	}

	body := &readErrorTracker{r: r.Body}
	if _, err := io.Copy(w, body); err != nil {
		if body.err != nil {
			conn, _ := logging.ConnFrom(r.Context())
			logging.Warn("Request body failed mid-stream, aborting response",
				append(conn.Fields(), zap.Error(body.err))...)
			panic(http.ErrAbortHandler)
		}
		// The client went away; nothing left to write to.
		return
	}
}

// readErrorTracker tells body failures apart from write failures.
type readErrorTracker struct {
	r   io.Reader
	err error
}

func (t *readErrorTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
