package middleware

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
)

// Hooks are the callbacks Trace invokes for one request. A nil hook
// disables that composition point and its stream is not wrapped at all.
type Hooks struct {
	OnRequest       func(r *http.Request)
	OnRequestChunk  func(chunk []byte)
	OnResponseChunk func(chunk []byte)
	OnResponse      func(status int, header http.Header, latency time.Duration)
	// OnAbort is called when the handler panics; the panic is re-raised.
	OnAbort func(v any)
}

// MakeHooks builds the hooks for a single request.
type MakeHooks func(r *http.Request) Hooks

// Trace is a general-purpose instrumentation middleware: it calls the
// hooks built by makeHooks around every request without altering it.
func Trace(makeHooks MakeHooks) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hooks := makeHooks(r)
			start := time.Now()

			if hooks.OnRequest != nil {
				hooks.OnRequest(r)
			}
			if hooks.OnRequestChunk != nil {
				tapBody(r, hooks.OnRequestChunk)
			}

			status := http.StatusOK
			wroteHeader := false
			snoop := httpsnoop.Hooks{
				WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
					return func(code int) {
						if !wroteHeader && code >= http.StatusOK {
							status = code
							wroteHeader = true
						}
						next(code)
					}
				},
				Hijack: func(next httpsnoop.HijackFunc) httpsnoop.HijackFunc {
					return func() (net.Conn, *bufio.ReadWriter, error) {
						conn, brw, err := next()
						if err == nil {
							status = http.StatusSwitchingProtocols
							wroteHeader = true
						}
						return conn, brw, err
					}
				},
			}
			if onChunk := hooks.OnResponseChunk; onChunk != nil {
				snoop.Write = func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
					return func(p []byte) (int, error) {
						n, err := next(p)
						if n > 0 {
							onChunk(p[:n])
						}
						return n, err
					}
				}
				snoop.ReadFrom = func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
					return func(src io.Reader) (int64, error) {
						return next(readerTap{r: src, onChunk: onChunk})
					}
				}
			}

			if hooks.OnAbort != nil {
				defer func() {
					if v := recover(); v != nil {
						hooks.OnAbort(v)
						panic(v)
					}
				}()
			}
			next.ServeHTTP(httpsnoop.Wrap(w, snoop), r)

			if hooks.OnResponse != nil {
				hooks.OnResponse(status, w.Header(), time.Since(start))
			}
		})
	}
}

// loggingHooks maps an HTTP level onto Trace hooks emitting the same
// records as the wrap backend.
func loggingHooks(level logging.HTTPLevel, base *zap.Logger) MakeHooks {
	return func(r *http.Request) Hooks {
		ex := newExchange(r, level, base)
		proto := r.Proto

		hooks := Hooks{
			OnRequest: ex.request,
			OnResponse: func(status int, header http.Header, latency time.Duration) {
				ex.response(status, proto, header, latency)
			},
			OnAbort: ex.aborted,
		}
		if level.LogsBody() {
			hooks.OnRequestChunk = ex.incoming
			hooks.OnResponseChunk = ex.outgoing
		}
		return hooks
	}
}
