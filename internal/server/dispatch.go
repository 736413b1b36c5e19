package server

import (
	"bufio"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
)

// RequestKind is how the dispatcher routes a request.
type RequestKind int

const (
	// PlainRequest is answered by the HTTP echo handler.
	PlainRequest RequestKind = iota
	// UpgradeRequest asks to switch to the WebSocket protocol.
	UpgradeRequest
)

func (k RequestKind) String() string {
	if k == UpgradeRequest {
		return "upgrade"
	}
	return "plain"
}

// Classify reports whether r carries the WebSocket upgrade header pair
// (Connection: upgrade and Upgrade: websocket, case-insensitive). The
// rest of the handshake is validated during the upgrade itself, so a
// request with the pair but a bad key is rejected rather than echoed.
func Classify(r *http.Request) RequestKind {
	if websocket.IsWebSocketUpgrade(r) {
		return UpgradeRequest
	}
	return PlainRequest
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		// Echo clients come from anywhere, browsers included.
		CheckOrigin: func(*http.Request) bool { return true },
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			w.Header().Set("Sec-WebSocket-Version", "13")
			http.Error(w, reason.Error(), status)
		},
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	switch Classify(r) {
	case UpgradeRequest:
		s.upgrade(w, r)
	default:
		Echo(w, r)
	}
}

// upgrade completes the handshake and hands the connection to a session.
// The session is counted before hijacking so that drain never waits on
// an empty group while a handshake is still in flight.
func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	conn, _ := logging.ConnFrom(r.Context())

	s.sessions.Add(1)
	hw := &hijackRecorder{ResponseWriter: w}
	ws, err := s.upgrader.Upgrade(hw, r, nil)
	if err != nil {
		s.sessions.Done()
		if hw.conn != nil {
			// Hijacked then closed by the upgrader; net/http reports no
			// StateClosed for it.
			s.untrack(hw.conn)
		}
		s.log.Warn("WebSocket upgrade failed", append(conn.Fields(), zap.Error(err))...)
		return
	}

	interval, sig := s.settings()
	sess := newSession(ws, sessionConfig{
		pingInterval:   interval,
		closeGrace:     s.config.CloseGracePeriod,
		maxMessageSize: s.config.MaxMessageSize,
		signal:         sig,
		events:         logging.NewWSLogger(s.config.WSLogging, s.log, conn),
		log:            conn.Logger(s.log),
	})

	go func() {
		defer s.sessions.Done()
		defer s.untrack(ws.NetConn())
		sess.run()
	}()
}

// hijackRecorder remembers the connection taken over by the upgrader so a
// handshake that fails after the hijack can still be untracked.
type hijackRecorder struct {
	http.ResponseWriter
	conn net.Conn
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, brw, err := http.NewResponseController(h.ResponseWriter).Hijack()
	if err == nil {
		h.conn = conn
	}
	return conn, brw, err
}
