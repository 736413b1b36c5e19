package server

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
	"github.com/muurk/echoserver/internal/shutdown"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

// Close reasons reported in the "WS connection closed" record.
const (
	reasonPeerClosed = "peer closed"
	reasonTimeout    = "keepalive timeout"
	reasonShutdown   = "shutdown"
	reasonIOError    = "transport error"
)

// liveness is the keepalive half of the session state.
type liveness int

const (
	awaitingActivity liveness = iota
	awaitingPong
)

type sessionConfig struct {
	pingInterval   time.Duration // 0 disables keepalive
	closeGrace     time.Duration
	maxMessageSize int64
	signal         *shutdown.Signal
	events         logging.WSLogger // session records, gated by ws logging
	log            *zap.Logger      // connection-tagged, for failures
}

// frame is one inbound event delivered by the reader goroutine: a data or
// control message, or the error that ended reading.
type frame struct {
	kind int
	data []byte
	err  error
}

// session echoes messages on one upgraded connection. The reader goroutine
// only reads; every write happens on the session goroutine, including
// pongs and close replies, which gorilla would otherwise send from inside
// ReadMessage.
type session struct {
	conn  *websocket.Conn
	cfg   sessionConfig
	state liveness

	frames chan frame
	done   chan struct{}

	// transportBroken skips the close frame when the socket already failed.
	transportBroken bool
}

func newSession(conn *websocket.Conn, cfg sessionConfig) *session {
	if cfg.signal == nil {
		cfg.signal = shutdown.New()
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}
	s := &session{
		conn:   conn,
		cfg:    cfg,
		frames: make(chan frame),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(cfg.maxMessageSize)
	conn.SetPingHandler(func(appData string) error {
		s.deliver(frame{kind: websocket.PingMessage, data: []byte(appData)})
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		s.deliver(frame{kind: websocket.PongMessage, data: []byte(appData)})
		return nil
	})
	// Returning nil makes ReadMessage surface the peer's close as a
	// *websocket.CloseError without replying; run sends the reply.
	conn.SetCloseHandler(func(int, string) error { return nil })

	return s
}

func (s *session) run() {
	s.cfg.events.Established()

	go s.readLoop()

	var tick <-chan time.Time
	if s.cfg.pingInterval > 0 {
		ticker := time.NewTicker(s.cfg.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	reason := s.loop(tick)
	s.close(reason)
}

// loop handles events until the session must close. When several are
// ready at once a keepalive tick wins, then the shutdown signal, then
// inbound frames.
func (s *session) loop(tick <-chan time.Time) string {
	for {
		select {
		case <-tick:
			if reason, stop := s.keepalive(); stop {
				return reason
			}
			continue
		default:
		}

		select {
		case <-s.cfg.signal.Done():
			return reasonShutdown
		default:
		}

		select {
		case <-tick:
			if reason, stop := s.keepalive(); stop {
				return reason
			}
		case <-s.cfg.signal.Done():
			return reasonShutdown
		case f := <-s.frames:
			if reason, stop := s.handle(f); stop {
				return reason
			}
		}
	}
}

// keepalive runs on each tick: a ping still unanswered from the previous
// tick ends the session, otherwise a new ping is sent.
func (s *session) keepalive() (string, bool) {
	if s.state == awaitingPong {
		s.cfg.events.KeepaliveTimeout(s.cfg.pingInterval)
		return reasonTimeout, true
	}
	if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		s.cfg.log.Warn("Failed to send ping", zap.Error(err))
		s.transportBroken = true
		return reasonIOError, true
	}
	s.state = awaitingPong
	return "", false
}

func (s *session) handle(f frame) (string, bool) {
	if f.err != nil {
		var closeErr *websocket.CloseError
		if errors.As(f.err, &closeErr) {
			return reasonPeerClosed, true
		}
		s.cfg.log.Warn("WebSocket read failed", zap.Error(f.err))
		s.transportBroken = true
		return reasonIOError, true
	}

	switch f.kind {
	case websocket.TextMessage, websocket.BinaryMessage:
		return s.echo(f)

	case websocket.PingMessage:
		if err := s.conn.WriteControl(websocket.PongMessage, f.data, time.Now().Add(writeWait)); err != nil {
			s.cfg.log.Warn("Failed to send pong", zap.Error(err))
			s.transportBroken = true
			return reasonIOError, true
		}

	case websocket.PongMessage:
		s.state = awaitingActivity
	}
	return "", false
}

// echo writes a data message back with the same opcode. Text that is not
// valid UTF-8 is repaired with U+FFFD before sending; binary is untouched.
func (s *session) echo(f frame) (string, bool) {
	start := time.Now()
	opcode := "binary"
	payload := f.data
	if f.kind == websocket.TextMessage {
		opcode = "text"
		if !utf8.Valid(payload) {
			payload = []byte(strings.ToValidUTF8(string(payload), "�"))
		}
	}
	s.cfg.events.Message(opcode, f.data)

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(f.kind, payload); err != nil {
		s.cfg.log.Warn("Failed to echo WebSocket message", zap.Error(err))
		s.transportBroken = true
		return reasonIOError, true
	}

	s.cfg.events.Echoed(time.Since(start))
	return "", false
}

// close sends a normal-closure frame unless the transport already failed,
// waits for the peer's reply within the grace period and tears down.
func (s *session) close(reason string) {
	if !s.transportBroken {
		deadline := time.Now().Add(s.cfg.closeGrace)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		switch {
		case err != nil && !errors.Is(err, websocket.ErrCloseSent):
			s.cfg.log.Debug("Failed to send close frame", zap.Error(err))
		case err == nil && reason != reasonPeerClosed:
			s.awaitPeerClose(deadline)
		}
	}

	close(s.done)
	_ = s.conn.Close()
	s.cfg.events.Closed(reason)
}

// awaitPeerClose drains frames until the peer's close reply or a read
// error arrives, or the deadline passes.
func (s *session) awaitPeerClose(deadline time.Time) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	for {
		select {
		case f := <-s.frames:
			if f.err != nil {
				return
			}
		case <-timer.C:
			return
		}
	}
}

func (s *session) readLoop() {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			s.deliver(frame{err: err})
			return
		}
		s.deliver(frame{kind: kind, data: data})
	}
}

// deliver hands f to the session goroutine unless the session has ended.
func (s *session) deliver(f frame) {
	select {
	case s.frames <- f:
	case <-s.done:
	}
}
