package logging

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// WSLogger emits WebSocket session events for one connection.
// A zero WSLogger (logging disabled) drops every event.
type WSLogger struct {
	l *zap.Logger
}

// NewWSLogger returns a session logger bound to conn. When enabled is false
// the returned logger emits nothing.
func NewWSLogger(enabled bool, base *zap.Logger, conn Conn) WSLogger {
	if !enabled {
		return WSLogger{}
	}
	return WSLogger{l: conn.Logger(base)}
}

// Enabled reports whether events are emitted.
func (w WSLogger) Enabled() bool {
	return w.l != nil
}

func (w WSLogger) Established() {
	if w.l == nil {
		return
	}
	w.l.Info("WS connection established")
}

// Message logs an inbound data message. Payload is rendered lossily.
func (w WSLogger) Message(opcode string, payload []byte) {
	if w.l == nil {
		return
	}
	w.l.Info("WS message",
		zap.String("opcode", opcode),
		zap.Int("length", len(payload)),
		zap.String("payload", strings.ToValidUTF8(string(payload), "�")),
	)
}

func (w WSLogger) Echoed(latency time.Duration) {
	if w.l == nil {
		return
	}
	w.l.Info("WS message echoed", zap.Duration("latency", latency))
}

func (w WSLogger) KeepaliveTimeout(interval time.Duration) {
	if w.l == nil {
		return
	}
	w.l.Info("WS keepalive timeout, no pong received from client", zap.Duration("ping_interval", interval))
}

func (w WSLogger) Closed(reason string) {
	if w.l == nil {
		return
	}
	w.l.Info("WS connection closed", zap.String("reason", reason))
}
