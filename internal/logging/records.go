package logging

import (
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Direction tells whether a header or body chunk belongs to the request or
// to the response.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// maxChunkLog caps how much of a single body chunk is rendered.
const maxChunkLog = 4096

// LogHTTPRequest logs the request line.
func LogHTTPRequest(l *zap.Logger, method, path, proto string) {
	l.Info("HTTP request received",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("proto", proto),
	)
}

// LogHTTPHeaders logs one record per header value, in name order.
func LogHTTPHeaders(l *zap.Logger, dir Direction, header http.Header) {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range header[name] {
			l.Info("HTTP header",
				zap.String("direction", string(dir)),
				zap.String("name", name),
				zap.String("value", value),
			)
		}
	}
}

// LogHTTPBodyChunk logs a chunk of a streamed body.
func LogHTTPBodyChunk(l *zap.Logger, dir Direction, chunk []byte) {
	fields := []zap.Field{
		zap.String("direction", string(dir)),
		zap.Int("length", len(chunk)),
	}
	if len(chunk) > maxChunkLog {
		fields = append(fields, zap.ByteString("data", chunk[:maxChunkLog]), zap.Bool("truncated", true))
	} else {
		fields = append(fields, zap.ByteString("data", chunk))
	}
	l.Info("HTTP body chunk", fields...)
}

// LogHTTPResponse logs the response status line.
func LogHTTPResponse(l *zap.Logger, status int, proto string) {
	l.Info("HTTP response sent",
		zap.Int("status", status),
		zap.String("status_text", http.StatusText(status)),
		zap.String("proto", proto),
	)
}

// LogHTTPLatency logs how long the handler took from entry to completion.
func LogHTTPLatency(l *zap.Logger, latency time.Duration) {
	l.Info("HTTP request processed", zap.Duration("latency", latency))
}
