package logging

import (
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestNewConn(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 51234}
	c := NewConn(addr, 7)
	assert.Equal(t, "127.0.0.1", c.Addr)
	assert.Equal(t, uint64(7), c.ID)
	assert.Equal(t, "127.0.0.1#7", c.String())

	assert.Equal(t, "", NewConn(nil, 0).Addr)
}

func TestConnLoggerTagsRecords(t *testing.T) {
	base, logs := newObserved()
	c := Conn{Addr: "10.0.0.1", ID: 3}

	LogHTTPRequest(c.Logger(base), "GET", "/", "HTTP/1.1")

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "10.0.0.1", ctx["client_addr"])
	assert.Equal(t, uint64(3), ctx["conn_id"])
	assert.Equal(t, "GET", ctx["method"])
}

func TestLogHTTPHeadersOneRecordPerValue(t *testing.T) {
	l, logs := newObserved()
	h := http.Header{}
	h.Add("B-Header", "b")
	h.Add("A-Header", "a1")
	h.Add("A-Header", "a2")

	LogHTTPHeaders(l, Incoming, h)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "A-Header", entries[0].ContextMap()["name"])
	assert.Equal(t, "a1", entries[0].ContextMap()["value"])
	assert.Equal(t, "a2", entries[1].ContextMap()["value"])
	assert.Equal(t, "B-Header", entries[2].ContextMap()["name"])
	assert.Equal(t, "incoming", entries[2].ContextMap()["direction"])
}

func TestLogHTTPBodyChunkTruncates(t *testing.T) {
	l, logs := newObserved()

	LogHTTPBodyChunk(l, Outgoing, []byte("some body"))
	LogHTTPBodyChunk(l, Outgoing, []byte(strings.Repeat("x", maxChunkLog+10)))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "some body", entries[0].ContextMap()["data"])
	assert.NotContains(t, entries[0].ContextMap(), "truncated")
	assert.Equal(t, int64(maxChunkLog+10), entries[1].ContextMap()["length"])
	assert.Equal(t, true, entries[1].ContextMap()["truncated"])
	assert.Len(t, entries[1].ContextMap()["data"], maxChunkLog)
}

func TestWSLoggerDisabledDropsEvents(t *testing.T) {
	base, logs := newObserved()
	w := NewWSLogger(false, base, Conn{Addr: "127.0.0.1"})

	assert.False(t, w.Enabled())
	w.Established()
	w.Message("text", []byte("hi"))
	w.Echoed(time.Millisecond)
	w.KeepaliveTimeout(time.Second)
	w.Closed("peer")

	assert.Equal(t, 0, logs.Len())
}

func TestWSLoggerMessageIsLossy(t *testing.T) {
	base, logs := newObserved()
	w := NewWSLogger(true, base, Conn{Addr: "127.0.0.1", ID: 1})

	w.Message("binary", []byte{'o', 'k', 0xff})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ok�", logs.All()[0].ContextMap()["payload"])
	assert.Equal(t, uint64(1), logs.All()[0].ContextMap()["conn_id"])
}
