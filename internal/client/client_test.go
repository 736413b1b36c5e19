package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/server"
	"github.com/muurk/echoserver/internal/shutdown"
)

func startEchoServer(t *testing.T) (*server.Server, *shutdown.Signal) {
	t.Helper()
	srv, err := server.New(&server.Config{Logger: zap.NewNop()})
	require.NoError(t, err)

	sig := shutdown.New()
	done := make(chan error, 1)
	go func() { done <- srv.Run(sig) }()
	t.Cleanup(func() {
		sig.Fire()
		<-done
	})
	return srv, sig
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "connection ended: %v", c.Err())
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestClientEcho(t *testing.T) {
	srv, _ := startEchoServer(t)

	c, err := Dial(context.Background(), srv.URL("ws")+"/", Options{})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.SendText("hello"))
	ev := nextEvent(t, c)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.False(t, ev.Binary)
	assert.Equal(t, "hello", ev.Text())

	require.NoError(t, c.SendBinary([]byte{0xde, 0xad}))
	ev = nextEvent(t, c)
	assert.True(t, ev.Binary)
	assert.Equal(t, []byte{0xde, 0xad}, ev.Data)
}

func TestClientPingReportsRoundTrip(t *testing.T) {
	srv, _ := startEchoServer(t)

	c, err := Dial(context.Background(), srv.URL("ws")+"/", Options{})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Ping())
	ev := nextEvent(t, c)
	assert.Equal(t, EventPong, ev.Kind)
	assert.Positive(t, ev.RTT)
	assert.Less(t, ev.RTT, 3*time.Second)
}

func TestClientCloseIsClean(t *testing.T) {
	srv, _ := startEchoServer(t)

	c, err := Dial(context.Background(), srv.URL("ws")+"/", Options{})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Err())

	_, open := <-c.Events()
	assert.False(t, open)
}

func TestClientSeesServerShutdownAsNormalClose(t *testing.T) {
	srv, sig := startEchoServer(t)

	c, err := Dial(context.Background(), srv.URL("ws")+"/", Options{})
	require.NoError(t, err)

	sig.Fire()

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("connection did not end after shutdown")
	}
	assert.NoError(t, c.Err())
	assert.NoError(t, c.Close())
}

func TestDialFailure(t *testing.T) {
	srv, _ := startEchoServer(t)

	_, err := Dial(context.Background(), "ws://127.0.0.1:1/", Options{HandshakeTimeout: time.Second})
	require.Error(t, err)

	_, err = Dial(context.Background(), "http://"+srv.LocalAddr().String(), Options{})
	require.Error(t, err)
}
