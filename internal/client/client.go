// Package client is a WebSocket echo client built on gorilla/websocket.
//
// A Client owns one connection. Inbound messages and pong round-trips are
// delivered on Events; the channel closes when the connection ends, after
// which Err reports why.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// closeWait bounds the close handshake in Close
	closeWait = time.Second

	// DefaultHandshakeTimeout bounds Dial when Options leaves it zero
	DefaultHandshakeTimeout = 10 * time.Second
)

// Options tune Dial.
type Options struct {
	// InsecureSkipVerify accepts any server certificate for wss:// URLs
	InsecureSkipVerify bool
	HandshakeTimeout   time.Duration
	Header             http.Header
}

// EventKind tells inbound events apart.
type EventKind int

const (
	EventMessage EventKind = iota
	EventPong
)

// Event is something the server sent.
type Event struct {
	Kind   EventKind
	Binary bool
	Data   []byte
	RTT    time.Duration // EventPong only
	At     time.Time
}

// Text returns the payload as a string.
func (e Event) Text() string {
	return string(e.Data)
}

// Client is a connected echo client.
type Client struct {
	conn   *websocket.Conn
	url    string
	events chan Event
	done   chan struct{}

	writeMu sync.Mutex
	closing atomic.Bool

	errMu sync.Mutex
	err   error
}

// Dial connects to a ws:// or wss:// URL.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	if opts.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed test servers
	}

	conn, resp, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w (HTTP %s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		url:    url,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	// Pings carry their send time so the pong alone yields the round trip.
	conn.SetPongHandler(func(appData string) error {
		sent, err := strconv.ParseInt(appData, 10, 64)
		if err != nil {
			return nil
		}
		now := time.Now()
		c.events <- Event{Kind: EventPong, RTT: now.Sub(time.Unix(0, sent)), At: now}
		return nil
	})

	go c.readLoop()
	return c, nil
}

// URL returns the address the client dialed.
func (c *Client) URL() string {
	return c.url
}

// Events delivers inbound messages and pongs; it is closed when the
// connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended. A normal close from either side
// is reported as nil.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// SendText sends a text message.
func (c *Client) SendText(text string) error {
	return c.write(websocket.TextMessage, []byte(text))
}

// SendBinary sends a binary message.
func (c *Client) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// Ping sends a ping; the matching EventPong carries the round trip.
func (c *Client) Ping() error {
	payload := strconv.FormatInt(time.Now().UnixNano(), 10)
	return c.conn.WriteControl(websocket.PingMessage, []byte(payload), time.Now().Add(writeWait))
}

// Close performs the close handshake, waiting briefly for the server's
// reply, and releases the connection.
func (c *Client) Close() error {
	c.closing.Store(true)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
	if err == nil {
		select {
		case <-c.done:
		case <-time.After(closeWait):
		}
	}
	_ = c.conn.Close()
	<-c.done

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("failed to send close frame: %w", err)
	}
	return nil
}

func (c *Client) write(kind int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(kind, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closing.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setErr(err)
			}
			return
		}
		c.events <- Event{
			Kind:   EventMessage,
			Binary: kind == websocket.BinaryMessage,
			Data:   data,
			At:     time.Now(),
		}
	}
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}
