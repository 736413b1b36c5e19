package logging

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/zap"
)

// Conn identifies one accepted socket. It is assigned once when the
// connection is accepted and attached to every record emitted for it.
type Conn struct {
	Addr string // client IP address
	ID   uint64 // monotonic per-server connection counter
}

// NewConn builds the identity for a connection from its remote address.
// The port is dropped so records group by client host.
func NewConn(remote net.Addr, id uint64) Conn {
	addr := ""
	if remote != nil {
		addr = remote.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
	}
	return Conn{Addr: addr, ID: id}
}

// Fields returns the zap fields that tag a record with this connection.
func (c Conn) Fields() []zap.Field {
	return []zap.Field{
		zap.String("client_addr", c.Addr),
		zap.Uint64("conn_id", c.ID),
	}
}

// Logger derives a child logger carrying the connection identity.
func (c Conn) Logger(base *zap.Logger) *zap.Logger {
	if base == nil {
		base = GetLogger()
	}
	return base.With(c.Fields()...)
}

func (c Conn) String() string {
	return c.Addr + "#" + strconv.FormatUint(c.ID, 10)
}

type connKey struct{}

// WithConn stores the connection identity in ctx.
func WithConn(ctx context.Context, c Conn) context.Context {
	return context.WithValue(ctx, connKey{}, c)
}

// ConnFrom returns the identity stored by WithConn.
func ConnFrom(ctx context.Context) (Conn, bool) {
	c, ok := ctx.Value(connKey{}).(Conn)
	return c, ok
}
