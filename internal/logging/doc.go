// Package logging provides structured logging for the echo server.
//
// This package wraps a zap logger with convenience functions for the records
// the server emits. General functions (Info, Warn, ...) go through the global
// logger configured by Initialize; the HTTP and WebSocket helpers take an
// explicit *zap.Logger so callers can attach a connection identity and tests
// can inject an observer core.
//
// # Connection Identity
//
// Every accepted socket gets a Conn value {client address, monotonic id}.
// It is stored in the request context once per connection and turned into
// the fields client_addr and conn_id on every record:
//
//	l := conn.Logger(base)
//	logging.LogHTTPRequest(l, r.Method, r.URL.Path, r.Proto)
//
// # HTTP Verbosity
//
// HTTPLevel is ordered: none < uri < uri-headers < uri-headers-body.
// Each level logs a strict superset of the records of the previous one.
//
// # WebSocket Events
//
// WSLogger is either bound to a connection or disabled. A disabled WSLogger
// drops every event, so session code never branches on the flag itself.
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and ECHO_LOG_LEVEL is unset, logging is silent.
package logging
