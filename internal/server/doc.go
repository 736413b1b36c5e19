// Package server implements the echo server: one listener serving plain
// HTTP requests and WebSocket sessions on the same port.
//
// # Dispatch
//
// Every request passes through the HTTP logging middleware and is then
// classified. Requests carrying the WebSocket upgrade header pair are
// upgraded; gorilla/websocket validates the rest of the handshake and
// answers malformed ones with a 4xx diagnostic. Everything else goes to
// Echo, which streams the request headers and body back with status 200.
//
// # Sessions
//
// An upgraded connection runs a session: text and binary messages are
// echoed with the same opcode, pings are answered, and when a ping
// interval is set the server pings the client on every tick and closes
// the session if the previous ping was never answered.
//
// # Shutdown
//
// Run serves until its shutdown.Signal fires. The listener is closed,
// in-flight HTTP requests finish, and each session sends a normal-closure
// frame within the close grace period. Run returns once every connection
// is gone or the shutdown timeout elapses.
//
//	srv, err := server.New(&server.Config{Port: 8080, HTTPLogLevel: logging.HTTPLevelURI})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil { // blocks until SIGINT/SIGTERM
//	    log.Fatal(err)
//	}
package server
