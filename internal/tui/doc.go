// Package tui implements the interactive terminal client for the echo server.
//
// Built on Bubble Tea, it has two screens:
//   - Discovery: scan the network over mDNS or enter a ws:// URL by hand
//   - Session: send text and binary messages, ping, and watch the echoes
//
// The network side is injected (ScanFunc and DialFunc) so the models can be
// driven directly in tests.
//
// # Usage Example
//
//	if err := tui.Run("", client.Options{}); err != nil {
//	    log.Fatal(err)
//	}
package tui
