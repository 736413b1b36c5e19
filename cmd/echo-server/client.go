package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/echoserver/internal/client"
	"github.com/muurk/echoserver/internal/tui"
)

// Client command flags
var (
	clientURL      string
	clientInsecure bool
	clientTimeout  time.Duration
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Interactive WebSocket echo client",
	Long: `Open an interactive WebSocket client.

Without --url the client first scans the local network for echo servers
advertised over mDNS and lets you pick one or type a URL.`,
	Example: `  # Discover servers on the network
  echo-server client

  # Connect straight to a server
  echo-server client --url ws://127.0.0.1:8080/

  # Connect to a TLS server with a self-signed certificate
  echo-server client --url wss://bench.local:8443/ --insecure`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringVar(&clientURL, "url", "", "ws:// or wss:// URL to connect to (skips discovery)")
	clientCmd.Flags().BoolVar(&clientInsecure, "insecure", false, "Accept any TLS certificate")
	clientCmd.Flags().DurationVar(&clientTimeout, "handshake-timeout", client.DefaultHandshakeTimeout, "WebSocket handshake timeout")
}

func runClient(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	opts := client.Options{
		InsecureSkipVerify: clientInsecure,
		HandshakeTimeout:   clientTimeout,
	}
	if err := tui.Run(clientURL, opts); err != nil {
		return fmt.Errorf("client failed: %w", err)
	}
	return nil
}
