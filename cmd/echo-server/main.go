// Echo-server is an HTTP and WebSocket echo server for testing clients,
// proxies and load balancers.
//
// Plain HTTP requests are answered with their own headers and body. WebSocket
// upgrades start a session that echoes every text and binary message and can
// keep idle peers honest with pings.
//
// Usage:
//
//	echo-server server [flags]
//	echo-server client [--url ws://host:port/]
//	echo-server discover
//
// See 'echo-server <command> --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/echoserver/internal/urls"
	"github.com/muurk/echoserver/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "echo-server",
	Short: "HTTP and WebSocket echo server",
	Long: `An HTTP and WebSocket echo server.

Every plain HTTP request is answered with 200 OK carrying the request's own
headers and body. WebSocket upgrade requests start a session that echoes each
message back with the same opcode.

Documentation: ` + urls.Documentation,
	Version:       version.Get(),
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "echo-server %s\n", version.Full())
	},
}
