package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/echoserver/internal/discovery"
	"github.com/muurk/echoserver/internal/shutdown"
	"github.com/muurk/echoserver/internal/ui"
	"github.com/muurk/echoserver/internal/urls"
)

// Discover command flags
var (
	discoverTimeout time.Duration
	discoverName    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find echo servers on the local network",
	Long: `Browse mDNS for echo servers started with --mdns.

Servers advertise themselves as ` + discovery.ServiceType + ` with the TXT record
app=` + discovery.AppName + `, so other HTTP services on the network are ignored.`,
	Example: `  # Scan for 5 seconds (default)
  echo-server discover

  # Wait up to 30 seconds for one named server
  echo-server discover --name bench --timeout 30s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for advertisements")
	discoverCmd.Flags().StringVar(&discoverName, "name", "", "Stop as soon as the server with this instance name is found")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	printer := ui.NewPrinter(cmd.OutOrStdout())
	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout

	// Ctrl+C abandons the scan instead of waiting out the timeout
	sig := shutdown.New()
	stop := shutdown.NotifyOnSignal(sig, os.Interrupt)
	defer stop()

	if discoverName != "" {
		inst, err := shutdown.Run(sig, func(ctx context.Context) (*discovery.Instance, error) {
			return scanner.WaitFor(ctx, discoverName)
		})
		if errors.Is(err, shutdown.ErrCancelled) {
			return nil
		}
		if err != nil {
			printer.PrintError("Echo server not found", err,
				"Check the instance name (it defaults to the server's hostname)",
				"Try increasing --timeout",
			)
			return err
		}
		printer.PrintInstances([]*discovery.Instance{inst})
		return nil
	}

	printer.Println(ui.ListDetailStyle.Render(fmt.Sprintf("Scanning for echo servers (timeout: %s)...", discoverTimeout)))
	instances, err := shutdown.Run(sig, scanner.Scan)
	if errors.Is(err, shutdown.ErrCancelled) {
		return nil
	}
	if err != nil {
		printer.PrintError("Discovery failed", err,
			"Check that a network interface supports multicast",
			"See "+urls.MulticastDNS,
		)
		return fmt.Errorf("scan failed: %w", err)
	}

	printer.PrintInstances(instances)
	return nil
}
