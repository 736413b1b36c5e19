package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/config"
	"github.com/muurk/echoserver/internal/discovery"
	"github.com/muurk/echoserver/internal/logging"
	"github.com/muurk/echoserver/internal/middleware"
	"github.com/muurk/echoserver/internal/server"
	"github.com/muurk/echoserver/internal/ui"
	"github.com/muurk/echoserver/internal/urls"
	"github.com/muurk/echoserver/internal/version"
)

// serverFlags mirrors the configuration file. Only flags the user actually
// set override the file and environment.
type serverFlags struct {
	configPath string
	envFile    string

	host            string
	port            int
	httpLogLevel    logging.HTTPLevel
	wsLogging       bool
	pingInterval    time.Duration
	maxMessageSize  int64
	closeGrace      time.Duration
	shutdownTimeout time.Duration
	logBackend      string
	logLevel        string
	certPath        string
	keyPath         string
	mdns            bool
	mdnsInstance    string
}

var serverOpts serverFlags

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the echo server",
	Long: `Start the HTTP and WebSocket echo server.

Settings are layered: built-in defaults, then the YAML config file, then
ECHO_* environment variables (optionally loaded from a .env file), then
command-line flags.

HTTP traffic is logged at one of four verbosity levels:
  none              nothing
  uri               request line, response status and latency
  uri-headers       ... plus every request and response header
  uri-headers-body  ... plus every body chunk in both directions

The server runs until interrupted (Ctrl+C or SIGTERM), then closes every
WebSocket session with a close frame and drains in-flight requests.`,
	Example: `  # Listen on an automatic port on loopback
  echo-server server

  # Fixed port on all interfaces with full HTTP logging
  echo-server server --host 0.0.0.0 --port 8080 --http-log-level uri-headers-body

  # Log WebSocket traffic and ping idle clients every 30 seconds
  echo-server server --port 8080 --ws-logging --ws-ping-interval 30s

  # Serve https and wss, and advertise over mDNS
  echo-server server --port 8443 --tls-cert cert.pem --tls-key key.pem --mdns`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, &serverOpts)
	},
}

func init() {
	serverOpts.register(serverCmd)
}

func (f *serverFlags) register(cmd *cobra.Command) {
	def := config.Default()
	fl := cmd.Flags()

	fl.StringVar(&f.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/echo-server/config.yaml)")
	fl.StringVar(&f.envFile, "env-file", "", "Load ECHO_* variables from this .env file (default ./.env if present)")

	fl.StringVar(&f.host, "host", def.Host, "Interface to listen on")
	fl.IntVar(&f.port, "port", def.Port, "Port to listen on (0 = automatic)")
	f.httpLogLevel = def.HTTPLogLevel
	fl.Var(&f.httpLogLevel, "http-log-level", "HTTP logging: none, uri, uri-headers, uri-headers-body (or 0-3)")
	fl.BoolVar(&f.wsLogging, "ws-logging", def.WSLogging, "Log WebSocket lifecycle and messages")
	fl.DurationVar(&f.pingInterval, "ws-ping-interval", def.WSPingInterval, "Ping idle WebSocket clients at this interval (0 = never)")
	fl.Int64Var(&f.maxMessageSize, "max-message-size", def.MaxMessageSize, "Largest WebSocket message accepted, in bytes")
	fl.DurationVar(&f.closeGrace, "close-grace-period", def.CloseGracePeriod, "How long to wait for a peer's close frame")
	fl.DurationVar(&f.shutdownTimeout, "shutdown-timeout", def.ShutdownTimeout, "How long shutdown waits for connections to drain")
	fl.StringVar(&f.logBackend, "log-backend", string(def.LogBackend), "HTTP logging middleware: wrap or hooks")
	fl.StringVar(&f.logLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error; default silent or $ECHO_LOG_LEVEL)")
	fl.StringVar(&f.certPath, "tls-cert", def.TLS.Cert, "TLS certificate file (enables https/wss with --tls-key)")
	fl.StringVar(&f.keyPath, "tls-key", def.TLS.Key, "TLS private key file")
	fl.BoolVar(&f.mdns, "mdns", def.MDNS.Enabled, "Advertise the server over mDNS")
	fl.StringVar(&f.mdnsInstance, "mdns-instance", def.MDNS.Instance, "mDNS instance name (default hostname)")
}

// apply copies the flags the user set onto cfg.
func (f *serverFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("host") {
		cfg.Host = f.host
	}
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("http-log-level") {
		cfg.HTTPLogLevel = f.httpLogLevel
	}
	if changed("ws-logging") {
		cfg.WSLogging = f.wsLogging
	}
	if changed("ws-ping-interval") {
		cfg.WSPingInterval = f.pingInterval
	}
	if changed("max-message-size") {
		cfg.MaxMessageSize = f.maxMessageSize
	}
	if changed("close-grace-period") {
		cfg.CloseGracePeriod = f.closeGrace
	}
	if changed("shutdown-timeout") {
		cfg.ShutdownTimeout = f.shutdownTimeout
	}
	if changed("log-backend") {
		cfg.LogBackend = middleware.Backend(f.logBackend)
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("tls-cert") {
		cfg.TLS.Cert = f.certPath
	}
	if changed("tls-key") {
		cfg.TLS.Key = f.keyPath
	}
	if changed("mdns") {
		cfg.MDNS.Enabled = f.mdns
	}
	if changed("mdns-instance") {
		cfg.MDNS.Instance = f.mdnsInstance
	}
}

// loadServerConfig layers defaults, config file, environment and flags.
func loadServerConfig(cmd *cobra.Command, f *serverFlags) (*config.Config, error) {
	if err := config.LoadEnvFile(f.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	f.apply(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Traffic records are Info; asking for them implies an Info logger
	if cfg.LogLevel == "" && (cfg.HTTPLogLevel != logging.HTTPLevelNone || cfg.WSLogging) {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, f *serverFlags) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	printer := ui.NewPrinter(cmd.OutOrStdout())
	interactive := ui.IsTerminal()

	cfg, err := loadServerConfig(cmd, f)
	if err != nil {
		if interactive {
			printer.PrintError("Invalid configuration", err, configTips(err)...)
		}
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	defer logging.Sync()
	log := logging.GetLogger()

	srv, err := server.New(cfg.ServerConfig(log))
	if err != nil {
		if interactive {
			printer.PrintError("Failed to start echo server", err,
				fmt.Sprintf("Check nothing else is listening on %s:%d", cfg.Host, cfg.Port),
				"Use --port 0 to pick a free port automatically",
				"See "+urls.Documentation,
			)
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.MDNS.Enabled {
		ad, err := discovery.Advertise(cfg.MDNS.Instance, srv.Port(), cfg.TLS.Cert != "", version.Get())
		if err != nil {
			// The server is still useful without discovery
			log.Warn("mDNS advertisement failed", zap.Error(err))
			if interactive {
				printer.PrintWarning("mDNS advertisement failed: " + err.Error())
			}
		} else {
			defer ad.Shutdown()
		}
	}

	if interactive {
		printer.PrintHeader("Echo Server", "echo-server server", bannerParams(cfg, srv)...)
		printer.Println(ui.ListDetailStyle.Render("Press Ctrl+C to stop"))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", srv.LocalAddr())
	}

	return srv.Start()
}

func bannerParams(cfg *config.Config, srv *server.Server) []ui.Param {
	ping := "disabled"
	if cfg.WSPingInterval > 0 {
		ping = cfg.WSPingInterval.String()
	}
	mdns := "off"
	if cfg.MDNS.Enabled {
		mdns = "on"
	}
	return []ui.Param{
		{Key: "HTTP", Value: srv.URL("http") + "/"},
		{Key: "WebSocket", Value: srv.URL("ws") + "/"},
		{Key: "HTTP logging", Value: cfg.HTTPLogLevel.String()},
		{Key: "WS logging", Value: fmt.Sprintf("%t", cfg.WSLogging)},
		{Key: "Ping interval", Value: ping},
		{Key: "mDNS", Value: mdns},
	}
}

func configTips(err error) []string {
	var loadErr *config.LoadError
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return []string{"Create one with: echo-server config init"}
	case errors.Is(err, config.ErrInvalidYAML):
		return []string{"Check the file for typos and unknown keys"}
	case errors.As(err, &loadErr):
		return []string{"Check the file exists and is readable: " + loadErr.File}
	default:
		return []string{"Run 'echo-server server --help' for accepted values"}
	}
}
