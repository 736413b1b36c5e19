// Package config loads the echo server configuration.
//
// Values are layered, later sources winning:
//
//  1. Defaults (Default)
//  2. The YAML file (Load); a missing file at the default location is fine
//  3. ECHO_* environment variables, optionally seeded from a .env file
//     (LoadEnvFile, ApplyEnv)
//  4. Command-line flags, applied by the caller
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/echo-server/config.yaml or $HOME/.config/echo-server/config.yaml
//   - macOS: $HOME/.config/echo-server/config.yaml
//   - Windows: %LOCALAPPDATA%\echo-server\config.yaml
//
// # Example
//
//	host: 0.0.0.0
//	port: 8080
//	http_log_level: uri-headers
//	ws_logging: true
//	ws_ping_interval: 30s
//	tls:
//	  cert: /etc/echo/cert.pem
//	  key: /etc/echo/key.pem
//	mdns:
//	  enabled: true
package config
