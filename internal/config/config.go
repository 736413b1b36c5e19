package config

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/logging"
	"github.com/muurk/echoserver/internal/middleware"
	"github.com/muurk/echoserver/internal/server"
)

// Config is the echo server configuration file.
type Config struct {
	Host             string             `yaml:"host"`
	Port             int                `yaml:"port"`
	HTTPLogLevel     logging.HTTPLevel  `yaml:"http_log_level"`
	WSLogging        bool               `yaml:"ws_logging"`
	WSPingInterval   time.Duration      `yaml:"ws_ping_interval"` // 0 disables keepalive
	MaxMessageSize   int64              `yaml:"max_message_size"`
	CloseGracePeriod time.Duration      `yaml:"close_grace_period"`
	ShutdownTimeout  time.Duration      `yaml:"shutdown_timeout"`
	LogBackend       middleware.Backend `yaml:"log_backend"`
	LogLevel         string             `yaml:"log_level,omitempty"` // zap level; empty = silent
	TLS              TLS                `yaml:"tls"`
	MDNS             MDNS               `yaml:"mdns"`
}

// TLS enables https and wss when both paths are set.
type TLS struct {
	Cert string `yaml:"cert,omitempty"`
	Key  string `yaml:"key,omitempty"`
}

// MDNS controls advertisement of the running server on the local network.
type MDNS struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"` // empty = hostname
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Host:             server.DefaultHost,
		Port:             0,
		HTTPLogLevel:     logging.HTTPLevelNone,
		MaxMessageSize:   server.DefaultMaxMessageSize,
		CloseGracePeriod: server.DefaultCloseGracePeriod,
		ShutdownTimeout:  server.DefaultShutdownTimeout,
		LogBackend:       middleware.BackendWrap,
	}
}

// ServerConfig converts c into the server's construction parameters.
func (c *Config) ServerConfig(log *zap.Logger) *server.Config {
	return &server.Config{
		Host:             c.Host,
		Port:             c.Port,
		HTTPLogLevel:     c.HTTPLogLevel,
		WSLogging:        c.WSLogging,
		LogBackend:       c.LogBackend,
		PingInterval:     c.WSPingInterval,
		MaxMessageSize:   c.MaxMessageSize,
		CloseGracePeriod: c.CloseGracePeriod,
		ShutdownTimeout:  c.ShutdownTimeout,
		CertPath:         c.TLS.Cert,
		KeyPath:          c.TLS.Key,
		Logger:           log,
	}
}
