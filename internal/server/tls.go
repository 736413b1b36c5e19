package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// NewTLSConfig creates a TLS configuration from a PEM certificate and key
// on disk. Both paths are required.
func NewTLSConfig(certPath, keyPath string, log *zap.Logger) (*tls.Config, error) {
	if certPath == "" || keyPath == "" {
		return nil, errors.New("both certificate and key paths are required for TLS")
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	config, err := NewTLSConfigFromMemory(certPEM, keyPEM, log)
	if err != nil {
		return nil, err
	}

	log.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)
	return config, nil
}

// NewTLSConfigFromMemory creates a TLS configuration from an in-memory
// PEM certificate and key.
func NewTLSConfigFromMemory(certPEM, keyPEM []byte, log *zap.Logger) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate from memory: %w", err)
	}
	return buildTLSConfig(cert, log), nil
}

func buildTLSConfig(cert tls.Certificate, log *zap.Logger) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,

		// WebSocket upgrades need HTTP/1.1.
		NextProtos: []string{"http/1.1"},

		VerifyConnection: func(cs tls.ConnectionState) error {
			log.Debug("TLS handshake",
				zap.String("server_name", cs.ServerName),
				zap.String("version", tls.VersionName(cs.Version)),
				zap.String("cipher_suite", tls.CipherSuiteName(cs.CipherSuite)),
			)
			return nil
		},
	}
}
