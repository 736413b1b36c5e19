package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance is an echo server found on the local network.
type Instance struct {
	// Name is the mDNS instance name, the hostname unless configured
	Name string

	// Hostname is the mDNS host (e.g., "bench.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	Port int

	// TLS reports whether the server speaks https/wss
	TLS bool

	// Version is the advertised server version, if any
	Version string

	// Metadata contains the raw TXT record data
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("%s (%s) at %s", i.Name, i.Hostname, i.hostPort())
}

// BaseURL returns the HTTP base URL for the instance
func (i *Instance) BaseURL() string {
	if i.TLS {
		return "https://" + i.hostPort()
	}
	return "http://" + i.hostPort()
}

// WebSocketURL returns the URL an echo client dials
func (i *Instance) WebSocketURL() string {
	if i.TLS {
		return "wss://" + i.hostPort() + "/"
	}
	return "ws://" + i.hostPort() + "/"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

func (i *Instance) hostPort() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}
