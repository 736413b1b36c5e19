package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

var echoTXT = []string{"app=echo-server", "path=/", "tls=false", "version=1.2.0"}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantTLS  bool
	}{
		{
			name: "echo server with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "bench"},
				HostName:      "bench.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          echoTXT,
			},
			wantIP:   "192.168.4.16",
			wantPort: 8080,
		},
		{
			name: "echo server with TLS",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "secure"},
				HostName:      "secure.local.",
				Port:          8443,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text:          []string{"app=echo-server", "tls=true"},
			},
			wantIP:   "10.0.0.5",
			wantPort: 8443,
			wantTLS:  true,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "v6"},
				HostName:      "v6.local.",
				Port:          80,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          echoTXT,
			},
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name: "both families prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "dual"},
				HostName:      "dual.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
				Text:          echoTXT,
			},
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name: "other HTTP service",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "bench.local.",
				Port:     80,
				Text:     echoTXT,
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				HostName: "bench.local.",
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     echoTXT,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if inst != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", inst)
				}
				return
			}

			if inst == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil instance")
			}
			if inst.Name != tt.entry.Instance {
				t.Errorf("inst.Name = %v, want %v", inst.Name, tt.entry.Instance)
			}
			if inst.IP != tt.wantIP {
				t.Errorf("inst.IP = %v, want %v", inst.IP, tt.wantIP)
			}
			if inst.Port != tt.wantPort {
				t.Errorf("inst.Port = %v, want %v", inst.Port, tt.wantPort)
			}
			if inst.TLS != tt.wantTLS {
				t.Errorf("inst.TLS = %v, want %v", inst.TLS, tt.wantTLS)
			}
			if time.Since(inst.DiscoveredAt) > time.Second {
				t.Errorf("inst.DiscoveredAt is not recent: %v", inst.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "bench.local.",
		Port:     80,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     append([]string{"flag"}, echoTXT...),
	}

	inst := parseServiceEntry(entry)
	if inst == nil {
		t.Fatal("parseServiceEntry() = nil, want instance")
	}

	expected := map[string]string{
		"app":     "echo-server",
		"path":    "/",
		"tls":     "false",
		"version": "1.2.0",
		"flag":    "", // Key without value
	}
	if len(inst.Metadata) != len(expected) {
		t.Errorf("inst.Metadata has %d entries, want %d", len(inst.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := inst.Metadata[key]; !ok {
			t.Errorf("inst.Metadata missing key %q", key)
		} else if got != want {
			t.Errorf("inst.Metadata[%q] = %q, want %q", key, got, want)
		}
	}
	if inst.Version != "1.2.0" {
		t.Errorf("inst.Version = %q, want 1.2.0", inst.Version)
	}
}

func TestTXTRecordsRoundTrip(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "bench.local.",
		Port:     9000,
		AddrIPv4: []net.IP{net.ParseIP("127.0.0.1")},
		Text:     TXTRecords(true, "dev"),
	}

	inst := parseServiceEntry(entry)
	if inst == nil {
		t.Fatal("advertised TXT records were not recognised")
	}
	if !inst.TLS || inst.Version != "dev" {
		t.Errorf("parsed TLS=%v version=%q, want true and dev", inst.TLS, inst.Version)
	}

	if got := TXTRecords(false, ""); len(got) != 3 {
		t.Errorf("TXTRecords without version = %v, want 3 records", got)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestInstanceURLs(t *testing.T) {
	tests := []struct {
		name     string
		inst     *Instance
		wantHTTP string
		wantWS   string
	}{
		{
			name:     "plain",
			inst:     &Instance{IP: "192.168.4.16", Port: 8080},
			wantHTTP: "http://192.168.4.16:8080",
			wantWS:   "ws://192.168.4.16:8080/",
		},
		{
			name:     "tls",
			inst:     &Instance{IP: "10.0.0.5", Port: 8443, TLS: true},
			wantHTTP: "https://10.0.0.5:8443",
			wantWS:   "wss://10.0.0.5:8443/",
		},
		{
			name:     "ipv6",
			inst:     &Instance{IP: "fe80::1", Port: 80},
			wantHTTP: "http://[fe80::1]:80",
			wantWS:   "ws://[fe80::1]:80/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inst.BaseURL(); got != tt.wantHTTP {
				t.Errorf("BaseURL() = %v, want %v", got, tt.wantHTTP)
			}
			if got := tt.inst.WebSocketURL(); got != tt.wantWS {
				t.Errorf("WebSocketURL() = %v, want %v", got, tt.wantWS)
			}
		})
	}
}

func TestInstance_String(t *testing.T) {
	inst := &Instance{Name: "bench", Hostname: "bench.local.", IP: "192.168.4.16", Port: 80}

	expected := "bench (bench.local.) at 192.168.4.16:80"
	if inst.String() != expected {
		t.Errorf("Instance.String() = %v, want %v", inst.String(), expected)
	}
}

func TestInstance_GetMetadata_NilMap(t *testing.T) {
	inst := &Instance{}
	if got := inst.GetMetadata("anything"); got != "" {
		t.Errorf("GetMetadata() on nil map = %q, want empty", got)
	}
}
