package logging

import (
	"fmt"
	"strconv"
	"strings"
)

// HTTPLevel controls how much of each HTTP exchange is logged.
// Every level logs everything the previous one does.
type HTTPLevel uint8

const (
	// HTTPLevelNone disables HTTP logging.
	HTTPLevelNone HTTPLevel = iota
	// HTTPLevelURI logs the request line, response status and latency.
	HTTPLevelURI
	// HTTPLevelURIHeaders additionally logs request and response headers.
	HTTPLevelURIHeaders
	// HTTPLevelURIHeadersBody additionally logs body chunks as they stream.
	// Bodies are streamed, so chunk records may follow the latency record.
	HTTPLevelURIHeadersBody
)

var httpLevelNames = [...]string{"none", "uri", "uri-headers", "uri-headers-body"}

func (l HTTPLevel) String() string {
	if int(l) < len(httpLevelNames) {
		return httpLevelNames[l]
	}
	return fmt.Sprintf("HTTPLevel(%d)", uint8(l))
}

// LogsURI reports whether request and response lines are logged.
func (l HTTPLevel) LogsURI() bool { return l >= HTTPLevelURI }

// LogsHeaders reports whether headers are logged.
func (l HTTPLevel) LogsHeaders() bool { return l >= HTTPLevelURIHeaders }

// LogsBody reports whether body chunks are logged.
func (l HTTPLevel) LogsBody() bool { return l >= HTTPLevelURIHeadersBody }

// ParseHTTPLevel accepts either a level name or its numeric value (0-3).
func ParseHTTPLevel(s string) (HTTPLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return HTTPLevelNone, nil
	}
	for i, name := range httpLevelNames {
		if s == name {
			return HTTPLevel(i), nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && int(n) < len(httpLevelNames) {
		return HTTPLevel(n), nil
	}
	return HTTPLevelNone, fmt.Errorf("invalid HTTP log level %q (expected %s or 0-%d)",
		s, strings.Join(httpLevelNames[:], ", "), len(httpLevelNames)-1)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *HTTPLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseHTTPLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (l HTTPLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Set implements pflag.Value so the level can be bound to a flag directly.
func (l *HTTPLevel) Set(s string) error {
	return l.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (l *HTTPLevel) Type() string {
	return "level"
}
