package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/muurk/echoserver/internal/logging"
	"github.com/muurk/echoserver/internal/middleware"
)

// EnvPrefix prefixes every environment override, e.g. ECHO_PORT.
const EnvPrefix = "ECHO_"

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Load reads the configuration file at path over the defaults. An empty
// path means the default location, where a missing file is not an error;
// a missing file at an explicit path is ErrConfigNotFound.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if explicit {
			return nil, &LoadError{File: path, Err: ErrConfigNotFound}
		}
		return cfg, nil
	}
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{File: path, Err: fmt.Errorf("%w: %v", ErrInvalidYAML, err)}
	}

	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment without
// overriding variables that are already set. An empty path tries ./.env
// and ignores its absence.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return &LoadError{File: path, Err: err}
	}
	return nil
}

// ApplyEnv overrides fields from ECHO_* variables found by lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"HOST", func(v string) error { c.Host = v; return nil }},
		{"PORT", intField(&c.Port)},
		{"HTTP_LOG_LEVEL", c.HTTPLogLevel.Set},
		{"WS_LOGGING", boolField(&c.WSLogging)},
		{"WS_PING_INTERVAL", durationField(&c.WSPingInterval)},
		{"MAX_MESSAGE_SIZE", int64Field(&c.MaxMessageSize)},
		{"CLOSE_GRACE_PERIOD", durationField(&c.CloseGracePeriod)},
		{"SHUTDOWN_TIMEOUT", durationField(&c.ShutdownTimeout)},
		{"LOG_BACKEND", func(v string) error {
			b, err := middleware.ParseBackend(v)
			c.LogBackend = b
			return err
		}},
		{"LOG_LEVEL", func(v string) error { c.LogLevel = v; return nil }},
		{"TLS_CERT", func(v string) error { c.TLS.Cert = v; return nil }},
		{"TLS_KEY", func(v string) error { c.TLS.Key = v; return nil }},
		{"MDNS_ENABLED", boolField(&c.MDNS.Enabled)},
		{"MDNS_INSTANCE", func(v string) error { c.MDNS.Instance = v; return nil }},
	}

	for _, o := range overrides {
		v, ok := lookup(EnvPrefix + o.key)
		if !ok {
			continue
		}
		if err := o.apply(v); err != nil {
			return &ValidationError{Source: "env", Field: EnvPrefix + o.key, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
		}
	}
	return nil
}

func intField(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func int64Field(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolField(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

// durationField accepts Go durations; empty or "0" means zero.
func durationField(dst *time.Duration) func(string) error {
	return func(v string) error {
		if v == "" || v == "0" {
			*dst = 0
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// Validate checks ranges and combinations the server cannot recover from.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return invalid("config", "port", "%d out of range 0-65535", c.Port)
	}
	if c.HTTPLogLevel > logging.HTTPLevelURIHeadersBody {
		return invalid("config", "http_log_level", "unknown level %d", c.HTTPLogLevel)
	}
	for field, d := range map[string]time.Duration{
		"ws_ping_interval":   c.WSPingInterval,
		"close_grace_period": c.CloseGracePeriod,
		"shutdown_timeout":   c.ShutdownTimeout,
	} {
		if d < 0 {
			return invalid("config", field, "negative duration %s", d)
		}
	}
	if c.MaxMessageSize <= 0 {
		return invalid("config", "max_message_size", "must be positive, got %d", c.MaxMessageSize)
	}
	if _, err := middleware.ParseBackend(string(c.LogBackend)); err != nil {
		return invalid("config", "log_backend", "%v", err)
	}
	if (c.TLS.Cert == "") != (c.TLS.Key == "") {
		return invalid("config", "tls", "cert and key must be given together")
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return invalid("config", "log_level", "%v", err)
		}
	}
	return nil
}

// Save writes c to path atomically, creating the directory if needed.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Echo server configuration file.
# Every key can be overridden by an ECHO_* environment variable
# (ECHO_PORT, ECHO_HTTP_LOG_LEVEL, ...) and by command-line flags.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
