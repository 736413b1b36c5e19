package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/echoserver/internal/config"
	"github.com/muurk/echoserver/internal/logging"
	"github.com/muurk/echoserver/internal/middleware"
	"github.com/muurk/echoserver/internal/server"
	"github.com/muurk/echoserver/internal/shutdown"
	"github.com/muurk/echoserver/internal/version"
)

// newServerFlags returns a fresh command with the server flags parsed from args.
func newServerFlags(t *testing.T, args ...string) (*cobra.Command, *serverFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "server"}
	f := &serverFlags{}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// isolate points the default config location at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadServerConfigDefaults(t *testing.T) {
	isolate(t)
	cmd, f := newServerFlags(t)

	cfg, err := loadServerConfig(cmd, f)
	require.NoError(t, err)

	assert.Equal(t, server.DefaultHost, cfg.Host)
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, logging.HTTPLevelNone, cfg.HTTPLogLevel)
	assert.Equal(t, middleware.BackendWrap, cfg.LogBackend)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoadServerConfigLayering(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.yaml", `
host: 0.0.0.0
port: 8080
http_log_level: uri
ws_ping_interval: 30s
`)
	t.Setenv("ECHO_PORT", "9090")
	t.Setenv("ECHO_WS_LOGGING", "true")

	cmd, f := newServerFlags(t, "--config", path, "--http-log-level", "uri-headers-body", "--max-message-size", "1024")

	cfg, err := loadServerConfig(cmd, f)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host, "from file")
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval, "from file")
	assert.Equal(t, 9090, cfg.Port, "env overrides file")
	assert.True(t, cfg.WSLogging, "from env")
	assert.Equal(t, logging.HTTPLevelURIHeadersBody, cfg.HTTPLogLevel, "flag overrides file")
	assert.Equal(t, int64(1024), cfg.MaxMessageSize, "from flag")
	assert.Equal(t, "info", cfg.LogLevel, "traffic logging implies info")
}

func TestLoadServerConfigUnsetFlagsDoNotOverride(t *testing.T) {
	isolate(t)
	t.Setenv("ECHO_HOST", "0.0.0.0")

	// --port is set, --host is left at its default and must not clobber env
	cmd, f := newServerFlags(t, "--port", "8081")

	cfg, err := loadServerConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8081, cfg.Port)
}

func TestLoadServerConfigEnvFile(t *testing.T) {
	isolate(t)
	envFile := writeFile(t, "echo.env", "ECHO_PORT=7070\nECHO_LOG_BACKEND=hooks\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("ECHO_PORT")
		_ = os.Unsetenv("ECHO_LOG_BACKEND")
	})

	cmd, f := newServerFlags(t, "--env-file", envFile)

	cfg, err := loadServerConfig(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, middleware.BackendHooks, cfg.LogBackend)
}

func TestLoadServerConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing explicit config",
			args:    []string{"--config", "/nonexistent/echo.yaml"},
			wantErr: config.ErrConfigNotFound,
		},
		{
			name:    "bad env value",
			env:     map[string]string{"ECHO_PORT": "eighty"},
			wantErr: config.ErrInvalidValue,
		},
		{
			name:    "unknown backend flag",
			args:    []string{"--log-backend", "nope"},
			wantErr: config.ErrInvalidValue,
		},
		{
			name:    "cert without key",
			args:    []string{"--tls-cert", "cert.pem"},
			wantErr: config.ErrInvalidValue,
		},
		{
			name:    "port out of range",
			args:    []string{"--port", "70000"},
			wantErr: config.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cmd, f := newServerFlags(t, tt.args...)

			_, err := loadServerConfig(cmd, f)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvalidHTTPLogLevelFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "server"}
	f := &serverFlags{}
	f.register(cmd)

	assert.Error(t, cmd.ParseFlags([]string{"--http-log-level", "verbose"}))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	configInitPath = path
	configInitForce = false
	t.Cleanup(func() { configInitPath, configInitForce = "", false })

	var out bytes.Buffer
	configInitCmd.SetOut(&out)
	require.NoError(t, runConfigInit(configInitCmd, nil))
	assert.Contains(t, out.String(), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	// Refuses to overwrite without --force
	assert.Error(t, runConfigInit(configInitCmd, nil))
	configInitForce = true
	assert.NoError(t, runConfigInit(configInitCmd, nil))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "echo-server "+version.Get())
}

func TestBannerParams(t *testing.T) {
	srv, err := server.New(&server.Config{})
	require.NoError(t, err)
	sig := shutdown.New()
	done := make(chan error, 1)
	go func() { done <- srv.Run(sig) }()
	t.Cleanup(func() {
		sig.Fire()
		<-done
	})

	cfg := config.Default()
	cfg.WSPingInterval = 15 * time.Second

	params := bannerParams(cfg, srv)
	require.Len(t, params, 6)
	assert.Equal(t, srv.URL("http")+"/", params[0].Value)
	assert.Equal(t, srv.URL("ws")+"/", params[1].Value)
	assert.Equal(t, "none", params[2].Value)
	assert.Equal(t, "15s", params[4].Value)
	assert.Equal(t, "off", params[5].Value)
}
