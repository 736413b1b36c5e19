package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muurk/echoserver/internal/client"
	"github.com/muurk/echoserver/internal/discovery"
	"github.com/muurk/echoserver/internal/server"
	"github.com/muurk/echoserver/internal/shutdown"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func fakeScan(instances []*discovery.Instance, err error) ScanFunc {
	return func(context.Context) ([]*discovery.Instance, error) {
		return instances, err
	}
}

func failingDial(err error) DialFunc {
	return func(context.Context, string) (*client.Client, error) {
		return nil, err
	}
}

func startEchoServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New(&server.Config{Logger: zap.NewNop()})
	require.NoError(t, err)

	sig := shutdown.New()
	done := make(chan error, 1)
	go func() { done <- srv.Run(sig) }()
	t.Cleanup(func() {
		sig.Fire()
		<-done
	})
	return srv.URL("ws") + "/"
}

func realDial(ctx context.Context, url string) (*client.Client, error) {
	return client.Dial(ctx, url, client.Options{})
}

// runCmd executes cmd with a timeout so a stuck command fails the test.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("command did not complete")
	}
	return nil
}

func TestDiscoveryListsScanResults(t *testing.T) {
	instances := []*discovery.Instance{
		{Name: "bench", IP: "10.0.0.5", Port: 8080, Version: "v1.2.0"},
		{Name: "lab", IP: "10.0.0.6", Port: 8443, TLS: true},
	}
	m := NewDiscoveryModel(fakeScan(instances, nil))
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.True(t, m.Scanning)
	assert.Contains(t, m.View(), "Scanning")

	m, _ = m.Update(runCmd(t, m.startScan()))
	assert.False(t, m.Scanning)
	require.Len(t, m.List.Items(), 2)

	item := m.List.Items()[0].(instanceItem)
	assert.Equal(t, "bench", item.Title())
	assert.Equal(t, "ws://10.0.0.5:8080/ • v1.2.0", item.Description())

	m, cmd := m.Update(enter)
	assert.Equal(t, connectRequestMsg{url: "ws://10.0.0.5:8080/"}, runCmd(t, cmd))
}

func TestDiscoveryScanFailure(t *testing.T) {
	m := NewDiscoveryModel(fakeScan(nil, errors.New("no multicast interface")))
	m, _ = m.Update(runCmd(t, m.startScan()))

	assert.False(t, m.Scanning)
	assert.Contains(t, m.View(), "no multicast interface")
}

func TestDiscoveryEmptyResult(t *testing.T) {
	m := NewDiscoveryModel(fakeScan(nil, nil))
	m, _ = m.Update(runCmd(t, m.startScan()))

	assert.Contains(t, m.View(), "No echo servers found")

	// Enter with nothing selected does nothing
	_, cmd := m.Update(enter)
	assert.Nil(t, cmd)
}

func TestDiscoveryRescan(t *testing.T) {
	calls := 0
	scan := func(context.Context) ([]*discovery.Instance, error) {
		calls++
		return nil, nil
	}
	m := NewDiscoveryModel(scan)
	m, _ = m.Update(runCmd(t, m.startScan()))
	require.Equal(t, 1, calls)

	m, cmd := m.Update(runes("r"))
	assert.True(t, m.Scanning)
	assert.NotNil(t, cmd)

	// A second rescan while one is in flight is ignored
	m, _ = m.Update(runes("r"))
	assert.True(t, m.Scanning)
}

func TestDiscoveryManualEntry(t *testing.T) {
	m := NewDiscoveryModel(fakeScan(nil, nil))
	m, _ = m.Update(runCmd(t, m.startScan()))

	m, _ = m.Update(runes("m"))
	require.True(t, m.ManualMode)
	assert.Contains(t, m.View(), "Connect to URL")

	// Empty input is not submitted
	m, cmd := m.Update(enter)
	assert.Nil(t, cmd)
	assert.True(t, m.ManualMode)

	m, _ = m.Update(runes("ws://bench.local:9000/"))
	m, cmd = m.Update(enter)
	assert.False(t, m.ManualMode)
	assert.Equal(t, connectRequestMsg{url: "ws://bench.local:9000/"}, runCmd(t, cmd))
}

func TestDiscoveryManualCancel(t *testing.T) {
	m := NewDiscoveryModel(fakeScan(nil, nil))
	m, _ = m.Update(runCmd(t, m.startScan()))

	m, _ = m.Update(runes("m"))
	m, _ = m.Update(runes("q"))
	assert.True(t, m.ManualMode, "q is typed into the input, not treated as quit")

	m, _ = m.Update(esc)
	assert.False(t, m.ManualMode)
}

func TestSessionConnectFailure(t *testing.T) {
	m := NewSessionModel("ws://127.0.0.1:1/", failingDial(errors.New("connection refused")))
	assert.Contains(t, m.View(), "Connecting")

	m, _ = m.Update(runCmd(t, connect(m.dial, m.URL)))
	assert.False(t, m.Connecting)
	assert.Nil(t, m.Client)
	assert.Contains(t, m.View(), "connection refused")
}

func TestSessionEchoRoundTrip(t *testing.T) {
	url := startEchoServer(t)

	app := NewAppModel(url, fakeScan(nil, nil), realDial)
	require.Equal(t, ScreenSession, app.CurrentScreen)

	model, wait := app.Update(runCmd(t, connect(realDial, url)))
	app = model.(AppModel)
	require.NotNil(t, app.Session.Client)

	model, _ = app.Update(runes("hello"))
	app = model.(AppModel)
	model, send := app.Update(enter)
	app = model.(AppModel)
	assert.Nil(t, runCmd(t, send))
	assert.Empty(t, app.Session.Input.Value())

	model, wait = app.Update(runCmd(t, wait))
	app = model.(AppModel)
	transcript := strings.Join(app.Session.Transcript, "\n")
	assert.Contains(t, transcript, "→ hello")
	assert.Contains(t, transcript, "← hello")

	model, ping := app.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	app = model.(AppModel)
	assert.Nil(t, runCmd(t, ping))
	model, _ = app.Update(runCmd(t, wait))
	app = model.(AppModel)
	assert.Contains(t, app.Session.Transcript[len(app.Session.Transcript)-1], "pong")

	// Leaving a session started from a URL quits the program
	model, closeCmd := app.Update(esc)
	app = model.(AppModel)
	ended := runCmd(t, closeCmd)
	require.Equal(t, sessionEndedMsg{}, ended)
	_, quit := app.Update(ended)
	assert.Equal(t, tea.Quit(), runCmd(t, quit))
}

func TestSessionBinaryEcho(t *testing.T) {
	url := startEchoServer(t)

	m := NewSessionModel(url, realDial)
	m, wait := m.Update(runCmd(t, connect(realDial, url)))
	t.Cleanup(func() { runCmd(t, closeClient(m.Client)) })

	m, _ = m.Update(runes("hi"))
	m, send := m.Update(tea.KeyMsg{Type: tea.KeyCtrlB})
	assert.Nil(t, runCmd(t, send))

	m, _ = m.Update(runCmd(t, wait))
	assert.Contains(t, m.Transcript[len(m.Transcript)-1], "← [binary 2 bytes] 6869")
}

func TestSessionEndReturnsToDiscovery(t *testing.T) {
	app := NewAppModel("", fakeScan(nil, nil), failingDial(errors.New("refused")))
	require.Equal(t, ScreenDiscovery, app.CurrentScreen)

	model, _ := app.Update(connectRequestMsg{url: "ws://10.0.0.5:8080/"})
	app = model.(AppModel)
	assert.Equal(t, ScreenSession, app.CurrentScreen)
	assert.Equal(t, "ws://10.0.0.5:8080/", app.Session.URL)

	model, cmd := app.Update(sessionEndedMsg{})
	app = model.(AppModel)
	assert.Nil(t, cmd)
	assert.Equal(t, ScreenDiscovery, app.CurrentScreen)
}

func TestStaleSessionMessagesAreIgnored(t *testing.T) {
	m := NewSessionModel("ws://10.0.0.5:8080/", failingDial(errors.New("refused")))
	m.Connecting = false
	stale := &client.Client{}

	m, cmd := m.Update(eventMsg{client: stale, event: client.Event{Data: []byte("late")}})
	assert.Nil(t, cmd)
	assert.Empty(t, m.Transcript)

	m, _ = m.Update(disconnectedMsg{client: stale, err: errors.New("gone")})
	assert.Nil(t, m.Err)
}

func TestTranscriptIsBounded(t *testing.T) {
	var m SessionModel
	for i := 0; i < transcriptLimit+50; i++ {
		m.appendLine("line")
	}
	assert.Len(t, m.Transcript, transcriptLimit)
}

func TestBinaryPreview(t *testing.T) {
	assert.Equal(t, "[binary 2 bytes] dead", binaryPreview([]byte{0xde, 0xad}))

	long := binaryPreview(make([]byte, maxBinaryPreview+1))
	assert.True(t, strings.HasPrefix(long, "[binary 33 bytes] "))
	assert.True(t, strings.HasSuffix(long, "…"))
}
