package tui

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/echoserver/internal/client"
)

// DialFunc opens a client connection to url.
type DialFunc func(ctx context.Context, url string) (*client.Client, error)

// Session lifecycle messages
type connectedMsg struct {
	client *client.Client
}

type connectFailedMsg struct {
	err error
}

// eventMsg and disconnectedMsg carry the client they came from so that a
// late message from a closed session is not applied to the next one.
type eventMsg struct {
	client *client.Client
	event  client.Event
}

type disconnectedMsg struct {
	client *client.Client
	err    error
}

type sendFailedMsg struct {
	err error
}

// sessionEndedMsg is sent after the user leaves a session.
type sessionEndedMsg struct{}

// maxBinaryPreview caps how many bytes of a binary echo are shown in hex
const maxBinaryPreview = 32

// SessionModel is a live connection to one echo server.
type SessionModel struct {
	URL        string
	Connecting bool
	Client     *client.Client
	Transcript []string
	Err        error

	Input   textinput.Model
	Spinner spinner.Model
	Help    help.Model
	Keys    sessionKeyMap

	Width  int
	Height int

	dial DialFunc
}

// NewSessionModel creates a session screen that connects to url on Init
func NewSessionModel(url string, dial DialFunc) SessionModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "message"
	input.CharLimit = 4096
	input.Width = 50
	input.Focus()

	return SessionModel{
		URL:        url,
		Connecting: true,
		Input:      input,
		Spinner:    s,
		Help:       help.New(),
		Keys:       newSessionKeys(),
		dial:       dial,
	}
}

// Init starts the connection attempt
func (m SessionModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, connect(m.dial, m.URL), textinput.Blink)
}

func connect(dial DialFunc, url string) tea.Cmd {
	return func() tea.Msg {
		c, err := dial(context.Background(), url)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{client: c}
	}
}

// waitForEvent blocks on the client's event stream and delivers one event
func waitForEvent(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.Events()
		if !ok {
			return disconnectedMsg{client: c, err: c.Err()}
		}
		return eventMsg{client: c, event: ev}
	}
}

// closeClient closes c and reports the session as ended
func closeClient(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		if c != nil {
			_ = c.Close()
		}
		return sessionEndedMsg{}
	}
}

// Update handles messages for the session screen
func (m SessionModel) Update(msg tea.Msg) (SessionModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Input.Width = max(contentWidth(msg.Width)-8, 10)
		return m, nil

	case spinner.TickMsg:
		if !m.Connecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case connectedMsg:
		m.Connecting = false
		m.Client = msg.client
		m.appendLine(InfoStyle.Render("connected to " + msg.client.URL()))
		return m, waitForEvent(msg.client)

	case connectFailedMsg:
		m.Connecting = false
		m.Err = msg.err
		return m, nil

	case eventMsg:
		if msg.client != m.Client {
			return m, nil
		}
		m.appendLine(describeEvent(msg.event))
		return m, waitForEvent(m.Client)

	case disconnectedMsg:
		if msg.client != m.Client {
			return m, nil
		}
		m.Client = nil
		m.appendLine(InfoStyle.Render("connection closed"))
		if msg.err != nil {
			m.Err = msg.err
		}
		return m, nil

	case sendFailedMsg:
		m.Err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m SessionModel) handleKey(msg tea.KeyMsg) (SessionModel, tea.Cmd) {
	c := m.Client

	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Client = nil
		return m, closeClient(c)

	case key.Matches(msg, m.Keys.SendText), key.Matches(msg, m.Keys.SendBinary):
		text := m.Input.Value()
		if c == nil || text == "" {
			return m, nil
		}
		m.Input.Reset()
		binary := key.Matches(msg, m.Keys.SendBinary)
		if binary {
			m.appendLine(SentStyle.Render("→ " + binaryPreview([]byte(text))))
		} else {
			m.appendLine(SentStyle.Render("→ " + text))
		}
		return m, func() tea.Msg {
			var err error
			if binary {
				err = c.SendBinary([]byte(text))
			} else {
				err = c.SendText(text)
			}
			if err != nil {
				return sendFailedMsg{err: err}
			}
			return nil
		}

	case key.Matches(msg, m.Keys.Ping):
		if c == nil {
			return m, nil
		}
		m.appendLine(SentStyle.Render("→ ping"))
		return m, func() tea.Msg {
			if err := c.Ping(); err != nil {
				return sendFailedMsg{err: err}
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m *SessionModel) appendLine(line string) {
	m.Transcript = append(m.Transcript, line)
	if len(m.Transcript) > transcriptLimit {
		m.Transcript = m.Transcript[len(m.Transcript)-transcriptLimit:]
	}
}

func describeEvent(ev client.Event) string {
	switch {
	case ev.Kind == client.EventPong:
		return ReceivedStyle.Render(fmt.Sprintf("← pong (%s)", ev.RTT.Round(time.Microsecond)))
	case ev.Binary:
		return ReceivedStyle.Render("← " + binaryPreview(ev.Data))
	default:
		return ReceivedStyle.Render("← " + ev.Text())
	}
}

func binaryPreview(data []byte) string {
	shown := data
	suffix := ""
	if len(shown) > maxBinaryPreview {
		shown = shown[:maxBinaryPreview]
		suffix = "…"
	}
	return fmt.Sprintf("[binary %d bytes] %s%s", len(data), hex.EncodeToString(shown), suffix)
}

// visibleTranscript returns the tail of the transcript that fits the screen
func (m SessionModel) visibleTranscript() []string {
	rows := m.Height - 10
	if rows <= 0 || rows >= len(m.Transcript) {
		return m.Transcript
	}
	return m.Transcript[len(m.Transcript)-rows:]
}

// View renders the session screen
func (m SessionModel) View() string {
	var b strings.Builder

	b.WriteString(RenderTitle(m.URL))
	b.WriteString("\n")

	if m.Connecting {
		b.WriteString(fmt.Sprintf("%s Connecting...\n", m.Spinner.View()))
		return b.String()
	}

	for _, line := range m.visibleTranscript() {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n")
	}

	if m.Client != nil {
		b.WriteString("\n")
		b.WriteString(m.Input.View())
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
	return b.String()
}
