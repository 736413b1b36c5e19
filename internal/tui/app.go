package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/echoserver/internal/client"
	"github.com/muurk/echoserver/internal/discovery"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenSession   Screen = "session"
)

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen

	Discovery DiscoveryModel
	Session   SessionModel

	// startedWithURL is set when the client was launched against a fixed
	// URL; leaving the session then quits instead of returning to discovery.
	startedWithURL bool

	Width  int
	Height int

	dial DialFunc
}

// NewAppModel creates the application model. With a non-empty url the app
// connects straight away, otherwise it starts by scanning for servers.
func NewAppModel(url string, scan ScanFunc, dial DialFunc) AppModel {
	m := AppModel{
		CurrentScreen: ScreenDiscovery,
		Discovery:     NewDiscoveryModel(scan),
		dial:          dial,
	}
	if url != "" {
		m.CurrentScreen = ScreenSession
		m.startedWithURL = true
		m.Session = NewSessionModel(url, dial)
	}
	return m
}

// Init initializes the current screen
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenSession:
		return m.Session.Init()
	default:
		return m.Discovery.Init()
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		var c1, c2 tea.Cmd
		m.Discovery, c1 = m.Discovery.Update(msg)
		m.Session, c2 = m.Session.Update(msg)
		return m, tea.Batch(c1, c2)

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			c := m.Session.Client
			m.Session.Client = nil
			return m, tea.Sequence(closeClient(c), tea.Quit)
		}

	case connectRequestMsg:
		m.CurrentScreen = ScreenSession
		m.Session = NewSessionModel(msg.url, m.dial)
		m.Session, _ = m.Session.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height})
		return m, m.Session.Init()

	case sessionEndedMsg:
		if m.startedWithURL {
			return m, tea.Quit
		}
		m.CurrentScreen = ScreenDiscovery
		m.Session = SessionModel{}
		m.Discovery.Err = nil
		return m, nil
	}

	var cmd tea.Cmd
	switch m.CurrentScreen {
	case ScreenSession:
		m.Session, cmd = m.Session.Update(msg)
	default:
		m.Discovery, cmd = m.Discovery.Update(msg)
	}
	return m, cmd
}

// View renders the current screen inside the application container
func (m AppModel) View() string {
	var content string
	switch m.CurrentScreen {
	case ScreenSession:
		content = m.Session.View()
	default:
		content = m.Discovery.View()
	}
	return renderContainer(content, m.Width)
}

func renderContainer(content string, width int) string {
	w := contentWidth(width)
	return lipgloss.JoinVertical(lipgloss.Left,
		BuildHeaderContent(),
		BoxStyle.Width(w-2).Render(content),
	)
}

// Run starts the interactive client. An empty url opens the discovery screen.
func Run(url string, opts client.Options) error {
	scanner := discovery.NewScanner()
	dial := func(ctx context.Context, u string) (*client.Client, error) {
		return client.Dial(ctx, u, opts)
	}

	program := tea.NewProgram(NewAppModel(url, scanner.Scan, dial), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
