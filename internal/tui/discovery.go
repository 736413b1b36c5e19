package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/echoserver/internal/discovery"
)

// ScanFunc finds echo servers on the network.
type ScanFunc func(ctx context.Context) ([]*discovery.Instance, error)

type scanCompleteMsg struct {
	instances []*discovery.Instance
	err       error
}

// connectRequestMsg asks the app to open a session to url.
type connectRequestMsg struct {
	url string
}

// instanceItem wraps an Instance for use with bubbles/list
type instanceItem struct {
	inst *discovery.Instance
}

func (i instanceItem) FilterValue() string {
	return i.inst.Name + " " + i.inst.IP + " " + i.inst.Hostname
}

func (i instanceItem) Title() string {
	return i.inst.Name
}

func (i instanceItem) Description() string {
	desc := i.inst.WebSocketURL()
	if i.inst.Version != "" {
		desc += " • " + i.inst.Version
	}
	return desc
}

// DiscoveryModel lists echo servers found over mDNS and lets the user pick
// one or type a URL.
type DiscoveryModel struct {
	Scanning bool
	List     list.Model
	Err      error

	ManualMode bool
	URLInput   textinput.Model

	Width      int
	Height     int
	Spinner    spinner.Model
	Help       help.Model
	Keys       discoveryKeyMap
	ManualKeys manualKeyMap

	scan ScanFunc
}

// NewDiscoveryModel creates a new discovery screen model
func NewDiscoveryModel(scan ScanFunc) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	urlInput := textinput.New()
	urlInput.Placeholder = "ws://127.0.0.1:8080/"
	urlInput.Width = 50

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Echo servers"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle

	return DiscoveryModel{
		Scanning:   true,
		List:       l,
		URLInput:   urlInput,
		Spinner:    s,
		Help:       help.New(),
		Keys:       newDiscoveryKeys(),
		ManualKeys: newManualKeys(),
		scan:       scan,
	}
}

// Init starts the first scan
func (m DiscoveryModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.startScan())
}

func (m DiscoveryModel) startScan() tea.Cmd {
	scan := m.scan
	return func() tea.Msg {
		instances, err := scan(context.Background())
		return scanCompleteMsg{instances: instances, err: err}
	}
}

// Update handles messages for the discovery screen
func (m DiscoveryModel) Update(msg tea.Msg) (DiscoveryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.List.SetSize(contentWidth(msg.Width)-4, max(msg.Height-8, 4))
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, 0, len(msg.instances))
		for _, inst := range msg.instances {
			items = append(items, instanceItem{inst: inst})
		}
		return m, m.List.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManual(msg)
		}
		if m.List.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Rescan) && !m.Scanning:
			m.Scanning = true
			m.Err = nil
			return m, tea.Batch(m.Spinner.Tick, m.startScan())
		case key.Matches(msg, m.Keys.Manual):
			m.ManualMode = true
			return m, m.URLInput.Focus()
		case key.Matches(msg, m.Keys.Enter):
			if item, ok := m.List.SelectedItem().(instanceItem); ok {
				url := item.inst.WebSocketURL()
				return m, func() tea.Msg { return connectRequestMsg{url: url} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

func (m DiscoveryModel) updateManual(msg tea.KeyMsg) (DiscoveryModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Confirm):
		url := strings.TrimSpace(m.URLInput.Value())
		if url == "" {
			return m, nil
		}
		m.ManualMode = false
		m.URLInput.Blur()
		m.URLInput.Reset()
		return m, func() tea.Msg { return connectRequestMsg{url: url} }
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.URLInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.URLInput, cmd = m.URLInput.Update(msg)
	return m, cmd
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var b strings.Builder

	switch {
	case m.ManualMode:
		b.WriteString(RenderTitle("Connect to URL"))
		b.WriteString("\n")
		b.WriteString(m.URLInput.View())
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render(m.Help.View(m.ManualKeys)))
		return b.String()

	case m.Scanning:
		b.WriteString(fmt.Sprintf("%s Scanning for echo servers...\n", m.Spinner.View()))

	case m.Err != nil:
		b.WriteString(RenderError("Discovery failed: " + m.Err.Error()))
		b.WriteString("\n")

	case len(m.List.Items()) == 0:
		b.WriteString(SubtitleStyle.Render("No echo servers found. Press r to rescan or m to enter a URL."))
		b.WriteString("\n")

	default:
		b.WriteString(m.List.View())
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
	return b.String()
}
