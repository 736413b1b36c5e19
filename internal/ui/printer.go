package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muurk/echoserver/internal/discovery"
)

// Printer provides methods for printing UI components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(NewFailureResult(title, err, troubleshooting...).SetWidth(p.width).Render())
}

// PrintWarning prints a single warning line
func (p *Printer) PrintWarning(msg string) {
	p.Println(WarningStyle.Render(WarningMarker + " " + msg))
}

// PrintInstances lists discovered echo servers, one block per server.
func (p *Printer) PrintInstances(instances []*discovery.Instance) {
	if len(instances) == 0 {
		p.PrintError("No echo servers found", nil,
			"Check the server was started with mDNS enabled",
			"Make sure both machines are on the same network segment",
			"Allow UDP port 5353 through the firewall",
		)
		return
	}

	noun := "echo servers"
	if len(instances) == 1 {
		noun = "echo server"
	}
	p.PrintSuccess(fmt.Sprintf("Found %d %s", len(instances), noun))

	for _, inst := range instances {
		p.Println(ListNameStyle.Render(ItemMarker + " " + inst.Name))
		details := []string{inst.WebSocketURL(), inst.Hostname}
		if inst.Version != "" {
			details = append(details, "version "+inst.Version)
		}
		p.Println(ListDetailStyle.Render(strings.Join(details, "  ·  ")))
	}
}
