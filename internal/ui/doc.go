// Package ui renders the styled terminal output of the echo-server CLI:
// the startup banner, the discovery listing and error boxes.
//
// These components follow a "print once" pattern; the interactive client
// lives in package tui. Callers print styled output only when stdout is a
// terminal (see IsTerminal) and fall back to plain log lines otherwise.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Echo Server", "echo-server server",
//	    ui.Param{Key: "Listening", Value: srv.URL("http")},
//	)
package ui
