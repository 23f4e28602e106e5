package cliui

import (
	"fmt"
	"io"
	"os"
	"time"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"
)

var spinner = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinInterval = 80 * time.Millisecond

// Step runs fn and prints msg with a ✓ or ✗ and the elapsed time. On a
// terminal a spinner is drawn while fn runs; elsewhere only the result line
// is written.
func Step(w io.Writer, msg string, fn func() error) error {
	start := time.Now()

	var err error
	if IsTerminal(w) {
		err = spin(w, msg, fn)
		fmt.Fprint(w, "\r")
	} else {
		err = fn()
	}

	fmt.Fprintf(w, "  %s %s %s\n", Mark(err), msg,
		DimStyle.Render("("+FormatDuration(time.Since(start))+")"))
	return err
}

func spin(w io.Writer, msg string, fn func() error) error {
	result := make(chan error, 1)
	go func() { result <- fn() }()

	style := lipgloss.NewStyle().Foreground(green)
	ticker := time.NewTicker(spinInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprintf(w, "\r  %s %s", style.Render(spinner[i%len(spinner)]), msg)
		select {
		case err := <-result:
			return err
		case <-ticker.C:
		}
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
