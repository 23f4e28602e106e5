package cliui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultWrap = 100
	minWrap     = 40
)

// RenderMarkdown renders a frame's markdown for w, wrapping to the terminal
// width when w is one. On failure the raw content is returned with the error.
func RenderMarkdown(w io.Writer, content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(wrapWidth(w)),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}

func wrapWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWrap
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols < minWrap {
		return defaultWrap
	}
	return min(cols, defaultWrap)
}
