package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the undolog banner and version to out.
func PrintBanner(out *termenv.Output, version string) {
	lines := []struct{ text, color string }{
		{"                 _       _             ", "#818cf8"},
		{"  _   _ _ __   __| | ___ | | ___   __ _ ", "#a78bfa"},
		{" | | | | '_ \\ / _` |/ _ \\| |/ _ \\ / _` |", "#c084fc"},
		{" | |_| | | | | (_| | (_) | | (_) | (_| |", "#e879f9"},
		{"  \\__,_|_| |_|\\__,_|\\___/|_|\\___/ \\__, |", "#f472b6"},
		{"                                  |___/ ", "#fb7185"},
	}

	fmt.Fprintln(out)
	for _, l := range lines {
		fmt.Fprintln(out, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(out, out.String("  version "+version).Faint())
	fmt.Fprintln(out)
}

// NewOutput wraps w. When color is false all styling is dropped.
func NewOutput(w io.Writer, color bool) *termenv.Output {
	if !color {
		return termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	return termenv.NewOutput(w)
}
