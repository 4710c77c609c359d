package controller

import "io"

// New picks TUI for an interactive terminal and SimpleUI otherwise.
func New(out io.Writer, interactive bool) UI {
	if interactive {
		return NewTUI(out)
	}
	return NewSimpleUI(out)
}
