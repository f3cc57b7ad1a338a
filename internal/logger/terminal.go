package logger

import (
	"github.com/mattn/go-isatty"
)

// isTerminal reports whether fd refers to a terminal.
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
