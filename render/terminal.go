package render

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// TerminalSize returns the size of the terminal attached to f.
func TerminalSize(f *os.File) (width, height int, err error) {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, fmt.Errorf("getting terminal size: %w", err)
	}
	return int(ws.Col), int(ws.Row), nil
}

// Width returns the terminal width of f, or DefaultWidth when f is not a
// terminal.
func Width(f *os.File) int {
	w, _, err := TerminalSize(f)
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

const (
	Bold  = "\033[1m"
	Dim   = "\033[2m"
	Reset = "\033[0m"
)
