package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
)

// ctrlQ is the byte a terminal sends for Ctrl-Q when not intercepted.
const ctrlQ = "\x11"

// isQuitCommand reports whether a console line asks the listener to stop.
func isQuitCommand(line string) bool {
	switch strings.TrimSpace(line) {
	case "q", "Q", ctrlQ:
		return true
	}
	return false
}

// watchConsole calls stop when a quit command is read from r. It returns at
// EOF or after stop.
func watchConsole(ctx context.Context, r io.Reader, stop context.CancelFunc) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if isQuitCommand(sc.Text()) {
			slog.Info("console quit requested")
			stop()
			return
		}
	}
}
