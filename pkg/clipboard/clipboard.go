// Package clipboard copies text to the system clipboard through the
// platform's stock helper command:
//
//	darwin   — pbcopy
//	windows  — cmd /c clip
//	other    — xclip -selection clipboard
//
// The helper is fed the text on stdin and nothing is retried: if the helper
// is missing or exits non-zero, the caller decides what to do with the
// failure. Shelling out keeps the binary cgo-free and behaves identically
// inside the stream-deck host's sandbox and on a bare shell.
package clipboard

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/deckwork/ipkey/pkg/errors"
)

// Writer copies text to the system clipboard.
type Writer interface {
	// Name identifies the underlying command for logs.
	Name() string

	// Copy places text on the clipboard, replacing its contents.
	Copy(ctx context.Context, text string) error
}

// runner executes a helper command, feeding it stdin.
// Swapped out in tests.
type runner func(ctx context.Context, name string, args []string, stdin string) error

type commandWriter struct {
	command string
	args    []string
	run     runner
}

// New returns the Writer for the current platform.
func New() Writer {
	return NewForPlatform(runtime.GOOS)
}

// NewForPlatform returns the Writer for the given GOOS value. Anything that
// is not darwin or windows gets the X11 helper.
func NewForPlatform(goos string) Writer {
	switch goos {
	case "darwin":
		return &commandWriter{command: "pbcopy", run: runCommand}
	case "windows":
		return &commandWriter{command: "cmd", args: []string{"/c", "clip"}, run: runCommand}
	default:
		return &commandWriter{command: "xclip", args: []string{"-selection", "clipboard"}, run: runCommand}
	}
}

// Name returns the full helper command line.
func (w *commandWriter) Name() string {
	if len(w.args) == 0 {
		return w.command
	}
	return w.command + " " + strings.Join(w.args, " ")
}

// Copy pipes text into the helper command. Empty text is passed through
// unchanged; clearing the clipboard is a legitimate copy.
func (w *commandWriter) Copy(ctx context.Context, text string) error {
	return w.run(ctx, w.command, w.args, text)
}

func runCommand(ctx context.Context, name string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &errors.CommandError{
			Command: name,
			Stderr:  strings.TrimSpace(stderr.String()),
			Cause:   err,
		}
	}
	return nil
}
