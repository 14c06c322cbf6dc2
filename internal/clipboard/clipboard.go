// Package clipboard copies exported graph documents to the system clipboard
// through the platform's clipboard tool.
package clipboard

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// LookPathFunc resolves a program name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Command returns the command that reads stdin into the clipboard on goos.
// On Linux xclip is preferred over xsel.
func Command(goos string, lookPath LookPathFunc) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		if _, err := lookPath("pbcopy"); err == nil {
			return exec.Command("pbcopy"), nil
		}
	case "linux", "freebsd", "openbsd":
		if _, err := lookPath("xclip"); err == nil {
			return exec.Command("xclip", "-selection", "clipboard"), nil
		}
		if _, err := lookPath("xsel"); err == nil {
			return exec.Command("xsel", "--clipboard", "--input"), nil
		}
	case "windows":
		if _, err := lookPath("clip"); err == nil {
			return exec.Command("clip"), nil
		}
	}
	return nil, ErrClipboardUnavailable
}

// IsAvailable reports whether Copy can work on this system.
func IsAvailable() bool {
	_, err := Command(runtime.GOOS, exec.LookPath)
	return err == nil
}

// Copy puts text on the system clipboard.
func Copy(text string) error {
	cmd, err := Command(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
