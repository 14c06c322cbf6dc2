// Package browser opens rendered pages with the platform's default handler.
package browser

import (
	"fmt"
	"os"
	"os/exec"
)

// Command returns the command that opens path on goos.
func Command(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// Open launches the default viewer for an existing file without waiting for it.
func Open(goos, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("checking file: %w", err)
	}
	cmd, err := Command(goos, path)
	if err != nil {
		return err
	}
	return cmd.Start()
}
