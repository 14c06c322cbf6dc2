package clipboard

import (
	"errors"
	"os/exec"
	"testing"
)

// installed fakes exec.LookPath for the named programs.
func installed(names ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, n := range names {
			if n == file {
				return "/usr/bin/" + n, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		installed []string
		want      []string
	}{
		{"macOS", "darwin", []string{"pbcopy"}, []string{"pbcopy"}},
		{"xclip preferred", "linux", []string{"xsel", "xclip"}, []string{"xclip", "-selection", "clipboard"}},
		{"xsel fallback", "linux", []string{"xsel"}, []string{"xsel", "--clipboard", "--input"}},
		{"windows", "windows", []string{"clip"}, []string{"clip"}},
		{"linux without tools", "linux", nil, nil},
		{"unsupported", "plan9", []string{"pbcopy"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Command(tt.goos, installed(tt.installed...))
			if tt.want == nil {
				if !errors.Is(err, ErrClipboardUnavailable) {
					t.Errorf("Command() error = %v, want ErrClipboardUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Command() error = %v", err)
			}
			if len(cmd.Args) != len(tt.want) {
				t.Fatalf("Command() args = %v, want %v", cmd.Args, tt.want)
			}
			for i := range tt.want {
				if cmd.Args[i] != tt.want[i] {
					t.Errorf("Command() args = %v, want %v", cmd.Args, tt.want)
					break
				}
			}
		})
	}
}

func TestCopy(t *testing.T) {
	if !IsAvailable() {
		t.Skip("clipboard not available on this system")
	}
	if err := Copy(`{"nodes":[],"edges":[]}`); err != nil {
		t.Skipf("clipboard tool present but not usable here: %v", err)
	}
}
