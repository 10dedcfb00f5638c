package inject

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Strategy delivers corrected text into the focused application. Typing
// strategies receive the text directly; paste strategies ignore it and send a
// paste keystroke, relying on the manager having placed the text on the
// clipboard first.
type Strategy interface {
	// Name identifies the strategy in reports and logs.
	Name() string

	// Available reports whether the strategy's tool is installed. Checked
	// once at manager construction.
	Available() bool

	// Inject delivers text, honouring ctx for cancellation and timeout.
	Inject(ctx context.Context, text string) error
}

// execStrategy shells out to a keystroke or typing tool. When args returns
// the text as an argument the tool types it; otherwise the command is a fixed
// paste keystroke.
type execStrategy struct {
	name string
	bin  string
	args func(text string) []string
}

func (s *execStrategy) Name() string { return s.name }

func (s *execStrategy) Available() bool {
	_, err := lookPath(s.bin)
	return err == nil
}

func (s *execStrategy) Inject(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.bin, s.args(text)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("inject: %s: %w (%s)", s.name, err, msg)
		}
		return fmt.Errorf("inject: %s: %w", s.name, err)
	}
	return nil
}

// DefaultStrategies returns the built-in strategies in preference order:
// native Wayland typing first, then X11 paste keystrokes, then the macOS and
// Windows senders. Availability is not filtered here; the manager does that.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&execStrategy{
			name: "wtype",
			bin:  "wtype",
			args: func(text string) []string { return []string{"--", text} },
		},
		&execStrategy{
			name: "ydotool",
			bin:  "ydotool",
			args: func(text string) []string { return []string{"type", "--", text} },
		},
		&execStrategy{
			name: "xdotool-paste",
			bin:  "xdotool",
			args: func(string) []string { return []string{"key", "--clearmodifiers", "ctrl+v"} },
		},
		// Terminal emulators often ignore ctrl+v; shift+Insert pastes there.
		&execStrategy{
			name: "xdotool-insert",
			bin:  "xdotool",
			args: func(string) []string { return []string{"key", "--clearmodifiers", "shift+Insert"} },
		},
		&execStrategy{
			name: "osascript",
			bin:  "osascript",
			args: func(string) []string {
				return []string{"-e", `tell application "System Events" to keystroke "v" using command down`}
			},
		},
		&execStrategy{
			name: "powershell-sendkeys",
			bin:  "powershell.exe",
			args: func(string) []string {
				return []string{"-NoProfile", "-Command",
					`(New-Object -ComObject wscript.shell).SendKeys('^v')`}
			},
		},
	}
}
