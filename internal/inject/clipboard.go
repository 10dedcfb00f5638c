package inject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// ErrNoClipboard is returned by [SystemClipboard] when no supported clipboard
// tool is installed.
var ErrNoClipboard = errors.New("inject: no clipboard tool found")

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// execClipboard drives an external clipboard tool pair: one command that
// copies stdin and one that prints the current contents.
type execClipboard struct {
	name     string
	copyCmd  []string
	pasteCmd []string
}

// clipboardTools is probed in order by [SystemClipboard]: Wayland first, then
// X11, macOS and Windows.
var clipboardTools = []execClipboard{
	{
		name:     "wl-clipboard",
		copyCmd:  []string{"wl-copy"},
		pasteCmd: []string{"wl-paste", "--no-newline"},
	},
	{
		name:     "xclip",
		copyCmd:  []string{"xclip", "-selection", "clipboard", "-i"},
		pasteCmd: []string{"xclip", "-selection", "clipboard", "-o"},
	},
	{
		name:     "pbcopy",
		copyCmd:  []string{"pbcopy"},
		pasteCmd: []string{"pbpaste"},
	},
	{
		name:     "powershell",
		copyCmd:  []string{"powershell.exe", "-NoProfile", "-Command", "Set-Clipboard -Value ([Console]::In.ReadToEnd())"},
		pasteCmd: []string{"powershell.exe", "-NoProfile", "-Command", "Get-Clipboard -Raw"},
	},
}

// SystemClipboard probes for an installed clipboard tool and returns a
// Clipboard backed by it.
func SystemClipboard() (Clipboard, error) {
	for _, tool := range clipboardTools {
		if _, err := lookPath(tool.copyCmd[0]); err != nil {
			continue
		}
		if _, err := lookPath(tool.pasteCmd[0]); err != nil {
			continue
		}
		c := tool
		return &c, nil
	}
	return nil, ErrNoClipboard
}

func (c *execClipboard) Read(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.pasteCmd[0], c.pasteCmd[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("inject: %s read: %w", c.name, err)
	}
	return string(out), nil
}

func (c *execClipboard) Write(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.copyCmd[0], c.copyCmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("inject: %s write: %w (%s)", c.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// MemoryClipboard is an in-process Clipboard for tests and replay runs where
// touching the real clipboard is unwanted. Safe for concurrent use.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *MemoryClipboard) Read(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, nil
}

func (c *MemoryClipboard) Write(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

// lookPath is exec.LookPath, overridable in tests.
var lookPath = exec.LookPath
