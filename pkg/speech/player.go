package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// CommandPlayer plays audio by shelling out to an external player binary
// such as mpv or ffplay. The artifact is written to a temporary file and
// the file path is appended to the configured arguments.
type CommandPlayer struct {
	command string
	args    []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandPlayer creates a player that invokes the given binary. With no
// arguments it defaults to flags suitable for mpv.
func NewCommandPlayer(command string, args ...string) *CommandPlayer {
	if command == "" {
		command = "mpv"
	}
	if len(args) == 0 && command == "mpv" {
		args = []string{"--no-terminal", "--no-video"}
	}
	return &CommandPlayer{command: command, args: args}
}

// Play writes the artifact to a temp file and blocks until the player
// process exits.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte, format string) error {
	f, err := os.CreateTemp("", "aria-speech-*."+format)
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp audio file: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command, append(append([]string{}, p.args...), path)...)

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cmd = nil
		p.mu.Unlock()
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", p.command, err)
	}
	return nil
}

// Stop kills the in-progress player process, if any.
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
