package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// CommandFrameSource reads raw PCM frames from the stdout of an external
// capture binary such as arecord or sox. The process is started on the
// first ReadFrame and killed on Close.
type CommandFrameSource struct {
	command   string
	args      []string
	frameSize int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewCommandFrameSource creates a source over the given capture command.
// With an empty command it defaults to arecord producing 16 kHz mono
// 16-bit little-endian PCM on stdout.
func NewCommandFrameSource(command string, args ...string) *CommandFrameSource {
	if command == "" {
		command = "arecord"
		args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}
	}
	return &CommandFrameSource{command: command, args: args, frameSize: 640}
}

// ReadFrame returns the next PCM frame, starting the capture process if
// needed. Returns io.EOF when the process exits.
func (s *CommandFrameSource) ReadFrame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.cmd == nil {
		cmd := exec.CommandContext(ctx, s.command, s.args...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("capture stdout: %w", err)
		}
		if err := cmd.Start(); err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("start %s: %w", s.command, err)
		}
		s.cmd = cmd
		s.stdout = stdout
	}
	stdout := s.stdout
	s.mu.Unlock()

	frame := make([]byte, s.frameSize)
	n, err := io.ReadFull(stdout, frame)
	if err != nil {
		if n == 0 {
			return nil, io.EOF
		}
		return frame[:n], nil
	}
	return frame, nil
}

// Close kills the capture process.
func (s *CommandFrameSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return nil
	}
	s.stdout.Close()
	err := s.cmd.Process.Kill()
	s.cmd = nil
	s.stdout = nil
	return err
}

// LineWake treats a newline on the given reader as a wake activation. It
// stands in where a keyword spotter microphone hook would plug in. A
// single pump goroutine owns the reader; activations arriving while
// nobody is listening are dropped.
type LineWake struct {
	wakes chan struct{}
	done  chan struct{}
}

// NewLineWake creates a wake detector over r, typically os.Stdin.
func NewLineWake(r io.Reader) *LineWake {
	w := &LineWake{
		wakes: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case w.wakes <- struct{}{}:
			default:
			}
		}
		close(w.done)
	}()
	return w
}

// WaitForWake blocks until a line is read or ctx is cancelled.
func (w *LineWake) WaitForWake(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return io.EOF
	case <-w.wakes:
		return nil
	}
}
