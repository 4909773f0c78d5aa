package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrNoCommand is returned when no recognizer command is configured.
var ErrNoCommand = errors.New("no capture command configured — run: gallery config set-capture <command>")

// waitDelay bounds how long a stopped recognizer may keep its output open.
const waitDelay = 2 * time.Second

// CommandCapturer runs an external speech recognizer and reads its
// transcript from stdout, one recognized segment per line.
type CommandCapturer struct {
	command string

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	onResult func(string)
	onError  func(error)
	onEnd    func()
}

// NewCommandCapturer returns a capturer for command, run through the
// user's shell.
func NewCommandCapturer(command string) *CommandCapturer {
	return &CommandCapturer{command: command}
}

func (c *CommandCapturer) OnResult(fn func(string)) { c.mu.Lock(); c.onResult = fn; c.mu.Unlock() }
func (c *CommandCapturer) OnError(fn func(error))   { c.mu.Lock(); c.onError = fn; c.mu.Unlock() }
func (c *CommandCapturer) OnEnd(fn func())          { c.mu.Lock(); c.onEnd = fn; c.mu.Unlock() }

// Start launches the recognizer. It returns once the process is running.
func (c *CommandCapturer) Start(ctx context.Context) error {
	if strings.TrimSpace(c.command) == "" {
		return ErrNoCommand
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	shell, flag := shellAndFlag()
	cmd := exec.CommandContext(ctx, shell, flag, c.command)
	cmd.Env = os.Environ()
	cmd.WaitDelay = waitDelay

	pr, pw := io.Pipe()
	var stderr bytes.Buffer
	cmd.Stdout = pw
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start capture command: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	c.cancel = cancel
	c.done = make(chan struct{})
	go c.read(ctx, pr, waitErr, &stderr, cancel, c.done)
	return nil
}

// Stop ends the capture and waits for OnEnd to have fired.
func (c *CommandCapturer) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *CommandCapturer) read(ctx context.Context, r io.Reader, waitErr <-chan error, stderr *bytes.Buffer, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)

	var segments []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		segment := strings.TrimSpace(scanner.Text())
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
		if fn := c.handlers().onResult; fn != nil {
			fn(strings.Join(segments, " "))
		}
	}

	err := <-waitErr
	stopped := ctx.Err() != nil
	cancel()

	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()

	h := c.handlers()
	if err != nil && !stopped && h.onError != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		h.onError(fmt.Errorf("capture command failed: %w", err))
	}
	if h.onEnd != nil {
		h.onEnd()
	}
}

type handlers struct {
	onResult func(string)
	onError  func(error)
	onEnd    func()
}

func (c *CommandCapturer) handlers() handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return handlers{c.onResult, c.onError, c.onEnd}
}

func shellAndFlag() (string, string) {
	if runtime.GOOS == "windows" {
		return "powershell", "-Command"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell, "-c"
	}
	return "/bin/sh", "-c"
}
