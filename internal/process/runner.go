package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultMaxOutput bounds captured output.
	DefaultMaxOutput = 1 << 20

	// DefaultGracefulTimeout is the wait between SIGTERM and SIGKILL.
	DefaultGracefulTimeout = 2 * time.Second
)

// Config describes one command run.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	Binary string
	Args   []string

	// Env are additional variables (key=value); the parent environment is inherited.
	Env []string

	// WorkDir defaults to the agent's working directory.
	WorkDir string

	// Timeout of zero means no deadline beyond ctx.
	Timeout time.Duration

	GracefulTimeout time.Duration

	// MaxOutput of zero uses DefaultMaxOutput.
	MaxOutput int
}

// Result is the outcome of a command.
type Result struct {
	// ExitCode is -1 when the process was killed or never exited normally.
	ExitCode  int
	Output    string
	Truncated bool
	Duration  time.Duration
}

// Logger interface for process logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ShellCommand returns a Config running command through /bin/sh -c.
func ShellCommand(command string, timeout time.Duration) Config {
	return Config{
		Name:    "shell",
		Binary:  "/bin/sh",
		Args:    []string{"-c", command},
		Timeout: timeout,
	}
}

// Run executes cfg and waits for it to finish.
//
// A non-zero exit is not an error: it is reported in Result.ExitCode. When
// the timeout fires the process group receives SIGTERM, then SIGKILL after
// GracefulTimeout, and ErrTimeout is returned with the output captured so far.
func Run(ctx context.Context, cfg Config) (Result, error) {
	return RunWithLogger(ctx, cfg, noopLogger{})
}

// RunWithLogger is Run with start/stop logging.
func RunWithLogger(ctx context.Context, cfg Config, logger Logger) (Result, error) {
	if cfg.Binary == "" {
		return Result{ExitCode: -1}, ErrEmptyCommand
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = DefaultGracefulTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}

	cmd := exec.Command(cfg.Binary, cfg.Args...) //nolint:gosec // commands come from authenticated action requests

	// New process group so a timeout can signal every child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	out := &limitedBuffer{limit: cfg.MaxOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}
	logger.Debug("process started", "name", cfg.Name, "pid", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var deadline <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var waitErr error
	var stopErr error
	select {
	case waitErr = <-done:
	case <-deadline:
		stopErr = ErrTimeout
		waitErr = terminate(cmd.Process.Pid, done, cfg.GracefulTimeout, logger, cfg.Name)
	case <-ctx.Done():
		stopErr = fmt.Errorf("%s cancelled: %w", cfg.Name, ctx.Err())
		waitErr = terminate(cmd.Process.Pid, done, cfg.GracefulTimeout, logger, cfg.Name)
	}

	res := Result{
		ExitCode:  exitCode(cmd, waitErr),
		Output:    out.String(),
		Truncated: out.Truncated(),
		Duration:  time.Since(start),
	}
	if stopErr != nil {
		res.ExitCode = -1
		return res, stopErr
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("waiting for %s: %w", cfg.Name, waitErr)
	}

	logger.Debug("process exited", "name", cfg.Name, "exit_code", res.ExitCode, "duration", res.Duration)
	return res, nil
}

// terminate signals the process group with SIGTERM, then SIGKILL after grace,
// and returns the Wait error.
func terminate(pid int, done <-chan error, grace time.Duration, logger Logger, name string) error {
	// Negative PID addresses the process group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		logger.Warn("failed to send SIGTERM to process group", "name", name, "error", err)
	}

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		logger.Warn("graceful stop timeout, sending SIGKILL", "name", name, "timeout", grace)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		logger.Error("failed to kill process group", "name", name, "error", err)
	}
	return <-done
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

// limitedBuffer keeps the first limit bytes written and discards the rest.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
