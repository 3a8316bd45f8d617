package terraform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/util/retry"
)

const defaultBinary = "terraform"

// Timeouts bounds each terraform command.
type Timeouts struct {
	Init    time.Duration
	Apply   time.Duration
	Destroy time.Duration

	// InitRetries is the number of extra init attempts made when the
	// provider registry is flaky. InitRetryDelay is the first backoff delay.
	InitRetries    int
	InitRetryDelay time.Duration
}

// DefaultTimeouts matches the limits of the stage directories' own harness.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Init:           5 * time.Minute,
		Apply:          30 * time.Minute,
		Destroy:        30 * time.Minute,
		InitRetries:    2,
		InitRetryDelay: 10 * time.Second,
	}
}

// CommandRunner runs name with args in dir and returns the combined output
// and the process exit code. A non-nil error with exit code 0 means the
// process could not be started or was killed.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (output []byte, exitCode int, err error)

// StateReader returns the outputs persisted for a stage directory.
type StateReader interface {
	ReadOutputs(ctx context.Context, dir string) (provisioning.Outputs, error)
}

// Backend drives terraform. It is safe to reuse across stages but not for
// concurrent commands in the same directory.
type Backend struct {
	binary   string
	timeouts Timeouts
	run      CommandRunner
	state    StateReader
	logger   provisioning.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Backend.
type Option func(*Backend)

// WithBinary overrides the terraform executable.
func WithBinary(path string) Option {
	return func(b *Backend) { b.binary = path }
}

// WithTimeouts overrides the command timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(b *Backend) { b.timeouts = t }
}

// WithRunner replaces the process runner.
func WithRunner(r CommandRunner) Option {
	return func(b *Backend) { b.run = r }
}

// WithStateReader replaces the local tfstate reader.
func WithStateReader(r StateReader) Option {
	return func(b *Backend) { b.state = r }
}

// WithLogger sets the logger used for command progress.
func WithLogger(l provisioning.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithSleeper replaces the wait between init retries.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Backend) { b.sleep = sleep }
}

// NewBackend creates a terraform backend reading local state.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		binary:   defaultBinary,
		timeouts: DefaultTimeouts(),
		run:      execRunner,
		state:    LocalStateReader{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ provisioning.Backend = (*Backend)(nil)

// Init runs "terraform init -upgrade". Registry and network hiccups are
// retried with exponential backoff; any other failure is returned at once.
func (b *Backend) Init(ctx context.Context, dir string) error {
	args := []string{"init", "-upgrade"}

	err := retry.WithExponentialBackoff(ctx, func() error {
		err := b.command(ctx, provisioning.PhaseInit, dir, b.timeouts.Init, args...)
		if err != nil && !isTransientInitError(err) {
			return retry.Fatal(err)
		}
		return err
	},
		retry.WithMaxRetries(b.timeouts.InitRetries),
		retry.WithDelay(b.timeouts.InitRetryDelay),
		retry.WithSleeper(b.sleep),
	)
	if err == nil {
		return nil
	}

	var pErr *provisioning.Error
	if errors.As(err, &pErr) {
		return pErr
	}
	return &provisioning.Error{Phase: provisioning.PhaseInit, Dir: dir, Message: err.Error(), Command: b.argv(args)}
}

// Apply runs "terraform apply -auto-approve -var-file <varFile>".
func (b *Backend) Apply(ctx context.Context, dir, varFile string) error {
	return b.command(ctx, provisioning.PhaseApply, dir, b.timeouts.Apply, "apply", "-auto-approve", "-var-file", varFile)
}

// Destroy runs "terraform destroy -auto-approve -var-file <varFile>".
func (b *Backend) Destroy(ctx context.Context, dir, varFile string) error {
	return b.command(ctx, provisioning.PhaseDestroy, dir, b.timeouts.Destroy, "destroy", "-auto-approve", "-var-file", varFile)
}

// ReadOutputs returns the outputs recorded in the stage's state.
func (b *Backend) ReadOutputs(ctx context.Context, dir string) (provisioning.Outputs, error) {
	outputs, err := b.state.ReadOutputs(ctx, dir)
	if err != nil {
		return nil, &provisioning.Error{Phase: provisioning.PhaseOutput, Dir: dir, Message: err.Error()}
	}
	return outputs, nil
}

func (b *Backend) command(ctx context.Context, phase provisioning.Phase, dir string, timeout time.Duration, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	argv := b.argv(args)
	b.printf("[terraform] %s (dir: %s)", strings.Join(argv, " "), dir)
	start := time.Now()

	output, exitCode, err := b.run(ctx, dir, b.binary, args...)
	if err == nil {
		b.printf("[terraform] %s completed in %v", phase, time.Since(start).Round(time.Second))
		return nil
	}

	msg := strings.TrimSpace(string(output))
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		msg = strings.TrimSpace(fmt.Sprintf("timed out after %v\n%s", timeout, msg))
	} else if exitCode == 0 {
		msg = strings.TrimSpace(fmt.Sprintf("%v\n%s", err, msg))
	}

	return &provisioning.Error{
		Phase:    phase,
		Dir:      dir,
		Message:  msg,
		ExitCode: exitCode,
		Command:  argv,
	}
}

func (b *Backend) argv(args []string) []string {
	return append([]string{b.binary}, args...)
}

func (b *Backend) printf(format string, v ...interface{}) {
	if b.logger != nil {
		b.logger.Printf(format, v...)
	}
}

// isTransientInitError reports whether an init failure looks like a
// registry or network problem that a retry can fix.
func isTransientInitError(err error) bool {
	var pErr *provisioning.Error
	if !errors.As(err, &pErr) {
		return false
	}
	msg := strings.ToLower(pErr.Message)
	for _, marker := range []string{
		"registry.terraform.io",
		"failed to query available provider packages",
		"connection reset",
		"i/o timeout",
		"tls handshake timeout",
		"temporary failure in name resolution",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, int, error) {
	// #nosec G204 - name is the configured terraform binary, args are fixed subcommands
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return out.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return out.Bytes(), exitErr.ExitCode(), err
	}
	return out.Bytes(), 0, err
}
