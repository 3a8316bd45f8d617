package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/imamik/netfabric/internal/platform/ssh"
	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/topology"
	"github.com/imamik/netfabric/internal/util/retry"
)

const phase = "probe"

// Executor runs a command on a node. *ssh.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, target *topology.Node, command string, timeout time.Duration) (*ssh.Result, error)
}

// Policy controls a single probe.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Timeout bounds each SSH execution.
	Timeout time.Duration

	// ProbeCount is the number of echo requests per attempt; PacketWait is
	// how long each waits for a reply.
	ProbeCount int
	PacketWait time.Duration
}

// DefaultPolicy is tuned for cross-cloud route propagation.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 8,
		Delay:       15 * time.Second,
		Timeout:     60 * time.Second,
		ProbeCount:  3,
		PacketWait:  5 * time.Second,
	}
}

// Command returns the echo command for target.
func (p Policy) Command(target string) string {
	wait := int(math.Ceil(p.PacketWait.Seconds()))
	if wait < 1 {
		wait = 1
	}
	return fmt.Sprintf("ping -c %d -W %d %s", p.ProbeCount, wait, target)
}

// Result is the outcome of one probe. A probe that never succeeded is a
// Result with Success false, not an error.
type Result struct {
	// Name labels the check in batch runs.
	Name     string
	Source   string
	Target   string
	Success  bool
	Attempts int

	// LastOutput is the output of the last attempt: ping's stdout on
	// success, stdout and stderr joined by a newline otherwise.
	LastOutput string
	Duration   time.Duration
}

// Message describes the result the way failed probes are reported.
func (r *Result) Message() string {
	if r.Success {
		return r.LastOutput
	}
	return fmt.Sprintf("Failed after %d attempts. Last output: %s", r.Attempts, r.LastOutput)
}

// Recorder observes probe attempts. *metrics.Recorder implements it.
type Recorder interface {
	ObserveProbe(source, target string, success bool, attempts int, duration time.Duration)
}

// Prober runs reachability probes.
type Prober struct {
	exec     Executor
	observer provisioning.Observer
	recorder Recorder
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Prober.
type Option func(*Prober)

// WithObserver sets the observer notified of failed attempts.
func WithObserver(o provisioning.Observer) Option {
	return func(p *Prober) { p.observer = o }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Prober) { p.recorder = r }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Prober) { p.sleep = sleep }
}

// New creates a Prober running commands through exec.
func New(exec Executor, opts ...Option) *Prober {
	p := &Prober{exec: exec}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe pings target from source until an echo succeeds or MaxAttempts
// attempts were made, waiting Delay between attempts but not after the
// last one.
//
// It returns an error only for configuration problems, such as a source
// with no route; those abort before the first attempt.
func (p *Prober) Probe(ctx context.Context, source *topology.Node, target string, policy Policy) (*Result, error) {
	if policy.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", policy.MaxAttempts)
	}
	if policy.ProbeCount < 1 {
		policy.ProbeCount = 1
	}
	if _, err := topology.Route(source); err != nil {
		return nil, err
	}

	res := &Result{Source: source.Name, Target: target}
	command := policy.Command(target)
	start := time.Now()

	attempts, err := retry.Fixed(ctx, func(attempt int) error {
		res.Attempts = attempt
		out, err := p.exec.Execute(ctx, source, command, policy.Timeout)
		if err != nil {
			return retry.Fatal(err)
		}
		if out.Success() {
			res.LastOutput = out.Stdout
			return nil
		}

		res.LastOutput = out.Output()
		p.attemptFailed(source.Name, target, attempt, policy.MaxAttempts, res.LastOutput)
		return errAttemptFailed
	},
		retry.WithMaxAttempts(policy.MaxAttempts),
		retry.WithDelay(policy.Delay),
		retry.WithSleeper(p.sleep),
	)
	res.Attempts = attempts
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		res.Success = true
	case retry.IsFatal(err):
		return nil, errors.Unwrap(err)
	case !errors.Is(err, errAttemptFailed):
		// The context ended between attempts.
		res.LastOutput = fmt.Sprintf("%s\n%v", res.LastOutput, err)
	}

	if p.recorder != nil {
		p.recorder.ObserveProbe(source.Name, target, res.Success, res.Attempts, res.Duration)
	}
	return res, nil
}

func (p *Prober) attemptFailed(source, target string, attempt, maxAttempts int, output string) {
	if p.observer == nil {
		return
	}
	provisioning.LogAttemptFailed(p.observer, phase, source+" -> "+target, attempt, maxAttempts, output)
}

var errAttemptFailed = errors.New("probe attempt failed")
