package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/netfabric/internal/topology"
	"github.com/imamik/netfabric/internal/util/teardown"
)

const (
	defaultPort        = 22
	defaultUser        = "ubuntu"
	defaultDialTimeout = 60 * time.Second

	// TransportFailureStatus is the exit status reported when the command
	// could not be run at all.
	TransportFailureStatus = 255
)

// DialFunc opens the TCP connection to the entry hop.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds executor configuration.
type Config struct {
	// Port is the SSH port of every hop. If zero, 22 is used.
	Port int

	// User is the login for nodes that do not name one.
	// If empty, "ubuntu" is used.
	User string

	// DialTimeout bounds the TCP connection to the entry hop.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// HostKeyCallback handles host key verification for every hop.
	// If nil, ssh.InsecureIgnoreHostKey() is used (suitable for ephemeral infrastructure).
	HostKeyCallback ssh.HostKeyCallback

	// Dial replaces the dialer used for the entry hop.
	Dial DialFunc
}

// Result is the outcome of a remote command.
type Result struct {
	ExitStatus int
	Stdout     string
	Stderr     string
}

// Success reports whether the command exited with status 0.
func (r *Result) Success() bool {
	return r.ExitStatus == 0
}

// Output joins stdout and stderr the way probes record them.
func (r *Result) Output() string {
	return r.Stdout + "\n" + r.Stderr
}

// Executor runs commands on nodes. Parsed keys are cached per key path for
// the executor's lifetime; connections are never reused across calls.
type Executor struct {
	config  Config
	readKey func(path string) ([]byte, error)

	mu      sync.Mutex
	signers map[string]ssh.Signer
}

// NewExecutor creates an executor from cfg, applying defaults.
func NewExecutor(cfg Config) *Executor {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.User == "" {
		cfg.User = defaultUser
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Default for ephemeral infrastructure
	}
	if cfg.Dial == nil {
		dialer := &net.Dialer{Timeout: cfg.DialTimeout}
		cfg.Dial = dialer.DialContext
	}

	return &Executor{
		config:  cfg,
		readKey: os.ReadFile,
		signers: make(map[string]ssh.Signer),
	}
}

// Execute runs command on target within timeout.
//
// It returns an error only when target cannot be reached by configuration
// (topology.ErrNoRouteToNode, topology.ErrProxyCycle) or a key cannot be
// loaded. Every transport failure yields a Result with ExitStatus 255 and
// the failure text in Stderr.
func (e *Executor) Execute(ctx context.Context, target *topology.Node, command string, timeout time.Duration) (*Result, error) {
	hops, err := topology.Route(target)
	if err != nil {
		return nil, err
	}

	configs := make([]*ssh.ClientConfig, len(hops))
	for i, hop := range hops {
		signer, err := e.signer(hop.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", hop.Name, err)
		}
		configs[i] = e.clientConfig(hop, signer)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := e.run(ctx, hops, configs, command)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", err, describeContextError(ctxErr, timeout))
		}
		return &Result{ExitStatus: TransportFailureStatus, Stderr: err.Error()}, nil
	}
	return res, nil
}

// run opens the hop chain and runs command on its last client. The
// returned error is always a transport failure.
func (e *Executor) run(ctx context.Context, hops []*topology.Node, configs []*ssh.ClientConfig, command string) (*Result, error) {
	open := teardown.NewWorklist(func(io.Closer) string { return "ssh" })
	defer open.Drain(context.Background(), &teardown.Collector{}, func(_ context.Context, c io.Closer) error {
		return c.Close()
	})

	entry := hops[0]
	addr := e.address(topology.Address(entry, true))
	conn, err := e.config.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s (%s): %w", addr, entry.Name, err)
	}
	open.Push(conn)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := handshake(conn, addr, entry, configs[0])
	if err != nil {
		return nil, err
	}
	open.Push(client)

	for i, hop := range hops[1:] {
		addr := e.address(topology.Address(hop, false))
		tunnel, err := client.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("tunnel to %s (%s) via %s: %w", addr, hop.Name, hops[i].Name, err)
		}
		open.Push(tunnel)

		client, err = handshake(tunnel, addr, hop, configs[i+1])
		if err != nil {
			return nil, err
		}
		open.Push(client)
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH session on %s: %w", hops[len(hops)-1].Name, err)
	}
	open.Push(session)

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(command)
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitStatus = exitErr.ExitStatus()
		return res, nil
	}
	return nil, fmt.Errorf("command failed on %s: %w", hops[len(hops)-1].Name, err)
}

func handshake(conn net.Conn, addr string, hop *topology.Node, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh handshake with %s (%s): %w", addr, hop.Name, err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func (e *Executor) clientConfig(hop *topology.Node, signer ssh.Signer) *ssh.ClientConfig {
	user := hop.User
	if user == "" {
		user = e.config.User
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: e.config.HostKeyCallback,
		Timeout:         e.config.DialTimeout,
	}
}

func (e *Executor) address(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(e.config.Port))
}

// signer returns the cached signer for path, parsing the key on first use.
func (e *Executor) signer(path string) (ssh.Signer, error) {
	if path == "" {
		return nil, fmt.Errorf("no private key configured")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.signers[path]; ok {
		return s, nil
	}

	data, err := e.readKey(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	s, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	e.signers[path] = s
	return s, nil
}

func describeContextError(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
		return "timed out after " + timeout.String()
	}
	return strings.TrimSpace(err.Error())
}
