package ssh

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/netfabric/internal/util/keygen"
)

// commandHandler runs an exec request received by host.
type commandHandler func(host, command string) (stdout, stderr string, status uint32)

// testServer is an in-process SSH server. Connections accepted on its
// listener belong to host "entry"; direct-tcpip channels are served as
// nested SSH connections belonging to the requested host.
type testServer struct {
	t        *testing.T
	listener net.Listener
	config   *ssh.ServerConfig
	handler  commandHandler

	// refuse lists hosts whose tunnels are rejected.
	refuse map[string]bool

	mu       sync.Mutex
	logins   []string
	tunnels  []string
	commands []string
	wg       sync.WaitGroup
}

func newTestServer(t *testing.T, authorized ssh.PublicKey, handler commandHandler) *testServer {
	t.Helper()

	hostKey, err := keygen.GenerateEd25519KeyPair("host")
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{
		t:        t,
		listener: listener,
		handler:  handler,
		refuse:   make(map[string]bool),
	}
	s.config = &ssh.ServerConfig{
		PublicKeyCallback: func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if !bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, errUnauthorized
			}
			s.mu.Lock()
			s.logins = append(s.logins, meta.User())
			s.mu.Unlock()
			return &ssh.Permissions{}, nil
		},
	}
	s.config.AddHostKey(hostKey.Signer())

	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(func() {
		_ = listener.Close()
		s.wg.Wait()
	})
	return s
}

var errUnauthorized = errors.New("unauthorized key")

func (s *testServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *testServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn, "entry")
		}()
	}
}

func (s *testServer) serveConn(conn net.Conn, host string) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		switch newCh.ChannelType() {
		case "session":
			go s.serveSession(newCh, host)
		case "direct-tcpip":
			var dest struct {
				Host     string
				Port     uint32
				OrigHost string
				OrigPort uint32
			}
			if err := ssh.Unmarshal(newCh.ExtraData(), &dest); err != nil {
				_ = newCh.Reject(ssh.ConnectionFailed, err.Error())
				continue
			}
			s.mu.Lock()
			s.tunnels = append(s.tunnels, dest.Host)
			refused := s.refuse[dest.Host]
			s.mu.Unlock()
			if refused {
				_ = newCh.Reject(ssh.ConnectionFailed, "connect failed: connection refused")
				continue
			}

			ch, chReqs, err := newCh.Accept()
			if err != nil {
				continue
			}
			go ssh.DiscardRequests(chReqs)
			go s.serveConn(&channelConn{Channel: ch}, dest.Host)
		default:
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
		}
	}
}

func (s *testServer) serveSession(newCh ssh.NewChannel, host string) {
	ch, reqs, err := newCh.Accept()
	if err != nil {
		return
	}
	defer ch.Close()

	for req := range reqs {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, host+": "+payload.Command)
		s.mu.Unlock()

		stdout, stderr, status := s.handler(host, payload.Command)
		_, _ = io.WriteString(ch, stdout)
		_, _ = io.WriteString(ch.Stderr(), stderr)
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

func (s *testServer) refuseTunnel(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse[host] = true
}

func (s *testServer) snapshot() (logins, tunnels, commands []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logins...),
		append([]string(nil), s.tunnels...),
		append([]string(nil), s.commands...)
}

// channelConn adapts an SSH channel to net.Conn so a nested server
// handshake can run over it.
type channelConn struct {
	ssh.Channel
}

func (c *channelConn) LocalAddr() net.Addr { return &net.TCPAddr{} }
func (c *channelConn) RemoteAddr() net.Addr { return &net.TCPAddr{} }
func (c *channelConn) SetDeadline(time.Time) error { return nil }
func (c *channelConn) SetReadDeadline(time.Time) error { return nil }
func (c *channelConn) SetWriteDeadline(time.Time) error { return nil }
