package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/netfabric/internal/platform/ssh"
	"github.com/imamik/netfabric/internal/provisioning"
	nftesting "github.com/imamik/netfabric/internal/testing"
	"github.com/imamik/netfabric/internal/topology"
)

var (
	bastion = &topology.Node{Name: "aws_site-1_bastion", PublicAddress: "54.0.0.1", PrivateAddress: "10.0.0.4", KeyPath: "/k"}
	private = &topology.Node{Name: "aws_site-1_private", PrivateAddress: "10.0.1.10", Proxy: bastion, KeyPath: "/k"}
)

func testPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, Delay: 15 * time.Second, Timeout: time.Minute, ProbeCount: 3, PacketWait: 5 * time.Second}
}

func lossResult() *ssh.Result {
	return &ssh.Result{ExitStatus: 1, Stdout: "3 packets transmitted, 0 received, 100% packet loss", Stderr: ""}
}

func TestPolicy_Command(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ping -c 3 -W 5 10.2.1.10", testPolicy(1).Command("10.2.1.10"))

	p := Policy{ProbeCount: 1, PacketWait: 1500 * time.Millisecond}
	assert.Equal(t, "ping -c 1 -W 2 10.0.0.1", p.Command("10.0.0.1"))

	p.PacketWait = 0
	assert.Equal(t, "ping -c 1 -W 1 10.0.0.1", p.Command("10.0.0.1"))
}

func TestProbe_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	exec.On("Execute", mock.Anything, private, "ping -c 3 -W 5 10.2.1.10", time.Minute).
		Return(&ssh.Result{Stdout: "3 received"}, nil).Once()
	sleeps := &nftesting.SleepRecorder{}

	res, err := New(exec, WithSleeper(sleeps.Sleep)).Probe(context.Background(), private, "10.2.1.10", testPolicy(5))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "3 received", res.LastOutput)
	assert.Equal(t, 0, sleeps.Count())
	exec.AssertExpectations(t)
}

func TestProbe_SucceedsAfterConvergence(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).Return(lossResult(), nil).Twice()
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).Return(&ssh.Result{Stdout: "ok"}, nil).Once()
	sleeps := &nftesting.SleepRecorder{}
	observer := nftesting.NewRecordingObserver()

	res, err := New(exec, WithSleeper(sleeps.Sleep), WithObserver(observer)).
		Probe(context.Background(), private, "10.2.1.10", testPolicy(8))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{15 * time.Second, 15 * time.Second}, sleeps.Delays())
	assert.Len(t, observer.EventsOfType(provisioning.EventAttemptFailed), 2)
}

func TestProbe_ExhaustedIsAValueNotAnError(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).
		Return(&ssh.Result{ExitStatus: 1, Stdout: "100% packet loss", Stderr: "warn"}, nil)
	sleeps := &nftesting.SleepRecorder{}

	res, err := New(exec, WithSleeper(sleeps.Sleep)).Probe(context.Background(), private, "10.2.1.10", testPolicy(5))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 5, res.Attempts)
	assert.Equal(t, "100% packet loss\nwarn", res.LastOutput)
	assert.Equal(t, "Failed after 5 attempts. Last output: 100% packet loss\nwarn", res.Message())
	assert.Equal(t, 4, sleeps.Count(), "no sleep after the final attempt")
	exec.AssertNumberOfCalls(t, "Execute", 5)
}

func TestProbe_TransportFailuresAreRetried(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).
		Return(&ssh.Result{ExitStatus: ssh.TransportFailureStatus, Stderr: "dial 54.0.0.1:22: connection refused"}, nil).Once()
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).
		Return(&ssh.Result{Stdout: "ok"}, nil).Once()

	res, err := New(exec, WithSleeper((&nftesting.SleepRecorder{}).Sleep)).
		Probe(context.Background(), private, "10.2.1.10", testPolicy(3))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
}

func TestProbe_NoRouteMakesNoAttempts(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	isolated := &topology.Node{Name: "isolated", PrivateAddress: "10.9.9.9"}

	res, err := New(exec).Probe(context.Background(), isolated, "10.2.1.10", testPolicy(5))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, topology.ErrNoRouteToNode)
	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProbe_ExecutorConfigurationErrorAborts(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	keyErr := errors.New("failed to read private key: permission denied")
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).Return(nil, keyErr).Once()
	sleeps := &nftesting.SleepRecorder{}

	res, err := New(exec, WithSleeper(sleeps.Sleep)).Probe(context.Background(), private, "10.2.1.10", testPolicy(5))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, keyErr)
	assert.Equal(t, 0, sleeps.Count())
	exec.AssertNumberOfCalls(t, "Execute", 1)
}

func TestProbe_InvalidPolicy(t *testing.T) {
	t.Parallel()
	_, err := New(&nftesting.MockExecutor{}).Probe(context.Background(), private, "10.2.1.10", Policy{})
	assert.ErrorContains(t, err, "max attempts")
}

func TestProbe_ContextCancelledBetweenAttempts(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	exec := &nftesting.MockExecutor{}
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(lossResult(), nil).Once()
	sleeps := &nftesting.SleepRecorder{}

	res, err := New(exec, WithSleeper(sleeps.Sleep)).Probe(ctx, private, "10.2.1.10", testPolicy(5))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Contains(t, res.LastOutput, "context canceled")
}

type recorder struct {
	calls []string
}

func (r *recorder) ObserveProbe(source, target string, success bool, _ int, _ time.Duration) {
	state := "fail"
	if success {
		state = "ok"
	}
	r.calls = append(r.calls, source+">"+target+":"+state)
}

func TestProbe_RecordsMetrics(t *testing.T) {
	t.Parallel()
	exec := &nftesting.MockExecutor{}
	exec.On("Execute", mock.Anything, private, mock.Anything, mock.Anything).Return(&ssh.Result{}, nil)
	rec := &recorder{}

	_, err := New(exec, WithRecorder(rec)).Probe(context.Background(), private, "10.2.1.10", testPolicy(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"aws_site-1_private>10.2.1.10:ok"}, rec.calls)
}
