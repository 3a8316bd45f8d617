package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/netfabric/internal/platform/ssh"
	"github.com/imamik/netfabric/internal/provisioning"
	"github.com/imamik/netfabric/internal/topology"
)

// MockBackend is a mock implementation of provisioning.Backend.
type MockBackend struct {
	mock.Mock
}

// Init records the call.
func (m *MockBackend) Init(ctx context.Context, dir string) error {
	return m.Called(ctx, dir).Error(0)
}

// Apply records the call.
func (m *MockBackend) Apply(ctx context.Context, dir, varFile string) error {
	return m.Called(ctx, dir, varFile).Error(0)
}

// Destroy records the call.
func (m *MockBackend) Destroy(ctx context.Context, dir, varFile string) error {
	return m.Called(ctx, dir, varFile).Error(0)
}

// ReadOutputs records the call.
func (m *MockBackend) ReadOutputs(ctx context.Context, dir string) (provisioning.Outputs, error) {
	args := m.Called(ctx, dir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provisioning.Outputs), args.Error(1)
}

// CallsTo returns the directories passed to method, in call order.
func (m *MockBackend) CallsTo(method string) []string {
	var dirs []string
	for _, c := range m.Calls {
		if c.Method == method {
			dirs = append(dirs, c.Arguments.String(1))
		}
	}
	return dirs
}

// MockExecutor is a mock implementation of the remote command executor.
type MockExecutor struct {
	mock.Mock
}

// Execute records the call.
func (m *MockExecutor) Execute(ctx context.Context, target *topology.Node, command string, timeout time.Duration) (*ssh.Result, error) {
	args := m.Called(ctx, target, command, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssh.Result), args.Error(1)
}
