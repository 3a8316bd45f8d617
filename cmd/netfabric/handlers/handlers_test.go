package handlers

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/netfabric/internal/config"
	"github.com/imamik/netfabric/internal/platform/ssh"
	"github.com/imamik/netfabric/internal/probe"
	"github.com/imamik/netfabric/internal/provisioning"
	nftesting "github.com/imamik/netfabric/internal/testing"
	"github.com/imamik/netfabric/internal/topology"
	"github.com/imamik/netfabric/internal/util/prerequisites"
)

// saveAndRestoreFactories saves the current factory functions and restores them after the test.
// Tests using it replace package state and must not run in parallel.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()

	origLoadConfig := loadConfig
	origNewBackend := newBackend
	origNewExecutor := newExecutor
	origNewS3Client := newS3Client
	origNewObserver := newObserver
	origCheckDefaultPrereqs := checkDefaultPrereqs
	origCheckAllPrereqs := checkAllPrereqs
	origRetrySleep := retrySleep
	origStdout := stdout

	t.Cleanup(func() {
		loadConfig = origLoadConfig
		newBackend = origNewBackend
		newExecutor = origNewExecutor
		newS3Client = origNewS3Client
		newObserver = origNewObserver
		checkDefaultPrereqs = origCheckDefaultPrereqs
		checkAllPrereqs = origCheckAllPrereqs
		retrySleep = origRetrySleep
		stdout = origStdout
	})
}

// fixture wires fakes into every factory.
type fixture struct {
	cfg      *config.Config
	backend  *nftesting.MockBackend
	executor *nftesting.MockExecutor
	observer *nftesting.RecordingObserver
	sleeps   *nftesting.SleepRecorder
	out      *bytes.Buffer
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	saveAndRestoreFactories(t)

	f := &fixture{
		cfg:      cfg,
		backend:  &nftesting.MockBackend{},
		executor: &nftesting.MockExecutor{},
		observer: nftesting.NewRecordingObserver(),
		sleeps:   &nftesting.SleepRecorder{},
		out:      &bytes.Buffer{},
	}

	loadConfig = func(string) (*config.Config, error) { return f.cfg, nil }
	newBackend = func(context.Context, *config.Config, provisioning.Logger) (provisioning.Backend, error) {
		return f.backend, nil
	}
	newExecutor = func(*config.Config) probe.Executor { return f.executor }
	newObserver = func() provisioning.Observer { return f.observer }
	checkDefaultPrereqs = func() *prerequisites.CheckResults { return &prerequisites.CheckResults{} }
	retrySleep = f.sleeps.Sleep
	stdout = f.out
	return f
}

func vmOutput(publicIP, bastionPrivate, privateIP, gatus string) map[string]interface{} {
	v := map[string]interface{}{
		"public_vm_public_ip":   publicIP,
		"public_vm_private_ip":  bastionPrivate,
		"private_vm_private_ip": privateIP,
		"gatus_url":             nil,
	}
	if gatus != "" {
		v["gatus_url"] = gatus
	}
	return v
}

// siteOutputs returns two AWS sites and a GCP site. gatus is exported by
// aws site-1 when set.
func siteOutputs(gatus string) provisioning.Outputs {
	return provisioning.Outputs{
		topology.OutputAWSSites: {Value: map[string]interface{}{
			"site-1": map[string]interface{}{"vm": vmOutput("54.0.0.1", "10.0.0.4", "10.0.1.10", gatus)},
			"site-2": map[string]interface{}{"vm": vmOutput("54.0.0.2", "10.1.0.4", "10.1.1.10", "")},
		}},
		topology.OutputAWSKeyFile: {Value: "keys/aws.pem"},
		topology.OutputGCPVM:      {Value: vmOutput("34.0.0.1", "10.2.0.4", "10.2.1.10", "")},
		topology.OutputGCPKeyFile: {Value: "/keys/gcp.pem"},
	}
}

// stageDir returns the directory of the named stage under the fixture's
// base dir.
func (f *fixture) stageDir(name string) string {
	return filepath.Join(f.cfg.BaseDir, name)
}

func (f *fixture) expectSiteOutputs(gatus string) {
	f.backend.On("ReadOutputs", mock.Anything, f.stageDir("site")).Return(siteOutputs(gatus), nil)
}

func (f *fixture) expectPings(exitStatus int) {
	result := &ssh.Result{ExitStatus: exitStatus, Stdout: "3 packets transmitted, 3 received"}
	if exitStatus != 0 {
		result.Stdout = "3 packets transmitted, 0 received, 100% packet loss"
	}
	f.executor.On("Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(result, nil)
}

var errBoom = errors.New("boom")
