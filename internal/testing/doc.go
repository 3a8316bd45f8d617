// Package testing provides shared test doubles and builders.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - MockBackend: testify mock of provisioning.Backend
//   - MockExecutor: testify mock of the remote command executor
//   - RecordingObserver: provisioning.Observer that keeps every event
//   - SleepRecorder: injectable sleeper that records requested delays
//   - ConfigBuilder: fluent builder for run configurations
//
// Usage:
//
//	backend := &testing.MockBackend{}
//	backend.On("Apply", mock.Anything, "site", "fabric.tfvars").Return(nil)
//
//	cfg := testing.NewConfigBuilder().
//	    WithFeature("monitoring", true).
//	    Build()
package testing
