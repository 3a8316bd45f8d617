// Package provisioning defines the contract between the lifecycle
// orchestrator and the external provisioning tool.
//
// # Subpackages
//
//   - terraform/: Backend implementation that shells out to terraform and
//     reads outputs from local or S3-hosted state
//
// # Core Types
//
// Backend is the init/apply/destroy/output contract. Stage describes one step
// of a staged deployment. Error carries the failed phase, exit code and
// command. Outputs holds stage outputs. Observer is the logging façade used
// by every component of a run.
package provisioning
