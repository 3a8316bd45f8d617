// Package terraform implements provisioning.Backend by shelling out to the
// terraform CLI.
//
// Each stage directory is a Terraform root module. Init runs
// "terraform init -upgrade", apply and destroy run non-interactively with
// the run's variables file. Every command is bounded by its own timeout.
//
// Outputs are read from Terraform state rather than "terraform output" so
// that a stage which was never applied simply yields no outputs. State is
// read from the stage directory by default or from an S3 bucket when the
// stages use a remote backend.
package terraform
