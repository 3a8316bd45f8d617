// Package config defines the run configuration consumed by every netfabric
// subsystem.
//
// A [Config] is read from a YAML file, overlaid with the AVX_TFVARS, AVX_NODESTROY,
// TF_SKIP_DEPLOY and TF_VAR_enable_gatus environment variables, completed with defaults and
// validated once at start-up. Core packages receive the resulting struct and
// never read the environment themselves.
package config
