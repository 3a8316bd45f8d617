package config

import (
	"strconv"
	"time"
)

// Timeouts holds the per-command limits for the provisioning tool.
// These values can be customized via environment variables.
type Timeouts struct {
	Init              time.Duration // Timeout for terraform init
	Apply             time.Duration // Timeout for terraform apply
	Destroy           time.Duration // Timeout for terraform destroy
	InitRetryAttempts int           // Retries of terraform init on registry errors
	InitRetryDelay    time.Duration // Initial delay between init retries
}

// LoadTimeouts loads timeout configuration through lookup.
//
// Environment Variables:
//   - NETFABRIC_TIMEOUT_INIT (default: 5m)
//   - NETFABRIC_TIMEOUT_APPLY (default: 30m)
//   - NETFABRIC_TIMEOUT_DESTROY (default: 30m)
//   - NETFABRIC_INIT_RETRY_ATTEMPTS (default: 2)
//   - NETFABRIC_INIT_RETRY_DELAY (default: 10s)
func LoadTimeouts(lookup LookupFunc) *Timeouts {
	return &Timeouts{
		Init:              parseDuration(lookup, "NETFABRIC_TIMEOUT_INIT", 5*time.Minute),
		Apply:             parseDuration(lookup, "NETFABRIC_TIMEOUT_APPLY", 30*time.Minute),
		Destroy:           parseDuration(lookup, "NETFABRIC_TIMEOUT_DESTROY", 30*time.Minute),
		InitRetryAttempts: parseInt(lookup, "NETFABRIC_INIT_RETRY_ATTEMPTS", 2),
		InitRetryDelay:    parseDuration(lookup, "NETFABRIC_INIT_RETRY_DELAY", 10*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(lookup LookupFunc, envVar string, defaultVal time.Duration) time.Duration {
	val, ok := lookup(envVar)
	if !ok || val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(lookup LookupFunc, envVar string, defaultVal int) int {
	val, ok := lookup(envVar)
	if !ok || val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
