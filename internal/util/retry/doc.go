// Package retry provides the retry loops shared by the reachability prober,
// the health poller and the Terraform backend.
//
// [Fixed] retries with a constant delay and reports how many attempts were
// made. [WithExponentialBackoff] is used where the remote side throttles,
// such as provider downloads during terraform init.
package retry
