// Package keygen generates SSH key pairs.
//
// Private keys are PEM encoded and public keys use the OpenSSH
// authorized_keys format. The executor tests use it to provision client
// and host keys for in-process SSH servers.
package keygen
