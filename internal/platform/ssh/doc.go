// Package ssh runs commands on fabric nodes over SSH.
//
// Nodes without a public address are reached through their proxy chain:
// the executor dials the entry node, opens a direct-tcpip channel to the
// next hop's private address and runs a fresh SSH handshake over it, hop by
// hop, until it holds a client for the target. Connections are opened per
// call and always closed before Execute returns.
//
// Transport problems (refused dials, failed handshakes, rejected tunnels,
// timeouts) are reported as a [Result] with exit status 255, the way the
// OpenSSH client does. Only configuration problems such as an unreachable
// node or an unreadable key are returned as errors.
//
// Security: host key verification is disabled by default for ephemeral
// infrastructure. Set Config.HostKeyCallback to verify host keys.
package ssh
