// Package probe checks reachability between fabric nodes.
//
// A probe runs ICMP echo on a source node, reached over SSH, against a
// target address. Fresh cross-cloud routes take minutes to converge, so a
// failed echo is retried with a fixed delay before the probe gives up.
package probe
