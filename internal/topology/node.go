package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRouteToNode is returned for a node with neither a public address
	// nor a proxy.
	ErrNoRouteToNode = errors.New("no route to node")

	// ErrProxyCycle is returned when following proxies revisits a node.
	ErrProxyCycle = errors.New("proxy chain contains a cycle")
)

// Node is a host reachable over SSH, either directly on its public address
// or through its proxy.
type Node struct {
	Name           string
	PrivateAddress string
	PublicAddress  string
	Proxy          *Node
	User           string

	// KeyPath is the private key file used to authenticate to this node.
	KeyPath string
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.PublicAddress != "" {
		return fmt.Sprintf("%s(%s, public %s)", n.Name, n.PrivateAddress, n.PublicAddress)
	}
	return fmt.Sprintf("%s(%s)", n.Name, n.PrivateAddress)
}

// Route returns the hops needed to reach target, starting with the first
// publicly addressed node and ending with target itself. The first hop is
// dialled on its public address, every later hop on its private address.
func Route(target *Node) ([]*Node, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil node", ErrNoRouteToNode)
	}

	var hops []*Node
	visited := make(map[*Node]bool)
	for n := target; ; n = n.Proxy {
		if visited[n] {
			return nil, fmt.Errorf("%w at %s", ErrProxyCycle, n.Name)
		}
		visited[n] = true
		hops = append(hops, n)

		if n.PublicAddress != "" {
			break
		}
		if n.Proxy == nil {
			return nil, fmt.Errorf("%w: %s has no public address and no proxy", ErrNoRouteToNode, n.Name)
		}
		if n.PrivateAddress == "" {
			return nil, fmt.Errorf("%w: %s is proxied but has no private address", ErrNoRouteToNode, n.Name)
		}
	}

	for i, j := 0, len(hops)-1; i < j; i, j = i+1, j-1 {
		hops[i], hops[j] = hops[j], hops[i]
	}
	return hops, nil
}

// Address returns the address a hop is dialled on: public for the entry
// hop, private for every hop behind it.
func Address(hop *Node, entry bool) string {
	if entry {
		return hop.PublicAddress
	}
	return hop.PrivateAddress
}
