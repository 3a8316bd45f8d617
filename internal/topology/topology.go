package topology

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/imamik/netfabric/internal/provisioning"
)

// Output names written by the site stage.
const (
	OutputAWSSites   = "aws_sites"
	OutputAWSKeyFile = "aws_ssh_private_key_file"
	OutputGCPVM      = "gcp_vm"
	OutputGCPKeyFile = "gcp_ssh_private_key_file"
)

// Output names written by the monitoring stage.
const (
	OutputDashboardURL       = "dashboard_url"
	OutputDashboardSite      = "dashboard_site"
	OutputMonitoredEndpoints = "monitored_endpoints"
)

// vmPair is the bastion plus private VM block each site exports.
type vmPair struct {
	PublicVMPublicIP   string `mapstructure:"public_vm_public_ip"`
	PublicVMPrivateIP  string `mapstructure:"public_vm_private_ip"`
	PrivateVMPrivateIP string `mapstructure:"private_vm_private_ip"`
	GatusURL           string `mapstructure:"gatus_url"`
}

type awsSite struct {
	VPCID string `mapstructure:"vpc_id"`
	VM    vmPair `mapstructure:"vm"`
}

// Site groups the bastion and private node of one site.
type Site struct {
	// Name is the node name prefix, e.g. "aws_site-1" or "gcp".
	Name     string
	Bastion  *Node
	Private  *Node
	GatusURL string
}

// Topology is the set of nodes exported by the site stage.
type Topology struct {
	Sites []Site
	nodes map[string]*Node
}

// FromOutputs builds the topology from site stage outputs. AWS sites become
// "aws_<site>_bastion" and "aws_<site>_private"; the GCP VM pair becomes
// "gcp_bastion" and "gcp_private". Every private node is proxied through
// its site's bastion. user is the SSH login for every node.
func FromOutputs(outputs provisioning.Outputs, user string) (*Topology, error) {
	t := &Topology{nodes: make(map[string]*Node)}

	if outputs.Has(OutputAWSSites) {
		var sites map[string]awsSite
		if err := outputs.Decode(OutputAWSSites, &sites); err != nil {
			return nil, err
		}
		key, err := outputs.String(OutputAWSKeyFile)
		if err != nil {
			return nil, err
		}

		names := make([]string, 0, len(sites))
		for name := range sites {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := t.addSite("aws_"+name, sites[name].VM, user, key); err != nil {
				return nil, err
			}
		}
	}

	if outputs.Has(OutputGCPVM) {
		var vm vmPair
		if err := outputs.Decode(OutputGCPVM, &vm); err != nil {
			return nil, err
		}
		key, err := outputs.String(OutputGCPKeyFile)
		if err != nil {
			return nil, err
		}
		if err := t.addSite("gcp", vm, user, key); err != nil {
			return nil, err
		}
	}

	if len(t.Sites) == 0 {
		return nil, fmt.Errorf("outputs contain neither %s nor %s", OutputAWSSites, OutputGCPVM)
	}
	return t, nil
}

func (t *Topology) addSite(prefix string, vm vmPair, user, key string) error {
	if vm.PublicVMPublicIP == "" {
		return fmt.Errorf("site %s: bastion has no public address", prefix)
	}
	if vm.PrivateVMPrivateIP == "" {
		return fmt.Errorf("site %s: private VM has no private address", prefix)
	}

	bastion := &Node{
		Name:           prefix + "_bastion",
		PrivateAddress: vm.PublicVMPrivateIP,
		PublicAddress:  vm.PublicVMPublicIP,
		User:           user,
		KeyPath:        key,
	}
	private := &Node{
		Name:           prefix + "_private",
		PrivateAddress: vm.PrivateVMPrivateIP,
		Proxy:          bastion,
		User:           user,
		KeyPath:        key,
	}

	t.nodes[bastion.Name] = bastion
	t.nodes[private.Name] = private
	t.Sites = append(t.Sites, Site{Name: prefix, Bastion: bastion, Private: private, GatusURL: vm.GatusURL})
	return nil
}

// Node returns the named node.
func (t *Topology) Node(name string) (*Node, error) {
	n, ok := t.nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", name)
	}
	return n, nil
}

// ResolveKeyPaths makes relative key paths absolute against dir, the
// directory terraform wrote them from.
func (t *Topology) ResolveKeyPaths(dir string) {
	for _, n := range t.nodes {
		if n.KeyPath != "" && !filepath.IsAbs(n.KeyPath) {
			n.KeyPath = filepath.Join(dir, n.KeyPath)
		}
	}
}

// Names returns every node name in sorted order.
func (t *Topology) Names() []string {
	names := make([]string, 0, len(t.nodes))
	for name := range t.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GatusURLs maps site names to the Gatus instance running on the site's
// bastion. Sites without a monitor are omitted.
func (t *Topology) GatusURLs() map[string]string {
	urls := make(map[string]string)
	for _, s := range t.Sites {
		if s.GatusURL != "" {
			urls[s.Name] = s.GatusURL
		}
	}
	return urls
}

// Pair is a source node name and the node whose private address it probes.
type Pair struct {
	Source string
	Target string
}

// Name labels the pair in logs and reports.
func (p Pair) Name() string {
	return p.Source + " -> " + p.Target
}

// DefaultPairs returns the private-to-private matrix: every AWS site to
// GCP and back, plus each AWS site to the next one through the transit.
func (t *Topology) DefaultPairs() []Pair {
	var aws []Site
	var gcp *Site
	for i := range t.Sites {
		if t.Sites[i].Name == "gcp" {
			gcp = &t.Sites[i]
			continue
		}
		aws = append(aws, t.Sites[i])
	}

	var pairs []Pair
	if gcp != nil {
		for _, s := range aws {
			pairs = append(pairs, Pair{Source: s.Private.Name, Target: gcp.Private.Name})
		}
		for _, s := range aws {
			pairs = append(pairs, Pair{Source: gcp.Private.Name, Target: s.Private.Name})
		}
	}
	for i := 0; i+1 < len(aws); i++ {
		pairs = append(pairs, Pair{Source: aws[i].Private.Name, Target: aws[i+1].Private.Name})
	}
	return pairs
}
