// Package topology models the hosts of a deployed fabric and how to reach
// them.
//
// A [Node] is reached either directly on its public address or through its
// proxy, which may itself be proxied. [Route] flattens that chain into the
// ordered list of hops an SSH client has to traverse. [FromOutputs] builds
// the node set from the site stage's outputs: one bastion and one private
// VM per site, the private VM proxied through the bastion.
package topology
