// Package prerequisites checks that the local tools a run shells out to are
// installed.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string

	// VersionArgs print the tool's version. Empty tries common flags.
	VersionArgs []string
}

// DefaultTools returns the tools every deploying run needs.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "terraform",
			Required:    true,
			Description: "Required for applying and destroying the stage configurations",
			InstallURL:  "https://developer.hashicorp.com/terraform/install",
			VersionArgs: []string{"version"},
		},
	}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:        "ssh",
			Required:    false,
			Description: "Useful for inspecting bastions and private VMs by hand",
			InstallURL:  "https://www.openssh.com/",
			VersionArgs: []string{"-V"},
		},
		{
			Name:        "aws",
			Required:    false,
			Description: "Useful for inspecting the S3 state bucket",
			InstallURL:  "https://aws.amazon.com/cli/",
			VersionArgs: []string{"--version"},
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Checker looks tools up. The zero value uses PATH.
type Checker struct {
	LookPath func(file string) (string, error)
	Output   func(name string, args ...string) ([]byte, error)
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	return Checker{}.Check(tools)
}

// Check verifies that the specified tools are available.
func (c Checker) Check(tools []Tool) *CheckResults {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	results := &CheckResults{}
	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := lookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			result.Version = c.toolVersion(tool)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckDefault checks the default required tools.
func CheckDefault() *CheckResults {
	return Check(DefaultTools())
}

// CheckAll checks all tools (default + optional).
func CheckAll() *CheckResults {
	defaults := DefaultTools()
	optional := OptionalTools()
	all := make([]Tool, 0, len(defaults)+len(optional))
	all = append(all, defaults...)
	all = append(all, optional...)
	return Check(all)
}

// toolVersion returns the first line the tool prints for its version, or
// "" when it cannot be determined.
func (c Checker) toolVersion(tool Tool) string {
	output := c.Output
	if output == nil {
		output = func(name string, args ...string) ([]byte, error) {
			// #nosec G204 - name comes from trusted Tool definitions, not user input
			return exec.Command(name, args...).CombinedOutput()
		}
	}

	candidates := [][]string{{"--version"}, {"version"}, {"-v"}}
	if len(tool.VersionArgs) > 0 {
		candidates = [][]string{tool.VersionArgs}
	}

	for _, args := range candidates {
		out, err := output(tool.Name, args...)
		if err != nil {
			continue
		}
		line, _, _ := strings.Cut(string(out), "\n")
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
