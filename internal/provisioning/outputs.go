package provisioning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Output is a single named stage output.
type Output struct {
	Value interface{} `json:"value"`
}

// Outputs maps output names to values, as persisted in backend state.
type Outputs map[string]Output

// Has reports whether the named output exists.
func (o Outputs) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// Names returns the output names in sorted order.
func (o Outputs) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a string output. Missing or null outputs yield "".
func (o Outputs) String(name string) (string, error) {
	out, ok := o[name]
	if !ok || out.Value == nil {
		return "", nil
	}
	s, ok := out.Value.(string)
	if !ok {
		return "", fmt.Errorf("output %q is %T, not a string", name, out.Value)
	}
	return s, nil
}

// Decode decodes the named output into target, matching fields by their
// mapstructure tags.
func (o Outputs) Decode(name string, target interface{}) error {
	out, ok := o[name]
	if !ok {
		return fmt.Errorf("output %q not found", name)
	}
	if err := mapstructure.Decode(out.Value, target); err != nil {
		return fmt.Errorf("failed to decode output %q: %w", name, err)
	}
	return nil
}

// Require checks that every named output exists and is not null.
func (o Outputs) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if out, ok := o[name]; !ok || out.Value == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing outputs: %s", strings.Join(missing, ", "))
	}
	return nil
}
