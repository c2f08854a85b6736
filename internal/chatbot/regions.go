package chatbot

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

// Directory is the state → district → assembly hierarchy the chatbot offers
// as options.
type Directory struct {
	States []State `yaml:"states"`
}

// State is a state or union territory.
type State struct {
	Name      string     `yaml:"name"`
	Key       string     `yaml:"key"`
	Districts []District `yaml:"districts"`
}

// District is a district within a state.
type District struct {
	Name       string   `yaml:"name"`
	Assemblies []string `yaml:"assemblies"`
}

// LoadDirectory parses a YAML region directory.
func LoadDirectory(data []byte) (*Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse region directory: %w", err)
	}
	if len(d.States) == 0 {
		return nil, fmt.Errorf("region directory has no states")
	}
	return &d, nil
}

// DefaultDirectory returns the embedded region directory.
func DefaultDirectory() (*Directory, error) {
	return LoadDirectory(regionsYAML)
}

// StateNames returns every state name in directory order.
func (d *Directory) StateNames() []string {
	out := make([]string, 0, len(d.States))
	for _, s := range d.States {
		out = append(out, s.Name)
	}
	return out
}

// DistrictNames returns the districts of state, or nil when the state is
// unknown or has no coverage.
func (d *Directory) DistrictNames(state string) []string {
	s := d.state(state)
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Districts))
	for _, dist := range s.Districts {
		out = append(out, dist.Name)
	}
	return out
}

// AssemblyNames returns the assembly constituencies of a district.
func (d *Directory) AssemblyNames(state, district string) []string {
	s := d.state(state)
	if s == nil {
		return nil
	}
	for _, dist := range s.Districts {
		if dist.Name == district {
			return append([]string(nil), dist.Assemblies...)
		}
	}
	return nil
}

func (d *Directory) state(name string) *State {
	for i := range d.States {
		if d.States[i].Name == name {
			return &d.States[i]
		}
	}
	return nil
}

// matchOption returns the canonical option equal to input under Unicode case
// folding and whitespace trimming.
func matchOption(options []string, input string) (string, bool) {
	fold := cases.Fold()
	want := fold.String(strings.Join(strings.Fields(input), " "))
	if want == "" {
		return "", false
	}
	for _, opt := range options {
		if fold.String(opt) == want {
			return opt, true
		}
	}
	return "", false
}
