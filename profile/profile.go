package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"exprmap/internal/diagnostic"
	"exprmap/internal/match"
	"exprmap/mapper"
)

// Version is the only profile format version understood.
const Version = "1"

var (
	ErrInvalidProfile = errors.New("profile: invalid profile")
	ErrUnknownPair    = errors.New("profile: no rule for pair")
)

// File is a parsed profile.
type File struct {
	Version  string   `yaml:"version"`
	Registry Registry `yaml:"registry,omitempty"`
	Maps     []Map    `yaml:"maps,omitempty"`
}

// Registry overrides fields of mapper.Config. Zero values keep the base.
type Registry struct {
	MaxExpansionPasses int   `yaml:"max_expansion_passes,omitempty"`
	StrictBindings     *bool `yaml:"strict_bindings,omitempty"`
}

// Map adjusts one registered rule.
type Map struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Ignore Names  `yaml:"ignore,omitempty"`
}

// Pair renders the entry as "source -> target".
func (m Map) Pair() string {
	return m.Source + " -> " + m.Target
}

// Names unmarshals from either a single string or a list of strings.
type Names []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}

		*n = Names{}
		if s != "" {
			*n = Names{s}
		}

		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}

		*n = list

		return nil
	default:
		return fmt.Errorf("line %d: expected a name or a list of names", node.Line)
	}
}

// MarshalYAML writes a single name as a scalar.
func (n Names) MarshalYAML() (any, error) {
	if len(n) == 1 {
		return n[0], nil
	}

	return []string(n), nil
}

// LoadFile reads and parses the profile at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a profile. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	if f.Version == "" {
		f.Version = Version
	}

	return &f, nil
}

// Marshal encodes f as YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// Validate checks the profile structure without a registry.
func (f *File) Validate() diagnostic.Diagnostics {
	var res diagnostic.Diagnostics

	if f.Version != Version {
		res.AddError(diagnostic.CodeProfileInvalid,
			fmt.Sprintf("unsupported version %q", f.Version), "", "version")
	}

	if f.Registry.MaxExpansionPasses < 0 {
		res.AddError(diagnostic.CodeProfileInvalid,
			"max_expansion_passes must not be negative", "", "registry.max_expansion_passes")
	}

	seen := map[string]int{}

	for i, m := range f.Maps {
		path := fmt.Sprintf("maps[%d]", i)

		if m.Source == "" || m.Target == "" {
			res.AddError(diagnostic.CodeProfileInvalid, "source and target are required", m.Pair(), path)
			continue
		}

		if prev, ok := seen[m.Pair()]; ok {
			res.AddError(diagnostic.CodeProfileInvalid,
				fmt.Sprintf("pair already listed at maps[%d]", prev), m.Pair(), path)

			continue
		}

		seen[m.Pair()] = i

		for j, name := range m.Ignore {
			if name == "" {
				res.AddError(diagnostic.CodeProfileInvalid, "empty member name",
					m.Pair(), fmt.Sprintf("%s.ignore[%d]", path, j))
			}
		}
	}

	return res
}

// Check reports entries naming pairs that reg has no rule for.
func (f *File) Check(reg *mapper.Registry) diagnostic.Diagnostics {
	var res diagnostic.Diagnostics

	for i, m := range f.Maps {
		if _, ok := reg.Find(m.Source, m.Target); !ok {
			res.AddWarning(diagnostic.CodeProfileUnknownPair, "no registered rule",
				m.Pair(), fmt.Sprintf("maps[%d]", i))
		}
	}

	return res
}

// Config returns base with the registry overrides applied.
func (f *File) Config(base mapper.Config) mapper.Config {
	if f.Registry.MaxExpansionPasses > 0 {
		base.MaxExpansionPasses = f.Registry.MaxExpansionPasses
	}

	if f.Registry.StrictBindings != nil {
		base.StrictBindings = *f.Registry.StrictBindings
	}

	return base
}

// Apply adds the ignore rules of every entry to the rules of reg. The
// profile must be valid and every pair registered.
func (f *File) Apply(reg *mapper.Registry) error {
	diags := f.Validate()
	if err := diags.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	for _, m := range f.Maps {
		rule, ok := reg.Find(m.Source, m.Target)
		if !ok {
			return fmt.Errorf("%w: %s%s", ErrUnknownPair, m.Pair(), match.Hint(m.Pair(), reg.Pairs()))
		}

		if len(m.Ignore) == 0 {
			continue
		}

		if err := rule.IgnoreMembers(m.Ignore...); err != nil {
			return fmt.Errorf("apply %s: %w", m.Pair(), err)
		}
	}

	return nil
}
