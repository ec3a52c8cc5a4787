// Package manifest loads predicates, contracts and procedures from YAML.
//
//	version: 1.0.0
//	predicates:
//	  - name: pos?
//	    cel: value > 0
//	contracts:
//	  - name: int-binop
//	    contract: (-> integer? integer? integer?)
//	procedures:
//	  - name: add
//	    arity: 2
//	    cel: args[0] + args[1]
//	    contract: int-binop
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
)

// SupportedVersions is the constraint a manifest version must satisfy.
const SupportedVersions = "^1"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid manifest")

// Manifest is the parsed YAML document.
type Manifest struct {
	Version    string          `yaml:"version" json:"version"`
	Predicates []PredicateSpec `yaml:"predicates,omitempty" json:"predicates,omitempty"`
	Contracts  []ContractSpec  `yaml:"contracts,omitempty" json:"contracts,omitempty"`
	Procedures []ProcedureSpec `yaml:"procedures,omitempty" json:"procedures,omitempty"`

	// Path is the file the manifest was read from, if any. Relative
	// schema and wasm files resolve against its directory.
	Path string `yaml:"-" json:"path,omitempty"`
}

// PredicateSpec defines one predicate. Exactly one of CEL, Schema,
// SchemaFile and WASM is set.
type PredicateSpec struct {
	Name       string `yaml:"name" json:"name"`
	CEL        string `yaml:"cel,omitempty" json:"cel,omitempty"`
	Schema     string `yaml:"schema,omitempty" json:"schema,omitempty"`
	SchemaFile string `yaml:"schema_file,omitempty" json:"schema_file,omitempty"`
	WASM       string `yaml:"wasm,omitempty" json:"wasm,omitempty"`
	Export     string `yaml:"export,omitempty" json:"export,omitempty"` // defaults to the predicate name

	pos position
}

// ContractSpec names a contract written in arrow notation.
type ContractSpec struct {
	Name     string `yaml:"name" json:"name"`
	Contract string `yaml:"contract" json:"contract"`

	pos position
}

// ProcedureSpec defines a CEL procedure and, optionally, the named
// contract it is provided under.
type ProcedureSpec struct {
	Name     string `yaml:"name" json:"name"`
	Arity    int    `yaml:"arity" json:"arity"`
	CEL      string `yaml:"cel" json:"cel"`
	Contract string `yaml:"contract,omitempty" json:"contract,omitempty"`

	pos position
}

type position struct {
	line, col int
}

func (p *PredicateSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain PredicateSpec
	if err := node.Decode((*plain)(p)); err != nil {
		return err
	}
	p.pos = position{node.Line, node.Column}
	return nil
}

func (c *ContractSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain ContractSpec
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	c.pos = position{node.Line, node.Column}
	return nil
}

func (p *ProcedureSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain ProcedureSpec
	if err := node.Decode((*plain)(p)); err != nil {
		return err
	}
	p.pos = position{node.Line, node.Column}
	return nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the version and the shape of every entry.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalid)
	}
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return fmt.Errorf("%w: bad version %q: %v", ErrInvalid, m.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: version %s is not supported (want %s)", ErrInvalid, m.Version, SupportedVersions)
	}

	seen := make(map[string]bool)
	claim := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%w: %s without a name", ErrInvalid, kind)
		}
		if seen[kind+"/"+name] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalid, kind, name)
		}
		seen[kind+"/"+name] = true
		return nil
	}

	for _, p := range m.Predicates {
		if err := claim("predicate", p.Name); err != nil {
			return err
		}
		n := 0
		for _, s := range []string{p.CEL, p.Schema, p.SchemaFile, p.WASM} {
			if s != "" {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("%w: predicate %q needs exactly one of cel, schema, schema_file, wasm", ErrInvalid, p.Name)
		}
	}
	for _, c := range m.Contracts {
		if err := claim("contract", c.Name); err != nil {
			return err
		}
		if c.Contract == "" {
			return fmt.Errorf("%w: contract %q is empty", ErrInvalid, c.Name)
		}
	}
	for _, p := range m.Procedures {
		if err := claim("procedure", p.Name); err != nil {
			return err
		}
		if p.CEL == "" {
			return fmt.Errorf("%w: procedure %q has no cel body", ErrInvalid, p.Name)
		}
		if p.Arity < 0 {
			return fmt.Errorf("%w: procedure %q has negative arity", ErrInvalid, p.Name)
		}
	}
	return nil
}

func (m *Manifest) source() string {
	if m.Path == "" {
		return "<manifest>"
	}
	return m.Path
}

func (m *Manifest) locate(pos position) srcloc.Location {
	return srcloc.At(m.source(), pos.line, pos.col)
}

func (m *Manifest) resolve(file string) string {
	if filepath.IsAbs(file) || m.Path == "" {
		return file
	}
	return filepath.Join(filepath.Dir(m.Path), file)
}
