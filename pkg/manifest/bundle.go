package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/notation"
	"github.com/Mindburn-Labs/hoc/pkg/predicates"
	"github.com/Mindburn-Labs/hoc/pkg/srcloc"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// Bundle is a built manifest: a predicate registry, named contracts and
// procedures ready to be wrapped.
type Bundle struct {
	Registry *predicates.Registry
	Reader   *notation.Reader

	contracts  map[string]contract.Contract
	order      []string
	procedures map[string]*procedure
	modules    []*predicates.WASMModule
}

type procedure struct {
	proc     value.Procedure
	contract string
	site     srcloc.Location
}

// BuildOptions configures Build.
type BuildOptions struct {
	WASM predicates.WASMConfig
}

// Build compiles every predicate, reads every contract and creates every
// procedure. Close the bundle to release WASM modules.
func (m *Manifest) Build(ctx context.Context, opts BuildOptions) (*Bundle, error) {
	b := &Bundle{
		Registry:   predicates.Builtins(),
		contracts:  make(map[string]contract.Contract),
		procedures: make(map[string]*procedure),
	}
	if err := m.build(ctx, b, opts); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	return b, nil
}

func (m *Manifest) build(ctx context.Context, b *Bundle, opts BuildOptions) error {
	cel, err := predicates.NewCELEnv()
	if err != nil {
		return err
	}

	for _, spec := range m.Predicates {
		f, err := m.buildPredicate(ctx, b, cel, spec, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", m.locate(spec.pos).Position(), err)
		}
		if err := b.Registry.RegisterAs(spec.Name, f); err != nil {
			return fmt.Errorf("%s: %w", m.locate(spec.pos).Position(), err)
		}
	}

	b.Reader = notation.NewReader(b.Registry)
	for _, spec := range m.Contracts {
		c, err := b.Reader.Read(m.source()+"#"+spec.Name, spec.Contract)
		if err != nil {
			return fmt.Errorf("%s: contract %s: %w", m.locate(spec.pos).Position(), spec.Name, err)
		}
		if err := b.Reader.Define(spec.Name, c); err != nil {
			return fmt.Errorf("%s: %w", m.locate(spec.pos).Position(), err)
		}
		b.contracts[spec.Name] = c
		b.order = append(b.order, spec.Name)
	}

	for _, spec := range m.Procedures {
		p, err := cel.Procedure(spec.Name, spec.Arity, spec.CEL)
		if err != nil {
			return fmt.Errorf("%s: %w", m.locate(spec.pos).Position(), err)
		}
		if spec.Contract != "" {
			if _, ok := b.contracts[spec.Contract]; !ok {
				return fmt.Errorf("%s: procedure %s: %w: unknown contract %q",
					m.locate(spec.pos).Position(), spec.Name, ErrInvalid, spec.Contract)
			}
		}
		b.procedures[spec.Name] = &procedure{
			proc:     p,
			contract: spec.Contract,
			site:     m.locate(spec.pos).WithLabel(spec.Name),
		}
	}
	return nil
}

func (m *Manifest) buildPredicate(ctx context.Context, b *Bundle, cel *predicates.CELEnv, spec PredicateSpec, opts BuildOptions) (*contract.Flat, error) {
	switch {
	case spec.CEL != "":
		return cel.Predicate(spec.Name, spec.CEL)
	case spec.Schema != "":
		return predicates.Schema(spec.Name, spec.Schema)
	case spec.SchemaFile != "":
		data, err := os.ReadFile(m.resolve(spec.SchemaFile))
		if err != nil {
			return nil, fmt.Errorf("predicate %s: %w", spec.Name, err)
		}
		return predicates.Schema(spec.Name, string(data))
	default:
		data, err := os.ReadFile(m.resolve(spec.WASM))
		if err != nil {
			return nil, fmt.Errorf("predicate %s: %w", spec.Name, err)
		}
		mod, err := predicates.LoadWASM(ctx, data, opts.WASM)
		if err != nil {
			return nil, fmt.Errorf("predicate %s: %w", spec.Name, err)
		}
		b.modules = append(b.modules, mod)
		export := spec.Export
		if export == "" {
			export = spec.Name
		}
		return mod.Predicate(spec.Name, export)
	}
}

// Contract returns a named contract.
func (b *Bundle) Contract(name string) (contract.Contract, bool) {
	c, ok := b.contracts[name]
	return c, ok
}

// ContractNames lists contracts in manifest order.
func (b *Bundle) ContractNames() []string {
	return append([]string(nil), b.order...)
}

// Procedure returns a procedure without its contract.
func (b *Bundle) Procedure(name string) (value.Procedure, bool) {
	p, ok := b.procedures[name]
	if !ok {
		return nil, false
	}
	return p.proc, true
}

// ProcedureNames lists procedures in sorted order.
func (b *Bundle) ProcedureNames() []string {
	names := make([]string, 0, len(b.procedures))
	for n := range b.procedures {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Provide wraps procedure name with contractName, or with the contract
// the manifest declares for it when contractName is empty. The definition
// site is the procedure's position in the manifest.
func (b *Bundle) Provide(name, contractName string, opts ...contract.Option) (*contract.Wrapped, error) {
	p, ok := b.procedures[name]
	if !ok {
		return nil, fmt.Errorf("manifest: unknown procedure %q", name)
	}
	if contractName == "" {
		contractName = p.contract
	}
	if contractName == "" {
		return nil, fmt.Errorf("manifest: procedure %q has no contract", name)
	}
	c, ok := b.Reader.Lookup(contractName)
	if !ok {
		var err error
		if c, err = b.Reader.Read("<contract>", contractName); err != nil {
			return nil, err
		}
	}
	fn, ok := c.(*contract.Function)
	if !ok {
		return nil, fmt.Errorf("manifest: %s is not a function contract", contractName)
	}
	opts = append([]contract.Option{contract.WithDefinitionSite(p.site)}, opts...)
	return contract.Wrap(p.proc, fn, opts...)
}

// Close releases WASM modules.
func (b *Bundle) Close(ctx context.Context) error {
	var errs []error
	for _, m := range b.modules {
		errs = append(errs, m.Close(ctx))
	}
	b.modules = nil
	return errors.Join(errs...)
}
