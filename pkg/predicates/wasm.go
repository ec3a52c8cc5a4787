package predicates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/Mindburn-Labs/hoc/pkg/contract"
	"github.com/Mindburn-Labs/hoc/pkg/value"
)

// WASMConfig bounds the resources a predicate module may use.
type WASMConfig struct {
	MemoryLimitPages uint32 // 64KiB pages, 0 for the wazero default
	// Timeout bounds each test. A module whose test times out is closed
	// and every later test of it fails.
	Timeout          time.Duration
}

// WASMModule hosts predicates exported by a WebAssembly module. Each
// exported predicate has the signature (i64) -> i32; nonzero means true.
// The module has no imports: no filesystem, network, clock, or WASI.
type WASMModule struct {
	runtime wazero.Runtime
	module  api.Module
	cfg     WASMConfig
	mu      sync.Mutex // exported functions are not safe for concurrent calls
}

// LoadWASM compiles and instantiates a predicate module.
func LoadWASM(ctx context.Context, wasm []byte, cfg WASMConfig) (*WASMModule, error) {
	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, rc)

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("wasm: compilation failed: %w", err)
	}
	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithStartFunctions())
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("wasm: instantiation failed: %w", err)
	}
	return &WASMModule{runtime: r, module: mod, cfg: cfg}, nil
}

// Predicate returns a flat contract named name backed by the exported
// function export. Non-integer values and traps fail the predicate.
func (m *WASMModule) Predicate(name, export string) (*contract.Flat, error) {
	fn := m.module.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("wasm: predicate %s: no exported function %q", name, export)
	}
	def := fn.Definition()
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != 1 || params[0] != api.ValueTypeI64 || len(results) != 1 || results[0] != api.ValueTypeI32 {
		return nil, fmt.Errorf("wasm: predicate %s: %q must have type (i64) -> i32", name, export)
	}

	return contract.NewFlat(contract.NewFalliblePredicate(name, func(ctx context.Context, v any) (bool, error) {
		n, ok := value.IntegerValue(v)
		if !ok {
			return false, fmt.Errorf("%s: %w: expected integer?, given %s", name, ErrDomain, value.Format(v))
		}
		if m.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
			defer cancel()
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		res, err := fn.Call(ctx, api.EncodeI64(n))
		if err != nil {
			return false, fmt.Errorf("wasm: %s trapped: %w", export, err)
		}
		return api.DecodeI32(res[0]) != 0, nil
	}))
}

// Close releases the runtime and every predicate built from it.
func (m *WASMModule) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}
