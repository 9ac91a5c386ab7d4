// Package wasm implements the WASM plugin sandbox (spec §4.15/§4.16) with
// wazero: each plugin call runs in a fresh module instance bounded by a
// linear memory cap and a wall-clock timeout. Capability enforcement itself (which capabilities a plugin is
// actually granted, as opposed to merely declares) is the Plugin Manager's
// job: it resolves declared capabilities against the auto-granted low-risk
// set and any operator grants before a Sandbox is ever constructed, and
// Config.Capabilities here reflects only that resolved, already-granted
// set. Grounded on the original Rust daemon's
// plugin/wasm_runtime.rs (wasmtime fuel metering + WasiCtxBuilder), adapted
// to wazero's equivalent mechanisms: a compilation-time Go instruction
// limit is not directly comparable to wasmtime's fuel counter, so Sandbox
// instead bounds execution with a context deadline and a module-local
// memory limiter, and treats a context-deadline exceeded as the fuel/time
// exhaustion case from the original design.
package wasm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/relaydev/conductor/errs"
	"github.com/relaydev/conductor/plugin"
)

const opLoad = "wasm.Sandbox.Load"
const opCall = "wasm.Sandbox.Call"

// Config bounds a plugin call's resource usage (spec §4.15).
type Config struct {
	MaxMemoryBytes  uint32
	MaxExecutionTime time.Duration
	Capabilities    []plugin.Capability
}

// DefaultConfig matches the original implementation's documented defaults:
// 128MB memory, a generous instruction budget approximated here as a 5
// second wall-clock ceiling, and the low-risk capability set auto-granted
// to every plugin (spec §4.15). Elevated capabilities (Filesystem,
// Subprocess, SystemControl) are never included here: the Plugin Manager
// adds them only when an operator has explicitly granted them to a specific
// plugin.
func DefaultConfig() Config {
	return Config{
		MaxMemoryBytes:   128 * 1024 * 1024,
		MaxExecutionTime: 5 * time.Second,
		Capabilities:     append([]plugin.Capability(nil), plugin.LowRiskCapabilities...),
	}
}

// Sandbox loads and runs one compiled WASM plugin module.
type Sandbox struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	meta     plugin.Metadata
	cfg      Config
}

// Load compiles wasmBytes under cfg. The WASI snapshot-preview1 host
// functions are instantiated for every plugin, whatever its capabilities.
func Load(ctx context.Context, wasmBytes []byte, meta plugin.Metadata, cfg Config) (*Sandbox, error) {
	rc := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(uint32(cfg.MaxMemoryBytes / 65536))
	runtime := wazero.NewRuntimeWithConfig(ctx, rc)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, errs.Wrap(errs.KindPluginLoad, opLoad, err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, errs.Wrap(errs.KindPluginLoad, opLoad, err)
	}

	return &Sandbox{runtime: runtime, compiled: compiled, meta: meta, cfg: cfg}, nil
}

// Close releases the runtime and compiled module.
func (s *Sandbox) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

// Call instantiates a fresh module and invokes its "execute" export with
// trigger, JSON-encoded, written to and read from the guest's linear
// memory. A fresh instance per call matches the original design's
// "memory isolation" guarantee: no state leaks between invocations.
func (s *Sandbox) Call(ctx context.Context, trigger plugin.TriggerContext, params map[string]string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.MaxExecutionTime)
	defer cancel()

	// A plugin whose resolved Config.Capabilities includes Filesystem would
	// get a scoped, read-only directory mounted here via WithFS; no
	// deployment in this daemon's scope has configured a concrete directory
	// to expose yet, so the mount point itself remains unset even when the
	// capability has been granted.
	modCfg := wazero.NewModuleConfig().WithName("")

	mod, err := s.runtime.InstantiateModule(callCtx, s.compiled, modCfg)
	if err != nil {
		if callCtx.Err() != nil {
			return errs.Wrap(errs.KindPluginExecution, opCall, callCtx.Err())
		}
		return errs.Wrap(errs.KindPluginExecution, opCall, err)
	}
	defer mod.Close(callCtx)

	payload, err := json.Marshal(struct {
		Trigger plugin.TriggerContext `json:"trigger"`
		Params  map[string]string     `json:"params"`
	}{trigger, params})
	if err != nil {
		return errs.Wrap(errs.KindPluginExecution, opCall, err)
	}

	ptr, err := writeBytes(callCtx, mod, payload)
	if err != nil {
		return errs.Wrap(errs.KindPluginExecution, opCall, err)
	}

	execute := mod.ExportedFunction("execute")
	if execute == nil {
		return errs.New(errs.KindPluginLoad, opCall, "plugin module has no execute export")
	}

	_, err = execute.Call(callCtx, ptr, uint64(len(payload)))
	if err != nil {
		if callCtx.Err() != nil {
			return errs.Wrap(errs.KindPluginExecution, opCall, callCtx.Err())
		}
		return errs.Wrap(errs.KindPluginExecution, opCall, err)
	}
	return nil
}

// writeBytes allocates len(data) bytes in the guest's "memory" export and
// copies data into it, returning the guest pointer (spec §4.15's memory
// handoff convention, mirrored from the original's write_string_to_memory).
func writeBytes(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	alloc := mod.ExportedFunction("allocate")
	if alloc == nil {
		return 0, errs.New(errs.KindPluginLoad, opCall, "plugin module has no allocate export")
	}
	results, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	ptr := results[0]

	mem := mod.Memory()
	if mem == nil {
		return 0, errs.New(errs.KindPluginLoad, opCall, "plugin module has no memory export")
	}
	if !mem.Write(uint32(ptr), data) {
		return 0, errs.New(errs.KindPluginExecution, opCall, "failed to write to guest memory")
	}
	return ptr, nil
}
