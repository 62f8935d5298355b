// Package sandbox implements the Runner: it instantiates a wazero
// sandbox around one verified artifact, invokes an action, and
// enforces the dual wallclock timers spec §4.5 requires. wazero has no
// native WebAssembly Component Model support (the teacher's own
// wasi_sandbox.go/sandbox.go only ever run WASI command modules), so
// the canonical `exec(string,string)->string` ABI is realized over
// plain linear memory: the guest exports `alloc(i32)->i32`, the host
// writes `action`/`args_json` into guest-allocated regions, and
// `exec` returns a packed `(ptr<<32|len)` i64 the host reads back.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"

	"github.com/ionforge/toolexec/pkg/artifact"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
	"github.com/ionforge/toolexec/pkg/hostcap"
)

// RunInput carries everything the Runner needs beyond the verified
// artifact itself.
type RunInput struct {
	Action      string
	ArgsJSON    []byte
	Policy      execconfig.RuntimePolicy
	HTTPEnabled bool
	Secrets     hostcap.SecretsBackend
	KV          hostcap.KVBackend
}

type runOutcome struct {
	result  json.RawMessage
	runErr  *execerr.RunnerError
	elapsed time.Duration
}

// Run executes one action against one verified artifact. It never
// returns both a result and an error (I5): exactly one of the return
// values is non-zero.
func Run(ctx context.Context, verified artifact.VerifiedArtifact, in RunInput) (json.RawMessage, *execerr.RunnerError) {
	perCallTimeout := in.Policy.PerCallTimeout
	if perCallTimeout <= 0 {
		perCallTimeout = execconfig.DefaultRuntimePolicy().PerCallTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	outcomeCh := make(chan runOutcome, 1)
	go func() {
		start := time.Now()
		result, runErr := invoke(callCtx, verified, in)
		outcomeCh <- runOutcome{result: result, runErr: runErr, elapsed: time.Since(start)}
	}()

	select {
	case <-callCtx.Done():
		// (T1) fires: the caller must not wait for the worker to
		// unwind. wazero's WithCloseOnContextDone tears the runtime
		// down once callCtx is observed done, so the goroutine above
		// will exit on its own; we simply stop waiting for it.
		return nil, &execerr.RunnerError{Kind: execerr.RunnerTimeout, Elapsed: perCallTimeout}
	case out := <-outcomeCh:
		if out.runErr != nil {
			return nil, out.runErr
		}
		// (T2): a sanity check against the inner measured duration,
		// catching a guest that returned just as (T1) was about to fire.
		wallclock := in.Policy.WallclockTimeout
		if wallclock > 0 && out.elapsed > wallclock {
			return nil, &execerr.RunnerError{Kind: execerr.RunnerTimeout, Elapsed: out.elapsed}
		}
		return out.result, nil
	}
}

// invoke performs sandbox setup steps (a)-(e) and the canonical (or
// legacy) ABI call. It never itself applies T1; the caller races it
// against callCtx.Done().
func invoke(ctx context.Context, verified artifact.VerifiedArtifact, in RunInput) (json.RawMessage, *execerr.RunnerError) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if in.Policy.MaxMemory != nil && *in.Policy.MaxMemory > 0 {
		pages := uint32(*in.Policy.MaxMemory / (64 * 1024))
		if pages == 0 {
			pages = 1
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(pages)
	}
	// runtime.fuel is plumbed per RuntimePolicy but not enforced:
	// wazero has no fuel-metering mechanism to bind it to (see
	// DESIGN.md's open-question decision). MaxMemory is the one limit
	// that maps onto a real wazero knob.

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	defer func() { _ = r.Close(ctx) }()

	bytes := verified.Resolved.Bytes

	compiled, err := r.CompileModule(ctx, bytes)
	if err != nil {
		return mockFallback(bytes, in.Action, err)
	}
	defer func() { _ = compiled.Close(ctx) }()

	capState := hostcap.NewState(in.HTTPEnabled, in.Secrets, in.KV)
	hostModule := buildHostModule(r, capState)
	if _, err := hostModule.Instantiate(ctx); err != nil {
		return nil, &execerr.RunnerError{Kind: execerr.RunnerInternal, Cause: fmt.Errorf("instantiate host module: %w", err)}
	}

	modCfg := wazero.NewModuleConfig().WithName("toolexec-guest")
	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &execerr.RunnerError{Kind: execerr.RunnerTimeout}
		}
		return nil, &execerr.RunnerError{Kind: execerr.RunnerSandbox, Cause: fmt.Errorf("instantiate guest: %w", err)}
	}
	defer func() { _ = mod.Close(ctx) }()

	var resultBytes []byte
	if in.Policy.LegacyABI {
		resultBytes, err = invokeLegacyABI(ctx, mod, in.Action, in.ArgsJSON)
	} else {
		resultBytes, err = invokeCanonicalABI(ctx, mod, in.Action, in.ArgsJSON)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, &execerr.RunnerError{Kind: execerr.RunnerTimeout}
		}
		return nil, &execerr.RunnerError{Kind: execerr.RunnerSandbox, Cause: err}
	}

	if !json.Valid(resultBytes) {
		return nil, &execerr.RunnerError{Kind: execerr.RunnerSerde, Cause: fmt.Errorf("guest returned non-JSON result")}
	}
	return json.RawMessage(resultBytes), nil
}

// mockFallback is invoked whenever real compilation fails: per §4.5,
// the Runner parses the artifact bytes as the mock JSON sentinel
// before surfacing the original compile error.
func mockFallback(artifactBytes []byte, action string, compileErr error) (json.RawMessage, *execerr.RunnerError) {
	mock, ok := parseMockArtifact(artifactBytes)
	if !ok {
		return nil, &execerr.RunnerError{Kind: execerr.RunnerSandbox, Cause: compileErr}
	}
	resp, found := mock.lookup(action)
	if !found {
		return nil, &execerr.RunnerError{Kind: execerr.RunnerActionNotFound, Action: action}
	}
	return resp, nil
}
