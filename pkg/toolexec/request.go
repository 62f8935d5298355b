// Package toolexec wires the Resolver, Verifier, and Runner into the
// single end-to-end pipeline the Retry Orchestrator wraps, and defines
// the ExecRequest value that pipeline operates on.
package toolexec

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ionforge/toolexec/pkg/audit"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
	"github.com/ionforge/toolexec/pkg/hostcap"
	"github.com/ionforge/toolexec/pkg/resolve"
	"github.com/ionforge/toolexec/pkg/sandbox"
	"github.com/ionforge/toolexec/pkg/telemetry"
	"github.com/ionforge/toolexec/pkg/verify"
)

// TenantCtx is opaque context threaded through a call. The pipeline
// only ever reads/writes Attempt, which the Retry Orchestrator sets to
// the zero-based attempt number before each invocation.
type TenantCtx struct {
	Attempt int
}

// ExecRequest names the component/action to invoke and the arguments
// to pass. Args stays undecoded JSON until the Runner needs it, so the
// pipeline never pays a decode/re-encode round trip it doesn't need.
type ExecRequest struct {
	Component string
	Action    string
	Args      json.RawMessage
	Tenant    *TenantCtx
}

// Backends lets a caller attach real secret/kv backends, an audit sink,
// and a tracer provider to every invocation. Secrets/KV are present for
// forward compatibility only — see pkg/hostcap's package doc for why
// the capability surface ignores them today. Audit and Telemetry are
// both optional (nil disables them) and neither can turn a successful
// call into a failed one.
type Backends struct {
	Secrets   hostcap.SecretsBackend
	KV        hostcap.KVBackend
	Audit     audit.Sink
	Telemetry *telemetry.Provider
}

// Run resolves, verifies, and executes one ExecRequest against cfg.
// This is the "pipeline" the Retry Orchestrator's contract names: a
// single, un-retried attempt.
func Run(ctx context.Context, req ExecRequest, cfg *execconfig.ExecConfig, backends Backends) (json.RawMessage, error) {
	attempt := 0
	if req.Tenant != nil {
		attempt = req.Tenant.Attempt
	}
	start := time.Now()

	result, digest, err := run(ctx, req, cfg, backends, attempt)

	if backends.Audit != nil {
		outcome := "ok"
		if err != nil {
			outcome = execerr.KindOf(err)
		}
		argsHash, hashErr := audit.HashArgs(req.Args)
		if hashErr == nil {
			audit.RecordOrLog(ctx, backends.Audit, nil, audit.Entry{
				Component:   req.Component,
				Action:      req.Action,
				Digest:      digest,
				ArgsHash:    argsHash,
				OutcomeKind: outcome,
				Elapsed:     time.Since(start),
				At:          start,
			})
		}
	}

	return result, err
}

func run(ctx context.Context, req ExecRequest, cfg *execconfig.ExecConfig, backends Backends, attempt int) (json.RawMessage, string, error) {
	tp := backends.Telemetry

	resolveCtx, endResolve := tp.StartStage(ctx, "resolve", req.Component, req.Action, attempt)
	resolved, resolveErr := resolve.Resolve(resolveCtx, req.Component, cfg.Store)
	if resolveErr != nil {
		endResolve(resolveErr)
		return nil, "", execerr.Resolve(req.Component, resolveErr)
	}
	endResolve(nil)

	verifyCtx, endVerify := tp.StartStage(ctx, "verify", req.Component, req.Action, attempt)
	verified, verifyErr := verify.Verify(req.Component, resolved, cfg.Security)
	if verifyErr != nil {
		endVerify(verifyErr)
		return nil, resolved.Digest, execerr.Verification(req.Component, verifyErr)
	}
	endVerify(nil)

	runCtx, endRun := tp.StartStage(ctx, "run", req.Component, req.Action, attempt)
	result, runErr := sandbox.Run(runCtx, verified, sandbox.RunInput{
		Action:      req.Action,
		ArgsJSON:    req.Args,
		Policy:      cfg.Runtime,
		HTTPEnabled: cfg.HTTPEnabled,
		Secrets:     backends.Secrets,
		KV:          backends.KV,
	})
	if runErr != nil {
		endRun(runErr)
		return nil, resolved.Digest, execerr.Runner(req.Component, runErr)
	}
	endRun(nil)

	return result, resolved.Digest, nil
}
