// Package retry implements the Retry Orchestrator: it wraps a single
// pipeline invocation with transient-failure classification and linear
// backoff. The pipeline itself is injected as a function so tests can
// substitute synthetic flakiness instead of driving a real sandbox —
// per spec.md's design note, the core must contain no process-wide
// state, unlike the legacy fixtures' atomic counters.
package retry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
	"github.com/ionforge/toolexec/pkg/toolexec"
)

// Pipeline is one un-retried attempt at resolving, verifying, and
// running a request.
type Pipeline func(ctx context.Context, req toolexec.ExecRequest, cfg *execconfig.ExecConfig) (json.RawMessage, error)

// ExecWithRetries runs pipeline up to max(cfg.Runtime.MaxAttempts, 1)
// times, writing the zero-based attempt number into req.Tenant before
// each try, retrying only transient failures, and sleeping
// base_backoff*n between attempts.
func ExecWithRetries(ctx context.Context, req toolexec.ExecRequest, cfg *execconfig.ExecConfig, pipeline Pipeline) (json.RawMessage, error) {
	maxAttempts := cfg.Runtime.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for n := uint32(1); n <= maxAttempts; n++ {
		if req.Tenant != nil {
			req.Tenant.Attempt = int(n - 1)
		}

		result, err := pipeline(ctx, req, cfg)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !execerr.IsTransient(err) {
			return nil, err
		}
		if n == maxAttempts {
			return nil, err
		}

		sleep := saturatingMul(cfg.Runtime.BaseBackoff, n)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, lastErr
}
