// Package execerr defines the layered, typed error taxonomy shared by
// every pipeline stage. Integrators are expected to switch on Kind, not
// parse messages; every error preserves its originating cause so
// diagnostics show the full chain, the way
// Mindburn-Labs-helm/core/pkg/trust's PackLoadError and
// pkg/runtime's ClassifiedError do it.
package execerr

import (
	"errors"
	"fmt"
	"time"
)

// ResolveKind classifies why the Resolver could not produce bytes.
type ResolveKind string

const (
	ResolveNotFound           ResolveKind = "NOT_FOUND"
	ResolveIO                 ResolveKind = "IO"
	ResolveOciNotImplemented  ResolveKind = "OCI_NOT_IMPLEMENTED"
	ResolveWargNotImplemented ResolveKind = "WARG_NOT_IMPLEMENTED"
	ResolveHTTPFetch          ResolveKind = "HTTP_FETCH"
)

// ResolveError is returned by a Resolver.
type ResolveError struct {
	Kind  ResolveKind
	Cause error
}

func (e *ResolveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resolve: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("resolve: %s", e.Kind)
}

func (e *ResolveError) Unwrap() error { return e.Cause }

// VerificationKind classifies why the Verifier rejected an artifact.
type VerificationKind string

const (
	VerificationDigestMismatch   VerificationKind = "DIGEST_MISMATCH"
	VerificationUnsignedRejected VerificationKind = "UNSIGNED_REJECTED"
)

// VerificationError is returned by the Verifier.
type VerificationError struct {
	Kind     VerificationKind
	Expected string // only set for DigestMismatch
	Actual   string // only set for DigestMismatch
}

func (e *VerificationError) Error() string {
	switch e.Kind {
	case VerificationDigestMismatch:
		return fmt.Sprintf("verification: digest mismatch: expected %s, got %s", e.Expected, e.Actual)
	default:
		return fmt.Sprintf("verification: %s", e.Kind)
	}
}

// RunnerKind classifies why the Runner failed.
type RunnerKind string

const (
	RunnerTimeout        RunnerKind = "TIMEOUT"
	RunnerActionNotFound RunnerKind = "ACTION_NOT_FOUND"
	RunnerInternal       RunnerKind = "INTERNAL"
	RunnerSandbox        RunnerKind = "SANDBOX"
	RunnerSerde          RunnerKind = "SERDE"
	RunnerNotImplemented RunnerKind = "NOT_IMPLEMENTED"
)

// RunnerError is returned by the Runner.
type RunnerError struct {
	Kind    RunnerKind
	Action  string        // only set for ActionNotFound
	Elapsed time.Duration // only set for Timeout
	Cause   error
}

func (e *RunnerError) Error() string {
	switch e.Kind {
	case RunnerTimeout:
		return fmt.Sprintf("runner: timed out after %s", e.Elapsed)
	case RunnerActionNotFound:
		return fmt.Sprintf("runner: action %q not found", e.Action)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("runner: %s: %v", e.Kind, e.Cause)
		}
		return fmt.Sprintf("runner: %s", e.Kind)
	}
}

func (e *RunnerError) Unwrap() error { return e.Cause }

// ExecError is the top-level error every pipeline call returns.
type ExecError struct {
	Component string
	Action    string // set only for Tool
	Code      string // set only for Tool; a dotted string, e.g. "transient.http"
	Payload   any    // set only for Tool
	Cause     error  // ResolveError (including NotFound), VerificationError, RunnerError, or nil for Tool
}

func (e *ExecError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("exec %s/%s: tool error %s", e.Component, e.Action, e.Code)
	case e.Cause != nil:
		return fmt.Sprintf("exec %s: %v", e.Component, e.Cause)
	default:
		return fmt.Sprintf("exec %s: not found", e.Component)
	}
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Resolve wraps a ResolveError. A NotFound cause is wrapped the same way
// as every other resolve kind; IsNotFound is what recognizes it.
func Resolve(component string, source error) *ExecError {
	var re *ResolveError
	if errors.As(source, &re) && re.Kind == ResolveNotFound {
		return &ExecError{Component: component, Cause: source}
	}
	return &ExecError{Component: component, Cause: source}
}

// Verification wraps a VerificationError.
func Verification(component string, source error) *ExecError {
	return &ExecError{Component: component, Cause: source}
}

// Runner wraps a RunnerError.
func Runner(component string, source error) *ExecError {
	return &ExecError{Component: component, Cause: source}
}

// Tool builds an ExecError reported by the tool itself, not the
// pipeline.
func Tool(component, action, code string, payload any) *ExecError {
	return &ExecError{Component: component, Action: action, Code: code, Payload: payload}
}

// IsNotFound reports whether err flattens to ExecError::NotFound, i.e.
// its cause is a ResolveError with Kind NotFound.
func IsNotFound(err error) bool {
	var ee *ExecError
	if !errors.As(err, &ee) {
		return false
	}
	var re *ResolveError
	return errors.As(ee.Cause, &re) && re.Kind == ResolveNotFound
}

// KindOf returns a short classification string for err, suitable for an
// audit log's outcome column: the Tool code if set, else the wrapped
// Resolve/Verification/Runner Kind, else "not_found". A non-ExecError
// yields "unknown".
func KindOf(err error) string {
	var ee *ExecError
	if !errors.As(err, &ee) {
		return "unknown"
	}
	if ee.Code != "" {
		return ee.Code
	}
	var re *ResolveError
	if errors.As(ee.Cause, &re) {
		return "resolve." + string(re.Kind)
	}
	var ve *VerificationError
	if errors.As(ee.Cause, &ve) {
		return "verification." + string(ve.Kind)
	}
	var rne *RunnerError
	if errors.As(ee.Cause, &rne) {
		return "runner." + string(rne.Kind)
	}
	return "not_found"
}

// IsTransient classifies err per the Retry Orchestrator's rule (§4.6):
// transient iff it is a Runner::Timeout, or a Tool error whose code
// starts with "transient.".
func IsTransient(err error) bool {
	var ee *ExecError
	if !errors.As(err, &ee) {
		return false
	}
	if ee.Code != "" {
		return len(ee.Code) >= len("transient.") && ee.Code[:len("transient.")] == "transient."
	}
	var re *RunnerError
	return errors.As(ee.Cause, &re) && re.Kind == RunnerTimeout
}
