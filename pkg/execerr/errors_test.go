package execerr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveErrorMessage(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := &ResolveError{Kind: ResolveIO, Cause: cause}
	assert.Contains(t, err.Error(), "IO")
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, cause)
}

func TestResolveErrorWithoutCause(t *testing.T) {
	err := &ResolveError{Kind: ResolveOciNotImplemented}
	assert.Equal(t, "resolve: OCI_NOT_IMPLEMENTED", err.Error())
}

func TestVerificationErrorDigestMismatchMessage(t *testing.T) {
	err := &VerificationError{Kind: VerificationDigestMismatch, Expected: "aa", Actual: "bb"}
	assert.Equal(t, "verification: digest mismatch: expected aa, got bb", err.Error())
}

func TestVerificationErrorUnsignedRejected(t *testing.T) {
	err := &VerificationError{Kind: VerificationUnsignedRejected}
	assert.Equal(t, "verification: UNSIGNED_REJECTED", err.Error())
}

func TestRunnerErrorTimeoutMessage(t *testing.T) {
	err := &RunnerError{Kind: RunnerTimeout, Elapsed: 30 * time.Second}
	assert.Equal(t, "runner: timed out after 30s", err.Error())
}

func TestRunnerErrorActionNotFoundMessage(t *testing.T) {
	err := &RunnerError{Kind: RunnerActionNotFound, Action: "frobnicate"}
	assert.Equal(t, `runner: action "frobnicate" not found`, err.Error())
}

func TestRunnerErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("trap: out of bounds")
	err := &RunnerError{Kind: RunnerSandbox, Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "SANDBOX")
}

func TestExecErrorUnwrapChain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	re := &ResolveError{Kind: ResolveIO, Cause: cause}
	ee := Resolve("echo", re)

	var gotResolve *ResolveError
	require.True(t, errors.As(ee, &gotResolve))
	assert.Equal(t, ResolveIO, gotResolve.Kind)
	assert.ErrorIs(t, ee, cause)
}

func TestToolErrorMessage(t *testing.T) {
	ee := Tool("echo", "run", "transient.http", map[string]any{"status": 503})
	assert.Equal(t, "exec echo/run: tool error transient.http", ee.Error())
}

func TestIsNotFoundTrue(t *testing.T) {
	ee := Resolve("echo", &ResolveError{Kind: ResolveNotFound})
	assert.True(t, IsNotFound(ee))
}

func TestIsNotFoundFalseForOtherResolveKinds(t *testing.T) {
	ee := Resolve("echo", &ResolveError{Kind: ResolveIO})
	assert.False(t, IsNotFound(ee))
}

func TestIsNotFoundFalseForNonExecError(t *testing.T) {
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
}

func TestIsTransientForToolCode(t *testing.T) {
	assert.True(t, IsTransient(Tool("echo", "run", "transient.http", nil)))
	assert.False(t, IsTransient(Tool("echo", "run", "permanent.bad-args", nil)))
}

func TestIsTransientForRunnerTimeout(t *testing.T) {
	ee := Runner("echo", &RunnerError{Kind: RunnerTimeout, Elapsed: time.Second})
	assert.True(t, IsTransient(ee))
}

func TestIsTransientFalseForRunnerSandboxTrap(t *testing.T) {
	ee := Runner("echo", &RunnerError{Kind: RunnerSandbox})
	assert.False(t, IsTransient(ee))
}
