package toolexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
)

func writeArtifact(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

// Scenario 1 from spec §8, exercised through the full Resolve -> Verify
// -> Run pipeline rather than the Runner alone.
func TestRunLocalEchoOKEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "echo", []byte(`{"_mock_mcp_exec":true,"responses":{"tool-invoke":{"ok":1}}}`))

	cfg := &execconfig.ExecConfig{
		Store:    execconfig.LocalDirStore{Path: dir},
		Security: execconfig.VerifyPolicy{AllowUnverified: true},
		Runtime:  execconfig.DefaultRuntimePolicy(),
	}

	result, err := Run(context.Background(), ExecRequest{
		Component: "echo",
		Action:    "tool-invoke",
		Args:      []byte(`{}`),
	}, cfg, Backends{})

	require.NoError(t, err)
	require.JSONEq(t, `{"ok":1}`, string(result))
}

// Scenario 2 from spec §8: digest mismatch.
func TestRunDigestMismatchEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "echo", []byte("fake wasm contents"))

	cfg := &execconfig.ExecConfig{
		Store: execconfig.LocalDirStore{Path: dir},
		Security: execconfig.VerifyPolicy{
			RequiredDigests: map[string]string{"echo": "0000000000000000000000000000000000000000000000000000000000000000"},
		},
		Runtime: execconfig.DefaultRuntimePolicy(),
	}

	_, err := Run(context.Background(), ExecRequest{Component: "echo", Action: "tool-invoke", Args: []byte(`{}`)}, cfg, Backends{})
	require.Error(t, err)

	var ee *execerr.ExecError
	require.ErrorAs(t, err, &ee)
	var ve *execerr.VerificationError
	require.ErrorAs(t, ee, &ve)
	require.Equal(t, execerr.VerificationDigestMismatch, ve.Kind)
}

// Scenario 3 from spec §8: empty local store, missing component.
func TestRunNotFoundEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := &execconfig.ExecConfig{
		Store:    execconfig.LocalDirStore{Path: dir},
		Security: execconfig.VerifyPolicy{AllowUnverified: true},
		Runtime:  execconfig.DefaultRuntimePolicy(),
	}

	_, err := Run(context.Background(), ExecRequest{Component: "missing", Action: "tool-invoke", Args: []byte(`{}`)}, cfg, Backends{})
	require.Error(t, err)
	require.True(t, execerr.IsNotFound(err))
}
