package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestRunEndToEndEchoSuccess(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "echo"), []byte(`{"_mock_mcp_exec":true,"responses":{"tool-invoke":{"ok":1}}}`))

	cfgPath := filepath.Join(dir, "cfg.json")
	writeFile(t, cfgPath, []byte(`{
		"store_kind": "local_dir",
		"store": {"path": "`+dir+`"},
		"security": {"allow_unverified": true},
		"runtime": {"per_call_timeout": 5000000000, "max_attempts": 1, "base_backoff": 10000000, "wallclock_timeout": 5000000000}
	}`))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"-config", cfgPath, "-component", "echo", "-action", "tool-invoke", "-args", "{}"}, &stdout, &stderr)

	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	require.JSONEq(t, `{"ok":1}`, stdout.String())
}

func TestRunMissingRequiredFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"-config", "cfg.json"}, &stdout, &stderr)
	require.Equal(t, 2, code)
}

func TestRunInvalidArgsJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.json")
	writeFile(t, cfgPath, []byte(`{"store_kind": "local_dir", "store": {"path": "`+dir+`"}}`))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"-config", cfgPath, "-component", "echo", "-action", "run", "-args", "{not json"}, &stdout, &stderr)
	require.Equal(t, 2, code)
}

func TestRunComponentNotFoundExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cfg.json")
	writeFile(t, cfgPath, []byte(`{
		"store_kind": "local_dir",
		"store": {"path": "`+dir+`"},
		"security": {"allow_unverified": true},
		"runtime": {"per_call_timeout": 5000000000, "max_attempts": 1, "base_backoff": 10000000, "wallclock_timeout": 5000000000}
	}`))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"-config", cfgPath, "-component", "missing", "-action", "run"}, &stdout, &stderr)
	require.Equal(t, 1, code)
}
