package verify

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/ionforge/toolexec/pkg/artifact"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
)

func resolvedFor(b []byte) artifact.ResolvedArtifact {
	return artifact.ResolvedArtifact{Bytes: b, Digest: artifact.Digest(b)}
}

func TestVerifyAcceptsMatchingRequiredDigest(t *testing.T) {
	resolved := resolvedFor([]byte("fake wasm contents"))
	policy := execconfig.VerifyPolicy{RequiredDigests: map[string]string{"echo": resolved.Digest}}

	v, err := Verify("echo", resolved, policy)
	require.Nil(t, err)
	require.NotNil(t, v.VerifiedDigest)
	require.Equal(t, resolved.Digest, *v.VerifiedDigest)
	require.Nil(t, v.VerifiedSigner)
}

func TestVerifyRejectsMismatchedDigest(t *testing.T) {
	resolved := resolvedFor([]byte("fake wasm contents"))
	policy := execconfig.VerifyPolicy{RequiredDigests: map[string]string{"echo": "00000000000000000000000000000000000000000000000000000000000000"}}

	_, err := Verify("echo", resolved, policy)
	require.NotNil(t, err)
	require.Equal(t, execerr.VerificationDigestMismatch, err.Kind)
	require.Equal(t, resolved.Digest, err.Actual)
}

func TestVerifyDigestComparisonCaseInsensitive(t *testing.T) {
	resolved := resolvedFor([]byte("payload"))
	upper := upperHex(resolved.Digest)
	policy := execconfig.VerifyPolicy{RequiredDigests: map[string]string{"echo": upper}}

	_, err := Verify("echo", resolved, policy)
	require.Nil(t, err)
}

func TestVerifyRejectsUnsignedWhenNotAllowed(t *testing.T) {
	resolved := resolvedFor([]byte("payload"))
	policy := execconfig.VerifyPolicy{AllowUnverified: false}

	_, err := Verify("echo", resolved, policy)
	require.NotNil(t, err)
	require.Equal(t, execerr.VerificationUnsignedRejected, err.Kind)
}

func TestVerifyAcceptsUnsignedWhenAllowed(t *testing.T) {
	resolved := resolvedFor([]byte("payload"))
	policy := execconfig.VerifyPolicy{AllowUnverified: true}

	v, err := Verify("echo", resolved, policy)
	require.Nil(t, err)
	require.Nil(t, v.VerifiedDigest)
}

func TestVerifyRequiredDigestWinsOverAllowUnverified(t *testing.T) {
	resolved := resolvedFor([]byte("payload"))
	policy := execconfig.VerifyPolicy{
		AllowUnverified: true,
		RequiredDigests: map[string]string{"echo": "bad"},
	}

	_, err := Verify("echo", resolved, policy)
	require.NotNil(t, err)
	require.Equal(t, execerr.VerificationDigestMismatch, err.Kind)
}

// Property: I1 — a verified artifact's digest always matches the
// sha256 of its own bytes.
func TestVerifiedDigestMatchesBytesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("verified artifact digest equals sha256 of its bytes", prop.ForAll(
		func(data []byte) bool {
			resolved := resolvedFor(data)
			v, err := Verify("echo", resolved, execconfig.VerifyPolicy{AllowUnverified: true})
			if err != nil {
				return false
			}
			return v.Resolved.Digest == artifact.Digest(v.Resolved.Bytes)
		},
		gen.SliceOf(gen.UInt8Range(0, 255)),
	))

	properties.TestingRun(t)
}

func upperHex(s string) string {
	out := []byte(s)
	for i, c := range out {
		if 'a' <= c && c <= 'z' {
			out[i] = c - ('a' - 'A')
		}
	}
	return string(out)
}
