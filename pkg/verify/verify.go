// Package verify implements the Verifier stage: a ResolvedArtifact
// plus a VerifyPolicy becomes either a VerifiedArtifact or a rejection.
// No bytes are copied or mutated — the verified result shares the
// resolved artifact's buffer by reference, the same ownership
// discipline Mindburn-Labs-helm/core/pkg/trust applies to PackRef
// verification.
package verify

import (
	"github.com/ionforge/toolexec/pkg/artifact"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
)

// Verify checks resolved against policy for componentName.
//
// Precedence: a configured required digest always wins, even when it
// happens to match an unsigned artifact under allow_unverified. Absent
// a required digest, allow_unverified alone decides accept/reject.
// Trusted signers are recorded for forward compatibility but never
// consulted — see the doc comment on artifact.VerifiedArtifact.
func Verify(componentName string, resolved artifact.ResolvedArtifact, policy execconfig.VerifyPolicy) (artifact.VerifiedArtifact, *execerr.VerificationError) {
	if required, ok := policy.RequiredDigests[componentName]; ok {
		if !artifact.EqualDigest(required, resolved.Digest) {
			return artifact.VerifiedArtifact{}, &execerr.VerificationError{
				Kind:     execerr.VerificationDigestMismatch,
				Expected: required,
				Actual:   resolved.Digest,
			}
		}
		digest := resolved.Digest
		return artifact.VerifiedArtifact{Resolved: resolved, VerifiedDigest: &digest}, nil
	}

	if !policy.AllowUnverified {
		return artifact.VerifiedArtifact{}, &execerr.VerificationError{Kind: execerr.VerificationUnsignedRejected}
	}

	return artifact.VerifiedArtifact{Resolved: resolved}, nil
}
