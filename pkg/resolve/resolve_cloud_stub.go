//go:build !gcp

package resolve

import (
	"context"

	"github.com/ionforge/toolexec/pkg/artifact"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
)

// resolveGCS stands in for the real GCS-backed resolver when the repo
// is built without the "gcp" tag, so GCSStore remains a constructible
// config value without forcing every build to pull in
// cloud.google.com/go/storage.
func resolveGCS(_ context.Context, _ string, _ execconfig.GCSStore) (artifact.ResolvedArtifact, *execerr.ResolveError) {
	return artifact.ResolvedArtifact{}, &execerr.ResolveError{Kind: execerr.ResolveIO}
}
