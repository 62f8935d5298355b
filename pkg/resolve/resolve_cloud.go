//go:build gcp

package resolve

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"

	"github.com/ionforge/toolexec/pkg/artifact"
	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
)

// resolveGCS mirrors resolveS3 against Google Cloud Storage, adapted
// from Mindburn-Labs-helm/core/pkg/artifacts/gcs_store.go's
// hash-addressed object layout to name-addressed lookup. Gated behind
// the "gcp" build tag the same way the teacher gates GCSStore, since
// cloud.google.com/go/storage pulls in a heavy transitive dependency
// tree that most builds of this engine don't need.
func resolveGCS(ctx context.Context, name string, s execconfig.GCSStore) (artifact.ResolvedArtifact, *execerr.ResolveError) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return artifact.ResolvedArtifact{}, &execerr.ResolveError{Kind: execerr.ResolveIO, Cause: err}
	}
	defer func() { _ = client.Close() }()

	objectPath := s.Prefix + name + ".wasm"
	reader, err := client.Bucket(s.Bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return artifact.ResolvedArtifact{}, &execerr.ResolveError{Kind: execerr.ResolveNotFound, Cause: err}
		}
		return artifact.ResolvedArtifact{}, &execerr.ResolveError{Kind: execerr.ResolveIO, Cause: err}
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return artifact.ResolvedArtifact{}, &execerr.ResolveError{Kind: execerr.ResolveIO, Cause: err}
	}

	return artifact.ResolvedArtifact{
		Origin: artifact.Origin{Kind: artifact.OriginGCS, Path: s.Bucket + "/" + objectPath},
		Bytes:  data,
		Digest: artifact.Digest(data),
	}, nil
}
