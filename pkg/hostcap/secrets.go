package hostcap

import "context"

// SecretsBackend is the contract secret_get is defined against. No
// backend is wired to it today — see the package doc.
type SecretsBackend interface {
	Get(ctx context.Context, name string) (string, bool, error)
}

// SecretGet implements the secret_get host capability. Per spec §4.4
// this always answers "secrets-disabled" regardless of whether a
// backend is attached: the capability is plumbed for a future policy
// that allow-lists which secrets a tool may read, which does not yet
// exist.
func (s *State) SecretGet(_ context.Context, _ string) (string, string) {
	return "", "secrets-disabled"
}
