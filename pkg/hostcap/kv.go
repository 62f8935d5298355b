package hostcap

import "context"

// KVBackend is the contract kv_get/kv_put are defined against. No
// backend is wired to it today — see the package doc.
type KVBackend interface {
	Get(ctx context.Context, ns, key string) (string, bool, error)
	Put(ctx context.Context, ns, key, val string) error
}

// KVGet implements the kv_get host capability. Per spec §4.4 this
// always reports absent, regardless of any attached backend.
func (s *State) KVGet(_ context.Context, _, _ string) (string, bool) {
	return "", false
}

// KVPut implements the kv_put host capability: always a no-op.
func (s *State) KVPut(_ context.Context, _, _, _ string) {}
