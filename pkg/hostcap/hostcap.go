// Package hostcap implements the four host capability functions a
// guest sandbox may import: http_request, secret_get, kv_get, kv_put.
// Each function is gated to a fixed, capability-disabled behavior by
// design — http_request is the only one actually wired to the
// network, and only when the call enables it. secret_get always
// answers "secrets-disabled", kv_get always "absent", kv_put is a
// no-op, unconditionally: the SecretsBackend/KVBackend interfaces exist
// so a State can be constructed with one attached, but nothing in this
// package ever calls Get/Put on it.
package hostcap

import (
	"net/http"
	"sync"
	"time"
)

// State is exclusively owned by one sandbox invocation; nothing inside
// it is shared across concurrent exec calls.
type State struct {
	HTTPEnabled bool

	Secrets SecretsBackend
	KV      KVBackend

	clientOnce sync.Once
	client     *http.Client
}

// httpClient lazily builds the outbound client on first use, the way
// §4.4 requires — never shared across invocations because State itself
// is per-invocation.
func (s *State) httpClient() *http.Client {
	s.clientOnce.Do(func() {
		s.client = &http.Client{Timeout: 30 * time.Second}
	})
	return s.client
}

// NewState builds a State with backends attached but with capability
// gating exactly per spec: http_enabled flows through from the call,
// secrets/kv backends are present but unconsulted.
func NewState(httpEnabled bool, secrets SecretsBackend, kv KVBackend) *State {
	return &State{HTTPEnabled: httpEnabled, Secrets: secrets, KV: kv}
}
