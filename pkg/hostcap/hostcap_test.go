package hostcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPRequestDisabledByDefault(t *testing.T) {
	s := NewState(false, nil, nil)
	_, errStr := s.HTTPRequest(context.Background(), "GET", "https://example.invalid", nil, nil)
	require.Equal(t, "http-disabled", errStr)
}

func TestHTTPRequestInvalidMethod(t *testing.T) {
	s := NewState(true, nil, nil)
	_, errStr := s.HTTPRequest(context.Background(), "FROBNICATE", "https://example.invalid", nil, nil)
	require.Equal(t, "invalid-method", errStr)
}

func TestHTTPRequestInvalidHeader(t *testing.T) {
	s := NewState(true, nil, nil)
	_, errStr := s.HTTPRequest(context.Background(), "GET", "https://example.invalid", []string{"no-colon-here"}, nil)
	require.Equal(t, "invalid-header", errStr)
}

func TestHTTPRequestInvalidHeaderName(t *testing.T) {
	s := NewState(true, nil, nil)
	_, errStr := s.HTTPRequest(context.Background(), "GET", "https://example.invalid", []string{" : value"}, nil)
	require.Equal(t, "invalid-header-name", errStr)
}

func TestHTTPRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "bar", r.Header.Get("X-Foo"))
		require.NotEmpty(t, r.Header.Get("X-Toolexec-Call-Id"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewState(true, nil, nil)
	body, errStr := s.HTTPRequest(context.Background(), "GET", srv.URL, []string{"X-Foo: bar"}, nil)
	require.Empty(t, errStr)
	require.Equal(t, "ok", string(body))
}

func TestHTTPRequestNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewState(true, nil, nil)
	_, errStr := s.HTTPRequest(context.Background(), "GET", srv.URL, nil, nil)
	require.Equal(t, "status-503", errStr)
}

func TestSecretGetAlwaysDisabled(t *testing.T) {
	backend := &stubSecrets{val: "shh", ok: true}
	s := NewState(true, backend, nil)
	val, errStr := s.SecretGet(context.Background(), "api-key")
	require.Empty(t, val)
	require.Equal(t, "secrets-disabled", errStr)
}

func TestKVGetAlwaysAbsent(t *testing.T) {
	backend := &stubKV{val: "present-value", ok: true}
	s := NewState(true, nil, backend)
	val, ok := s.KVGet(context.Background(), "ns", "key")
	require.False(t, ok)
	require.Empty(t, val)
}

func TestKVPutIsNoop(t *testing.T) {
	backend := &stubKV{}
	s := NewState(true, nil, backend)
	s.KVPut(context.Background(), "ns", "key", "val")
	require.False(t, backend.putCalled)
}

type stubSecrets struct {
	val string
	ok  bool
}

func (s *stubSecrets) Get(_ context.Context, _ string) (string, bool, error) {
	return s.val, s.ok, nil
}

type stubKV struct {
	val       string
	ok        bool
	putCalled bool
}

func (k *stubKV) Get(_ context.Context, _, _ string) (string, bool, error) {
	return k.val, k.ok, nil
}

func (k *stubKV) Put(_ context.Context, _, _, _ string) error {
	k.putCalled = true
	return nil
}
