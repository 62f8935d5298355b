package hostcap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// validMethods mirrors the small, fixed set a guest is allowed to
// request; anything else is "invalid-method" rather than a passthrough
// to net/http (which would accept arbitrary verbs).
var validMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true, http.MethodHead: true,
	http.MethodOptions: true,
}

// HTTPRequest implements the http_request host capability. On success
// it returns the response body; on any failure it returns the exact
// string_error tokens named in spec §4.4 so guest code can branch on
// them without parsing host-specific messages.
func (s *State) HTTPRequest(ctx context.Context, method, url string, headers []string, body []byte) ([]byte, string) {
	if !s.HTTPEnabled {
		return nil, "http-disabled"
	}

	upperMethod := strings.ToUpper(method)
	if !validMethods[upperMethod] {
		return nil, "invalid-method"
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, upperMethod, url, bodyReader)
	if err != nil {
		return nil, fmt.Sprintf("request: %s", err)
	}

	for _, h := range headers {
		idx := strings.IndexByte(h, ':')
		if idx < 0 {
			return nil, "invalid-header"
		}
		name := strings.TrimSpace(h[:idx])
		value := strings.TrimSpace(h[idx+1:])
		if name == "" {
			return nil, "invalid-header-name"
		}
		if !validHeaderValue(value) {
			return nil, "invalid-header-value"
		}
		req.Header.Add(name, value)
	}

	// Call-correlation id, grounded on
	// pkg/util/resiliency/client.go's per-request trace injection, but
	// a stable call id (google/uuid) rather than a raw trace header.
	req.Header.Set("X-Toolexec-Call-Id", uuid.NewString())

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Sprintf("request: %s", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Sprintf("body: %s", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Sprintf("status-%d", resp.StatusCode)
	}

	return respBody, ""
}

func validHeaderValue(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] == '\r' || v[i] == '\n' {
			return false
		}
	}
	return true
}
