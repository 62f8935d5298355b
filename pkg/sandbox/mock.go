package sandbox

import "encoding/json"

// mockArtifact is the sentinel JSON shape recognized in place of a
// real compiled component, letting tests exercise the pipeline without
// a real wasm binary (spec §4.5's mock short-circuit).
type mockArtifact struct {
	MockExec  bool                       `json:"_mock_mcp_exec"`
	Responses map[string]json.RawMessage `json:"responses"`
}

// parseMockArtifact returns the mock shape and true iff bytes parse as
// UTF-8 JSON matching the sentinel object. Any other shape, or invalid
// JSON, returns ok=false so the caller surfaces the original compile
// failure untouched.
func parseMockArtifact(bytes []byte) (mockArtifact, bool) {
	var m mockArtifact
	if err := json.Unmarshal(bytes, &m); err != nil {
		return mockArtifact{}, false
	}
	if !m.MockExec || m.Responses == nil {
		return mockArtifact{}, false
	}
	return m, true
}

// lookup returns the canned response for action, or ok=false if no
// such action was registered.
func (m mockArtifact) lookup(action string) (json.RawMessage, bool) {
	resp, ok := m.Responses[action]
	return resp, ok
}
