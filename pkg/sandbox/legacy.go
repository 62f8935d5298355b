package sandbox

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// invokeCanonicalABI calls the guest's exported `exec` function using
// the memory-marshalling convention described in the package doc.
func invokeCanonicalABI(ctx context.Context, mod api.Module, action string, argsJSON []byte) ([]byte, error) {
	fn := mod.ExportedFunction("exec")
	if fn == nil {
		return nil, fmt.Errorf("guest does not export exec")
	}

	actionPtr, ok := guestAlloc(ctx, mod, len(action))
	if !ok || !mod.Memory().Write(actionPtr, []byte(action)) {
		return nil, fmt.Errorf("failed to write action into guest memory")
	}
	argsPtr, ok := guestAlloc(ctx, mod, len(argsJSON))
	if !ok || !mod.Memory().Write(argsPtr, argsJSON) {
		return nil, fmt.Errorf("failed to write args into guest memory")
	}

	results, err := fn.Call(ctx, uint64(actionPtr), uint64(len(action)), uint64(argsPtr), uint64(len(argsJSON)))
	if err != nil {
		return nil, fmt.Errorf("exec trapped: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("exec returned %d results, want 1 packed i64", len(results))
	}

	resultPtr, resultLen := unpackPtrLen(results[0])
	out, ok := mod.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, fmt.Errorf("exec returned an out-of-bounds result region")
	}
	return out, nil
}

// invokeLegacyABI calls the guest's exported `tool_invoke(ptr,len) ->
// (ptr,len)` function, falling back to a packed-i64 single return if
// the guest only exports that form — mirroring the original Rust
// executor's invoke_blocking fallback (greentic-mcp/src/executor.rs).
// The legacy ABI packs action and args into a single JSON envelope
// since tool_invoke takes one payload, not two.
func invokeLegacyABI(ctx context.Context, mod api.Module, action string, argsJSON []byte) ([]byte, error) {
	fn := mod.ExportedFunction("tool_invoke")
	if fn == nil {
		return nil, fmt.Errorf("guest does not export tool_invoke")
	}

	payload := append([]byte(`{"action":`), quoteJSONString(action)...)
	payload = append(payload, `,"args":`...)
	payload = append(payload, argsJSON...)
	payload = append(payload, '}')

	ptr, ok := guestAlloc(ctx, mod, len(payload))
	if !ok || !mod.Memory().Write(ptr, payload) {
		return nil, fmt.Errorf("failed to write payload into guest memory")
	}

	results, err := fn.Call(ctx, uint64(ptr), uint64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("tool_invoke trapped: %w", err)
	}

	var resultPtr, resultLen uint32
	switch len(results) {
	case 2:
		resultPtr, resultLen = uint32(results[0]), uint32(results[1])
	case 1:
		resultPtr, resultLen = unpackPtrLen(results[0])
	default:
		return nil, fmt.Errorf("tool_invoke returned %d results, want 1 or 2", len(results))
	}

	out, ok := mod.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, fmt.Errorf("tool_invoke returned an out-of-bounds result region")
	}
	return out, nil
}

func quoteJSONString(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	out = append(out, '"')
	return out
}
