package sandbox

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ionforge/toolexec/pkg/hostcap"
)

// hostModuleName is the stable interface name guests import the four
// capabilities under.
const hostModuleName = "toolexec:host"

// taggedResult is the wire shape every host capability writes back
// into guest memory: a success/error union the guest decodes itself,
// so no capability failure ever traps the guest (spec §4.4).
type taggedResult struct {
	OK      bool   `json:"ok"`
	Value   string `json:"value,omitempty"`
	Present bool   `json:"present,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeTagged allocates space in guest memory via its exported
// "alloc" function, writes the JSON-encoded tagged result, and returns
// the packed (ptr<<32 | len) i64 the guest unpacks on its side.
func writeTagged(ctx context.Context, mod api.Module, tr taggedResult) uint64 {
	encoded, err := json.Marshal(tr)
	if err != nil {
		encoded = []byte(`{"ok":false,"error":"internal: encode result"}`)
	}
	ptr, ok := guestAlloc(ctx, mod, len(encoded))
	if !ok {
		return 0
	}
	if !mod.Memory().Write(ptr, encoded) {
		return 0
	}
	return packPtrLen(ptr, uint32(len(encoded)))
}

// guestAlloc calls the guest's exported allocator, required by the
// memory-marshalling convention shared by host capabilities and the
// canonical exec ABI.
func guestAlloc(ctx context.Context, mod api.Module, size int) (uint32, bool) {
	alloc := mod.ExportedFunction("alloc")
	if alloc == nil {
		return 0, false
	}
	results, err := alloc.Call(ctx, uint64(size))
	if err != nil || len(results) != 1 {
		return 0, false
	}
	return uint32(results[0]), true
}

func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

func unpackPtrLen(packed uint64) (uint32, uint32) {
	return uint32(packed >> 32), uint32(packed)
}

func readString(mod api.Module, ptr, length uint32) (string, bool) {
	b, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(b), true
}

// buildHostModule registers the four host capabilities under
// hostModuleName, bound to a fresh hostcap.State for this invocation.
// Every Go-side error is encoded into the tagged result rather than
// propagated as a trap, matching §4.4's "no capability is allowed to
// panic the guest".
func buildHostModule(r wazero.Runtime, state *hostcap.State) wazero.HostModuleBuilder {
	builder := r.NewHostModuleBuilder(hostModuleName)

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, methodPtr, methodLen, urlPtr, urlLen, headersPtr, headersLen, bodyPtr, bodyLen uint32) uint64 {
			method, ok := readString(mod, methodPtr, methodLen)
			if !ok {
				return writeTagged(ctx, mod, taggedResult{Error: "invalid-method"})
			}
			url, ok := readString(mod, urlPtr, urlLen)
			if !ok {
				return writeTagged(ctx, mod, taggedResult{Error: "invalid-header"})
			}
			var headers []string
			if headersLen > 0 {
				raw, ok := readString(mod, headersPtr, headersLen)
				if !ok {
					return writeTagged(ctx, mod, taggedResult{Error: "invalid-header"})
				}
				headers = strings.Split(raw, "\n")
			}
			var body []byte
			if bodyLen > 0 {
				b, ok := mod.Memory().Read(bodyPtr, bodyLen)
				if !ok {
					return writeTagged(ctx, mod, taggedResult{Error: "request: unreadable body"})
				}
				body = b
			}

			respBody, errStr := state.HTTPRequest(ctx, method, url, headers, body)
			if errStr != "" {
				return writeTagged(ctx, mod, taggedResult{Error: errStr})
			}
			return writeTagged(ctx, mod, taggedResult{OK: true, Value: string(respBody)})
		}).
		Export("http_request")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, namePtr, nameLen uint32) uint64 {
			name, ok := readString(mod, namePtr, nameLen)
			if !ok {
				return writeTagged(ctx, mod, taggedResult{Error: "internal: unreadable name"})
			}
			val, errStr := state.SecretGet(ctx, name)
			if errStr != "" {
				return writeTagged(ctx, mod, taggedResult{Error: errStr})
			}
			return writeTagged(ctx, mod, taggedResult{OK: true, Value: val})
		}).
		Export("secret_get")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, nsPtr, nsLen, keyPtr, keyLen uint32) uint64 {
			ns, ok1 := readString(mod, nsPtr, nsLen)
			key, ok2 := readString(mod, keyPtr, keyLen)
			if !ok1 || !ok2 {
				return writeTagged(ctx, mod, taggedResult{Error: "internal: unreadable key"})
			}
			val, present := state.KVGet(ctx, ns, key)
			return writeTagged(ctx, mod, taggedResult{OK: true, Present: present, Value: val})
		}).
		Export("kv_get")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, nsPtr, nsLen, keyPtr, keyLen, valPtr, valLen uint32) uint32 {
			ns, ok1 := readString(mod, nsPtr, nsLen)
			key, ok2 := readString(mod, keyPtr, keyLen)
			val, ok3 := readString(mod, valPtr, valLen)
			if !ok1 || !ok2 || !ok3 {
				return 1
			}
			state.KVPut(ctx, ns, key, val)
			return 0
		}).
		Export("kv_put")

	return builder
}
