// Package describe implements the capability-discovery probe built on
// top of the core pipeline: it asks a component, through ordinary exec
// calls, what it supports. Ported from
// original_source/crates/mcp-exec/src/describe.rs's describe_tool, with
// the Rust-side describe-v1 component-interface probe (a
// feature-gated, wasmtime-component-model-typed export lookup) dropped
// since this engine has no wasmtime component-model binding to probe
// through — only the generic capabilities/list_secrets/config_schema
// actions survive, which round-trip through the same exec ABI every
// other action does.
package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ionforge/toolexec/pkg/execconfig"
	"github.com/ionforge/toolexec/pkg/execerr"
	"github.com/ionforge/toolexec/pkg/toolexec"
)

// Maybe mirrors describe.rs's Maybe<T>: either the component answered
// (Data), or the probe action is unsupported.
type Maybe[T any] struct {
	Data        T
	Unsupported bool
}

// Supported wraps a present value.
func Supported[T any](v T) Maybe[T] { return Maybe[T]{Data: v} }

// UnsupportedValue returns the Unsupported variant for T.
func UnsupportedValue[T any]() Maybe[T] { return Maybe[T]{Unsupported: true} }

// ToolDescribe is what a caller learns about a component without
// running its real work actions.
type ToolDescribe struct {
	Capabilities Maybe[[]string]
	Secrets      Maybe[json.RawMessage]
	ConfigSchema Maybe[json.RawMessage]
}

// Runner is the subset of toolexec.Run this package depends on, so
// tests can substitute a synthetic pipeline.
type Runner func(ctx context.Context, req toolexec.ExecRequest, cfg *execconfig.ExecConfig, backends toolexec.Backends) (json.RawMessage, error)

// Describe probes name's capabilities, list_secrets, and config_schema
// actions. A missing action is reported as Unsupported rather than
// propagated as an error: per spec.md §9's open question, "missing
// probe action" is Unsupported without prescribing which internal
// error code signaled it — here that's any of: a NotFound resolve
// error (execerr.IsNotFound), a Runner ActionNotFound error (the
// component doesn't implement the action, as the mock short-circuit
// reports it), or a Tool error whose code is "iface-error.not-found",
// matching the original's fallback.
func Describe(ctx context.Context, name string, cfg *execconfig.ExecConfig, backends toolexec.Backends, run Runner) (*ToolDescribe, error) {
	capsRaw, err := tryAction(ctx, name, "capabilities", cfg, backends, run)
	if err != nil {
		return nil, err
	}
	secrets, err := tryAction(ctx, name, "list_secrets", cfg, backends, run)
	if err != nil {
		return nil, err
	}
	schema, err := tryAction(ctx, name, "config_schema", cfg, backends, run)
	if err != nil {
		return nil, err
	}

	capabilities := capsRaw
	var capList Maybe[[]string]
	if capabilities.Unsupported {
		capList = UnsupportedValue[[]string]()
	} else {
		var list []string
		_ = json.Unmarshal(capabilities.Data, &list)
		capList = Supported(list)
	}

	if !schema.Unsupported {
		if err := validateConfigSchema(schema.Data); err != nil {
			return nil, err
		}
	}

	return &ToolDescribe{
		Capabilities: capList,
		Secrets:      secrets,
		ConfigSchema: schema,
	}, nil
}

func tryAction(ctx context.Context, name, action string, cfg *execconfig.ExecConfig, backends toolexec.Backends, run Runner) (Maybe[json.RawMessage], error) {
	result, err := run(ctx, toolexec.ExecRequest{Component: name, Action: action, Args: json.RawMessage(`{}`)}, cfg, backends)
	if err == nil {
		return Supported(result), nil
	}

	if execerr.IsNotFound(err) {
		return UnsupportedValue[json.RawMessage](), nil
	}

	var ee *execerr.ExecError
	if errors.As(err, &ee) {
		if ee.Code == "iface-error.not-found" {
			return UnsupportedValue[json.RawMessage](), nil
		}
		var re *execerr.RunnerError
		if errors.As(ee, &re) && re.Kind == execerr.RunnerActionNotFound {
			return UnsupportedValue[json.RawMessage](), nil
		}
	}

	return Maybe[json.RawMessage]{}, err
}

// validateConfigSchema checks that a reported config_schema action
// response is itself a well-formed JSON Schema document, the way a
// Describe consumer would want to validate before trusting it for
// form generation.
func validateConfigSchema(schema json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	decoded, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return err
	}
	if err := compiler.AddResource("config_schema.json", decoded); err != nil {
		return err
	}
	_, err = compiler.Compile("config_schema.json")
	return err
}
