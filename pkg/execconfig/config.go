// Package execconfig defines the in-memory configuration surface the
// core pipeline consumes (ExecConfig) plus a non-core JSON/YAML loader
// for CLI front-ends, the way
// Mindburn-Labs-helm/core/pkg/config/profile_loader.go loads HELM
// profiles from YAML and pkg/config/config.go layers environment
// defaults. The core itself never parses a file; it only ever sees the
// struct below.
package execconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// supportedAPIVersions is the range of ExecConfig.APIVersion values this
// Load accepts, the way a profile loader gates compatibility before
// trusting the rest of a config file.
var supportedAPIVersions = mustConstraint("^1.0.0")

func mustConstraint(c string) *semver.Constraints {
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return parsed
}

// StoreKind tags which concrete Store variant a ToolStore value holds.
type StoreKind string

const (
	StoreLocalDir   StoreKind = "local_dir"
	StoreLocal      StoreKind = "local"
	StoreOci        StoreKind = "oci"
	StoreWarg       StoreKind = "warg"
	StoreHTTPSingle StoreKind = "http_single_file"
	StoreS3         StoreKind = "s3"
	StoreGCS        StoreKind = "gcs"
)

// Store is the tagged-union contract every ToolStore variant satisfies.
// Go expresses spec.md's ToolStore sum type as an interface plus a type
// switch in the Resolver, rather than as an enum-with-payload.
type Store interface {
	Kind() StoreKind
}

// LocalDirStore resolves a name against a single directory, trying the
// verbatim name and then each candidate extension in turn — the same
// fallback order LocalStore applies per search root, narrowed to one
// directory since LocalDir carries no SearchPaths/ExpectedExtension of
// its own.
type LocalDirStore struct {
	Path string `json:"path" yaml:"path"`
}

func (LocalDirStore) Kind() StoreKind { return StoreLocalDir }

// LocalStore searches multiple roots in order, trying extension
// fallbacks per component name.
type LocalStore struct {
	SearchPaths       []string `json:"search_paths" yaml:"search_paths"`
	ExpectedExtension string   `json:"expected_extension,omitempty" yaml:"expected_extension,omitempty"`
}

func (LocalStore) Kind() StoreKind { return StoreLocal }

// OciAuth carries optional registry credentials.
type OciAuth struct {
	Anonymous bool   `json:"anonymous,omitempty" yaml:"anonymous,omitempty"`
	Bearer    string `json:"bearer,omitempty" yaml:"bearer,omitempty"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
}

// OciStore names an OCI registry/repository pair. Resolution against it
// always fails with OciNotImplemented per spec.md §4.1 — the type
// exists so callers can construct a complete ExecConfig.
type OciStore struct {
	Registry   string   `json:"registry" yaml:"registry"`
	Repository string   `json:"repository" yaml:"repository"`
	Reference  string   `json:"reference,omitempty" yaml:"reference,omitempty"`
	Auth       *OciAuth `json:"auth,omitempty" yaml:"auth,omitempty"`
}

func (OciStore) Kind() StoreKind { return StoreOci }

// WargStore names a Warg registry package. Resolution against it
// always fails with WargNotImplemented.
type WargStore struct {
	Server    string `json:"server" yaml:"server"`
	Package   string `json:"package" yaml:"package"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

func (WargStore) Kind() StoreKind { return StoreWarg }

// HTTPSingleFileStore fetches a single artifact by URL, caching it to
// disk so subsequent resolves avoid the network.
type HTTPSingleFileStore struct {
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

func (HTTPSingleFileStore) Kind() StoreKind { return StoreHTTPSingle }

// S3Store resolves a component from an S3 bucket, grounded on
// Mindburn-Labs-helm/core/pkg/artifacts/s3_store.go's bucket+prefix
// shape.
type S3Store struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

func (S3Store) Kind() StoreKind { return StoreS3 }

// GCSStore resolves a component from a GCS bucket, grounded on
// Mindburn-Labs-helm/core/pkg/artifacts/gcs_store.go.
type GCSStore struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

func (GCSStore) Kind() StoreKind { return StoreGCS }

// VerifyPolicy describes how artifacts must be verified prior to
// execution.
type VerifyPolicy struct {
	AllowUnverified bool              `json:"allow_unverified" yaml:"allow_unverified"`
	RequiredDigests map[string]string `json:"required_digests,omitempty" yaml:"required_digests,omitempty"`
	TrustedSigners  []string          `json:"trusted_signers,omitempty" yaml:"trusted_signers,omitempty"`
}

// RuntimePolicy bounds a single Runner invocation.
type RuntimePolicy struct {
	Fuel             *uint64       `json:"fuel,omitempty" yaml:"fuel,omitempty"`
	MaxMemory        *uint64       `json:"max_memory,omitempty" yaml:"max_memory,omitempty"`
	PerCallTimeout   time.Duration `json:"per_call_timeout" yaml:"per_call_timeout"`
	MaxAttempts      uint32        `json:"max_attempts" yaml:"max_attempts"`
	BaseBackoff      time.Duration `json:"base_backoff" yaml:"base_backoff"`
	WallclockTimeout time.Duration `json:"wallclock_timeout" yaml:"wallclock_timeout"`
	LegacyABI        bool          `json:"legacy_abi,omitempty" yaml:"legacy_abi,omitempty"`
}

// DefaultRuntimePolicy returns the spec.md §3 defaults.
func DefaultRuntimePolicy() RuntimePolicy {
	return RuntimePolicy{
		PerCallTimeout:   30 * time.Second,
		MaxAttempts:      1,
		BaseBackoff:      200 * time.Millisecond,
		WallclockTimeout: 30 * time.Second,
	}
}

// ExecConfig is the complete in-memory configuration for one exec call
// or one long-lived pipeline instance.
type ExecConfig struct {
	Store       Store         `json:"-" yaml:"-"`
	Security    VerifyPolicy  `json:"security" yaml:"security"`
	Runtime     RuntimePolicy `json:"runtime" yaml:"runtime"`
	HTTPEnabled bool          `json:"http_enabled" yaml:"http_enabled"`
	APIVersion  string        `json:"api_version,omitempty" yaml:"api_version,omitempty"`
}

// defaultAPIVersion is assumed when a config file omits api_version, so
// fixtures written before the field existed keep loading.
const defaultAPIVersion = "1.0.0"

// checkAPIVersion validates v against supportedAPIVersions, defaulting
// an empty v first.
func checkAPIVersion(v string) (string, error) {
	if v == "" {
		v = defaultAPIVersion
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return "", fmt.Errorf("execconfig: invalid api_version %q: %w", v, err)
	}
	if !supportedAPIVersions.Check(parsed) {
		return "", fmt.Errorf("execconfig: api_version %q not in supported range %s", v, supportedAPIVersions)
	}
	return v, nil
}

// Load reads an ExecConfig from a JSON or YAML file, sniffing format by
// extension (.json vs .yaml/.yml), the way
// Mindburn-Labs-helm/core/pkg/config/profile_loader.go picks its parser.
// This is CLI-front-end plumbing, not part of the core pipeline.
func Load(path string) (*ExecConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("execconfig: read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return decodeJSON(data)
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return nil, fmt.Errorf("execconfig: unsupported config extension %q (want .json, .yaml, or .yml)", ext)
	}
}

func decodeJSON(data []byte) (*ExecConfig, error) {
	var w struct {
		StoreKind   StoreKind       `json:"store_kind"`
		Store       json.RawMessage `json:"store"`
		Security    VerifyPolicy    `json:"security"`
		Runtime     RuntimePolicy   `json:"runtime"`
		HTTPEnabled bool            `json:"http_enabled"`
		APIVersion  string          `json:"api_version"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("execconfig: parse json: %w", err)
	}
	store, err := decodeStoreJSON(w.StoreKind, w.Store)
	if err != nil {
		return nil, err
	}
	version, err := checkAPIVersion(w.APIVersion)
	if err != nil {
		return nil, err
	}
	return &ExecConfig{Store: store, Security: w.Security, Runtime: w.Runtime, HTTPEnabled: w.HTTPEnabled, APIVersion: version}, nil
}

func decodeYAML(data []byte) (*ExecConfig, error) {
	var w struct {
		StoreKind   StoreKind     `yaml:"store_kind"`
		Store       yaml.Node     `yaml:"store"`
		Security    VerifyPolicy  `yaml:"security"`
		Runtime     RuntimePolicy `yaml:"runtime"`
		HTTPEnabled bool          `yaml:"http_enabled"`
		APIVersion  string        `yaml:"api_version"`
	}
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("execconfig: parse yaml: %w", err)
	}
	store, err := decodeStoreYAML(w.StoreKind, &w.Store)
	if err != nil {
		return nil, err
	}
	version, err := checkAPIVersion(w.APIVersion)
	if err != nil {
		return nil, err
	}
	return &ExecConfig{Store: store, Security: w.Security, Runtime: w.Runtime, HTTPEnabled: w.HTTPEnabled, APIVersion: version}, nil
}

func decodeStoreJSON(kind StoreKind, raw json.RawMessage) (Store, error) {
	var s Store
	switch kind {
	case StoreLocalDir:
		var v LocalDirStore
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	case StoreLocal:
		var v LocalStore
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	case StoreOci:
		var v OciStore
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	case StoreWarg:
		var v WargStore
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	case StoreHTTPSingle:
		var v HTTPSingleFileStore
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	case StoreS3:
		var v S3Store
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	case StoreGCS:
		var v GCSStore
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		s = v
	default:
		return nil, fmt.Errorf("execconfig: unknown store_kind %q", kind)
	}
	return s, nil
}

func decodeStoreYAML(kind StoreKind, node *yaml.Node) (Store, error) {
	var s Store
	decode := func(v any) error { return node.Decode(v) }
	switch kind {
	case StoreLocalDir:
		var v LocalDirStore
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	case StoreLocal:
		var v LocalStore
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	case StoreOci:
		var v OciStore
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	case StoreWarg:
		var v WargStore
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	case StoreHTTPSingle:
		var v HTTPSingleFileStore
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	case StoreS3:
		var v S3Store
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	case StoreGCS:
		var v GCSStore
		if err := decode(&v); err != nil {
			return nil, err
		}
		s = v
	default:
		return nil, fmt.Errorf("execconfig: unknown store_kind %q", kind)
	}
	return s, nil
}
