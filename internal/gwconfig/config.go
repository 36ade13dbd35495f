// Package gwconfig is the gateway's materialized process configuration
// (spec §6.5), loaded once at startup and handed to every subsystem as a
// plain value rather than read piecemeal from the environment.
//
// Grounded on the teacher's gateway/gateway.go GatewayOption/
// GatewayService/OpentelemetrySetting (yaml-tagged fields, a
// default:"..." struct tag convention, goccy/go-yaml decoding), extended
// per spec §6.5 with sections for every capability the core now
// consumes: auth, rate limiting, entity caching, trusted documents.
package gwconfig

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/n9te9/federation-core/internal/capability"
)

// SubgraphConfig is one federated subgraph's connection info (spec
// §6.5), grounded on GatewayService.
type SubgraphConfig struct {
	Name         string       `yaml:"name"`
	URL          string       `yaml:"url"`
	WebsocketURL string       `yaml:"websocket_url,omitempty"`
	SDLFiles     []string     `yaml:"schema_files"`
	Timeout      string       `yaml:"timeout,omitempty"`
	HeaderRules  []HeaderRule `yaml:"header_rules,omitempty"`
}

// RequestTimeout parses Timeout, falling back to fallback when unset.
func (s *SubgraphConfig) RequestTimeout(fallback time.Duration) (time.Duration, error) {
	if s.Timeout == "" {
		return fallback, nil
	}
	return time.ParseDuration(s.Timeout)
}

// TracingConfig mirrors the teacher's OpentelemetryTracingSetting.
type TracingConfig struct {
	Enable      bool   `yaml:"enable" default:"false"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// AuthConfig configures the OIDC Authenticator capability
// (internal/capability.JWTAuthenticator), grounded on
// volaticloud/internal/auth's Keycloak issuer/client-id pair.
type AuthConfig struct {
	Enable            bool   `yaml:"enable" default:"false"`
	IssuerURL         string `yaml:"issuer_url"`
	ClientID          string `yaml:"client_id"`
	SkipClientIDCheck bool   `yaml:"skip_client_id_check"`
}

// RateLimitConfig configures the HTTPRateLimiter capability.
type RateLimitConfig struct {
	Enable          bool   `yaml:"enable" default:"false"`
	RequestLimit    int    `yaml:"request_limit" default:"100"`
	WindowDuration  string `yaml:"window_duration" default:"1m"`
}

// EntityCacheConfig configures the EntityCache capability. An empty
// RedisAddress keeps the in-process MemoryEntityCache.
type EntityCacheConfig struct {
	Enable            bool   `yaml:"enable" default:"false"`
	RedisAddress      string `yaml:"redis_address,omitempty"`
	DefaultTTLSeconds int    `yaml:"default_ttl_seconds" default:"30"`
}

// TrustedDocumentsConfig configures the persisted/trusted documents
// store (spec §3.2).
type TrustedDocumentsConfig struct {
	Enable bool   `yaml:"enable" default:"false"`
	Path   string `yaml:"manifest_path"`
}

// BatchingConfig bounds how many operations a single POST array may
// carry (spec §6.5's batching: {enabled, limit}).
type BatchingConfig struct {
	Enable bool `yaml:"enable" default:"true"`
	Limit  int  `yaml:"limit" default:"10"`
}

// RetryConfig governs Fetcher-level retry of idempotent subgraph calls
// (spec §6.5's retry: {enabled, min_per_second, ttl, retry_percent,
// retry_mutations}); retry accounting is telemetry-only and does not
// affect scheduler state (spec §6.3).
type RetryConfig struct {
	Enable         bool    `yaml:"enable" default:"false"`
	MinPerSecond   int     `yaml:"min_per_second" default:"1"`
	TTL            string  `yaml:"ttl" default:"10s"`
	RetryPercent   float64 `yaml:"retry_percent" default:"0.1"`
	RetryMutations bool    `yaml:"retry_mutations" default:"false"`
}

// HeaderRule is the yaml-decodable shape of one capability.HeaderRule
// (spec §6.5's per-subgraph header_rules).
type HeaderRule struct {
	Name   string `yaml:"name"`
	Op     string `yaml:"op"` // "forward", "insert", "remove", "rename"
	Value  string `yaml:"value,omitempty"`
	Rename string `yaml:"rename,omitempty"`
}

// AsCapabilityRules converts the decoded rule set into capability.HeaderRule
// values.
func AsCapabilityRules(rules []HeaderRule) []capability.HeaderRule {
	out := make([]capability.HeaderRule, len(rules))
	for i, r := range rules {
		out[i] = capability.HeaderRule{Name: r.Name, Op: r.Op, Value: r.Value, Rename: r.Rename}
	}
	return out
}

// Config is the gateway's full process configuration (spec §6.5),
// grounded on GatewayOption.
type Config struct {
	ServiceName     string           `yaml:"service_name"`
	ServiceVersion  string           `yaml:"service_version" default:"v0.1.0"`
	Environment     string           `yaml:"environment" default:"production"`
	Port            int              `yaml:"port"`
	TimeoutDuration string           `yaml:"timeout_duration" default:"5s"`
	Subgraphs       []SubgraphConfig `yaml:"subgraphs"`

	Tracing          TracingConfig          `yaml:"tracing"`
	Auth             AuthConfig             `yaml:"auth"`
	RateLimit        RateLimitConfig        `yaml:"rate_limit"`
	EntityCache      EntityCacheConfig      `yaml:"entity_cache"`
	TrustedDocuments TrustedDocumentsConfig `yaml:"trusted_documents"`
	Batching         BatchingConfig         `yaml:"batching"`
	Retry            RetryConfig            `yaml:"retry"`

	// IntrospectionEnabled gates the introspection resolver (spec
	// §4.1's ResolverIntrospection kind; Non-goal scenario S6).
	IntrospectionEnabled bool `yaml:"introspection_enabled" default:"true"`

	// Operation limits the binder checks (spec §4.2, §6.5).
	MaxOperationDepth      int `yaml:"max_operation_depth" default:"16"`
	MaxOperationHeight     int `yaml:"max_operation_height" default:"256"`
	MaxOperationRootFields int `yaml:"max_operation_root_fields" default:"32"`
	MaxOperationAliases    int `yaml:"max_operation_aliases" default:"32"`
	MaxOperationComplexity int `yaml:"max_operation_complexity" default:"1000"`
}

// Load reads and decodes a gateway config file, grounded on
// server/gateway.go's loadGatewaySetting (os.Open + io.ReadAll +
// yaml.Unmarshal).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gwconfig: open %q: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("gwconfig: read %q: %w", path, err)
	}

	// Seed the values named by the default:"..." tags; yaml.Unmarshal
	// only overwrites the fields the file sets.
	cfg := Config{
		ServiceVersion: "v0.1.0", Environment: "production", TimeoutDuration: "5s",
		RateLimit:   RateLimitConfig{RequestLimit: 100, WindowDuration: "1m"},
		EntityCache: EntityCacheConfig{DefaultTTLSeconds: 30},
		Batching:    BatchingConfig{Enable: true, Limit: 10},
		Retry:       RetryConfig{MinPerSecond: 1, TTL: "10s", RetryPercent: 0.1},
		IntrospectionEnabled: true,
		MaxOperationDepth: 16, MaxOperationHeight: 256, MaxOperationRootFields: 32,
		MaxOperationAliases: 32, MaxOperationComplexity: 1000,
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("gwconfig: unmarshal %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gwconfig: %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the invariants the rest of the gateway assumes hold
// (spec §6.5): at least one subgraph, a parseable timeout, and an OIDC
// issuer/client pair whenever auth is enabled.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if len(c.Subgraphs) == 0 {
		return fmt.Errorf("at least one subgraph is required")
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("timeout_duration: %w", err)
	}
	if c.Auth.Enable && (c.Auth.IssuerURL == "" || c.Auth.ClientID == "") {
		return fmt.Errorf("auth.issuer_url and auth.client_id are required when auth.enable is true")
	}
	if c.RateLimit.Enable {
		if _, err := c.RateLimit.Window(); err != nil {
			return fmt.Errorf("rate_limit.window_duration: %w", err)
		}
	}
	if c.Retry.Enable {
		if _, err := c.Retry.Window(); err != nil {
			return fmt.Errorf("retry.ttl: %w", err)
		}
		if c.Retry.RetryPercent <= 0 {
			return fmt.Errorf("retry.retry_percent must be positive when retry.enable is true")
		}
	}
	for _, sg := range c.Subgraphs {
		if _, err := sg.RequestTimeout(0); err != nil {
			return fmt.Errorf("subgraph %q timeout: %w", sg.Name, err)
		}
	}
	return nil
}

// Timeout parses TimeoutDuration, defaulting to 5s on an empty value.
func (c *Config) Timeout() (time.Duration, error) {
	if c.TimeoutDuration == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(c.TimeoutDuration)
}

// Window parses RateLimitConfig's WindowDuration, defaulting to 1m.
func (r *RateLimitConfig) Window() (time.Duration, error) {
	if r.WindowDuration == "" {
		return time.Minute, nil
	}
	return time.ParseDuration(r.WindowDuration)
}

// Window parses RetryConfig's TTL, defaulting to 10s.
func (r *RetryConfig) Window() (time.Duration, error) {
	if r.TTL == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(r.TTL)
}
