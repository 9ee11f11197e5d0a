package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the full declarative configuration tree of the agent.
// Sections are slices rather than maps so that element order survives a
// serialize/deserialize round trip. Optional scalar fields are pointers
// with omitempty: a field that was never set in the source document stays
// absent when the tree is written back out.
//
// A Configuration held by a caller is always an independent copy with no
// back-reference into the Manager; see Copy.
type Configuration struct {
	Subsystem        Subsystem         `yaml:"subsystem,omitempty"`
	StorageAdapter   *StorageAdapter   `yaml:"storage-adapter,omitempty"`
	MetricSets       []MetricSet       `yaml:"metric-sets,omitempty"`
	ResourceTypeSets []ResourceTypeSet `yaml:"resource-type-sets,omitempty"`
	ManagedServers   []ManagedServer   `yaml:"managed-servers,omitempty"`
}

// Subsystem holds the agent-wide toggles.
type Subsystem struct {
	// Enabled turns the whole agent on or off.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Immutable, when true, rejects configuration changes pushed at runtime.
	Immutable *bool `yaml:"immutable,omitempty"`

	// AutoDiscoveryScanPeriod controls how often managed servers are
	// re-scanned for new resources.
	AutoDiscoveryScanPeriod *Duration `yaml:"auto-discovery-scan-period,omitempty"`
}

// StorageAdapter describes the backend the agent ships collected data to.
type StorageAdapter struct {
	// URL is the base URL of the storage backend.
	URL string `yaml:"url"`

	// Auth configures how the agent authenticates to the backend.
	Auth AuthConfig `yaml:"auth,omitempty"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls,omitempty"`
}

// MetricSet is a named, reusable group of metric definitions that managed
// servers reference by name.
type MetricSet struct {
	Name    string   `yaml:"name"`
	Enabled *bool    `yaml:"enabled,omitempty"`
	Metrics []Metric `yaml:"metrics,omitempty"`
}

// Metric defines a single data point to collect. At least one of Attribute
// or Path must be set to locate the data point on the monitored server.
type Metric struct {
	Name string `yaml:"name"`

	// Attribute is the attribute name on the target resource, optionally
	// with a sub-field after '#' (e.g. "heap-memory-usage#used").
	Attribute string `yaml:"attribute,omitempty"`

	// Path addresses the resource the attribute lives on, relative to the
	// managed server root.
	Path string `yaml:"path,omitempty"`

	// Interval overrides the default collection interval for this metric.
	Interval *Duration `yaml:"interval,omitempty"`

	Units string `yaml:"units,omitempty"`
}

// ResourceTypeSet is a named group of resource type definitions.
type ResourceTypeSet struct {
	Name          string         `yaml:"name"`
	Enabled       *bool          `yaml:"enabled,omitempty"`
	ResourceTypes []ResourceType `yaml:"resource-types,omitempty"`
}

// ResourceType describes one kind of discoverable resource and the metric
// sets to collect from it. MetricSets and Parents are logical name
// references; they are not resolved or enforced at this layer.
type ResourceType struct {
	Name                 string   `yaml:"name"`
	ResourceNameTemplate string   `yaml:"resource-name-template,omitempty"`
	Parents              []string `yaml:"parents,omitempty"`
	MetricSets           []string `yaml:"metric-sets,omitempty"`
}

// ManagedServer is one endpoint the agent monitors. ResourceTypeSets are
// logical name references into the resource-type-sets section.
type ManagedServer struct {
	Name             string     `yaml:"name"`
	Enabled          *bool      `yaml:"enabled,omitempty"`
	Protocol         string     `yaml:"protocol"`
	Endpoint         string     `yaml:"endpoint"`
	Auth             AuthConfig `yaml:"auth,omitempty"`
	ResourceTypeSets []string   `yaml:"resource-type-sets,omitempty"`
}

// AuthConfig specifies how the agent authenticates to an endpoint.
// Secrets are never stored in the file; only the names of environment
// variables that hold them.
type AuthConfig struct {
	// Mode is one of: basic | bearer | none.
	Mode string `yaml:"mode,omitempty"`

	// Basic auth fields, used when Mode == "basic".
	Username    string `yaml:"username,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`

	// Bearer token field, used when Mode == "bearer".
	TokenEnv string `yaml:"token_env,omitempty"`
}

// Password returns the basic-auth password resolved from the environment.
// Returns empty string if PasswordEnv is unset or the variable is not found.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// TLSConfig holds per-endpoint TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`

	CAFile string `yaml:"ca_file,omitempty"`
}

// Duration is a time.Duration that serializes in Go's "30s"/"5m" form.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Copy returns a deep copy of the tree. Mutating the copy, including its
// slices and pointer fields, never affects the original. Nil sections and
// unset optional fields stay nil so field absence survives the copy.
func (c *Configuration) Copy() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{
		Subsystem:      c.Subsystem.Copy(),
		StorageAdapter: c.StorageAdapter.Copy(),
	}
	if c.MetricSets != nil {
		out.MetricSets = make([]MetricSet, len(c.MetricSets))
		for i, s := range c.MetricSets {
			out.MetricSets[i] = s.Copy()
		}
	}
	if c.ResourceTypeSets != nil {
		out.ResourceTypeSets = make([]ResourceTypeSet, len(c.ResourceTypeSets))
		for i, s := range c.ResourceTypeSets {
			out.ResourceTypeSets[i] = s.Copy()
		}
	}
	if c.ManagedServers != nil {
		out.ManagedServers = make([]ManagedServer, len(c.ManagedServers))
		for i, s := range c.ManagedServers {
			out.ManagedServers[i] = s.Copy()
		}
	}
	return out
}

// Copy returns a deep copy of the subsystem section.
func (s Subsystem) Copy() Subsystem {
	out := s
	out.Enabled = copyBool(s.Enabled)
	out.Immutable = copyBool(s.Immutable)
	out.AutoDiscoveryScanPeriod = copyDuration(s.AutoDiscoveryScanPeriod)
	return out
}

// Copy returns a deep copy, or nil for an absent section.
func (s *StorageAdapter) Copy() *StorageAdapter {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

// Copy returns a deep copy of the metric set.
func (s MetricSet) Copy() MetricSet {
	out := s
	out.Enabled = copyBool(s.Enabled)
	if s.Metrics != nil {
		out.Metrics = make([]Metric, len(s.Metrics))
		for i, m := range s.Metrics {
			out.Metrics[i] = m.Copy()
		}
	}
	return out
}

// Copy returns a deep copy of the metric.
func (m Metric) Copy() Metric {
	out := m
	out.Interval = copyDuration(m.Interval)
	return out
}

// Copy returns a deep copy of the resource type set.
func (s ResourceTypeSet) Copy() ResourceTypeSet {
	out := s
	out.Enabled = copyBool(s.Enabled)
	if s.ResourceTypes != nil {
		out.ResourceTypes = make([]ResourceType, len(s.ResourceTypes))
		for i, r := range s.ResourceTypes {
			out.ResourceTypes[i] = r.Copy()
		}
	}
	return out
}

// Copy returns a deep copy of the resource type.
func (r ResourceType) Copy() ResourceType {
	out := r
	out.Parents = copyStrings(r.Parents)
	out.MetricSets = copyStrings(r.MetricSets)
	return out
}

// Copy returns a deep copy of the managed server entry.
func (s ManagedServer) Copy() ManagedServer {
	out := s
	out.Enabled = copyBool(s.Enabled)
	out.ResourceTypeSets = copyStrings(s.ResourceTypeSets)
	return out
}

func (s MetricSet) elementName() string       { return s.Name }
func (s ResourceTypeSet) elementName() string { return s.Name }

// section constrains the element types that participate in overlay merges.
type section[T any] interface {
	elementName() string
	Copy() T
}

// mergeNamed merges overlay elements into base: an element whose name
// already exists in base replaces it in place, preserving base ordering;
// new names are appended in overlay order.
func mergeNamed[T section[T]](base, overlay []T) []T {
	out := base
	for _, o := range overlay {
		replaced := false
		for i := range out {
			if out[i].elementName() == o.elementName() {
				out[i] = o.Copy()
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o.Copy())
		}
	}
	return out
}

// overlayMetadata merges only the metric and resource-type metadata
// sections of overlay into c. All other sections (subsystem, storage
// adapter, managed servers) are left untouched.
func (c *Configuration) overlayMetadata(overlay *Configuration) {
	c.MetricSets = mergeNamed(c.MetricSets, overlay.MetricSets)
	c.ResourceTypeSets = mergeNamed(c.ResourceTypeSets, overlay.ResourceTypeSets)
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	out := *b
	return &out
}

func copyDuration(d *Duration) *Duration {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
