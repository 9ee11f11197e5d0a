package config

import (
	"errors"
	"fmt"
)

// Validate walks every section of the tree and runs each element's own
// validation rule. All violations are collected and returned together via
// errors.Join rather than failing on the first one, so an operator sees
// the complete list in a single pass. Returns nil when the tree is valid.
//
// Cross-section name references (a managed server naming a
// resource-type-set, a resource type naming a metric-set) are logical
// only and deliberately not checked here.
func (c *Configuration) Validate() error {
	var errs []error
	errs = append(errs, c.Subsystem.validate()...)
	errs = append(errs, c.StorageAdapter.validate()...)

	seen := make(map[string]bool)
	for i, s := range c.MetricSets {
		if s.Name != "" && seen[s.Name] {
			errs = append(errs, &ValidationError{Section: "metric-sets", Element: s.Name, Reason: "duplicate name"})
		}
		seen[s.Name] = true
		errs = append(errs, s.validate(i)...)
	}

	seen = make(map[string]bool)
	for i, s := range c.ResourceTypeSets {
		if s.Name != "" && seen[s.Name] {
			errs = append(errs, &ValidationError{Section: "resource-type-sets", Element: s.Name, Reason: "duplicate name"})
		}
		seen[s.Name] = true
		errs = append(errs, s.validate(i)...)
	}

	seen = make(map[string]bool)
	for i, s := range c.ManagedServers {
		if s.Name != "" && seen[s.Name] {
			errs = append(errs, &ValidationError{Section: "managed-servers", Element: s.Name, Reason: "duplicate name"})
		}
		seen[s.Name] = true
		errs = append(errs, s.validate(i)...)
	}

	return errors.Join(errs...)
}

func (s Subsystem) validate() []error {
	var errs []error
	if s.AutoDiscoveryScanPeriod != nil && *s.AutoDiscoveryScanPeriod < 0 {
		errs = append(errs, &ValidationError{Section: "subsystem", Reason: "auto-discovery-scan-period must not be negative"})
	}
	return errs
}

func (s *StorageAdapter) validate() []error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.URL == "" {
		errs = append(errs, &ValidationError{Section: "storage-adapter", Reason: "url is required"})
	}
	errs = append(errs, s.Auth.validate("storage-adapter")...)
	return errs
}

func (s MetricSet) validate(pos int) []error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, &ValidationError{Section: fmt.Sprintf("metric-sets[%d]", pos), Reason: "name is required"})
	}
	for j, m := range s.Metrics {
		errs = append(errs, m.validate(s.Name, pos, j)...)
	}
	return errs
}

func (m Metric) validate(setName string, setPos, pos int) []error {
	section := fmt.Sprintf("metric-sets[%d].metrics[%d]", setPos, pos)
	var errs []error
	if m.Name == "" {
		errs = append(errs, &ValidationError{Section: section, Reason: "name is required"})
	}
	if m.Attribute == "" && m.Path == "" {
		errs = append(errs, &ValidationError{
			Section: "metric-sets",
			Element: setName,
			Reason:  fmt.Sprintf("metric %q must declare an attribute or a path", m.Name),
		})
	}
	return errs
}

func (s ResourceTypeSet) validate(pos int) []error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, &ValidationError{Section: fmt.Sprintf("resource-type-sets[%d]", pos), Reason: "name is required"})
	}
	for j, r := range s.ResourceTypes {
		if r.Name == "" {
			errs = append(errs, &ValidationError{
				Section: fmt.Sprintf("resource-type-sets[%d].resource-types[%d]", pos, j),
				Reason:  "name is required",
			})
		}
	}
	return errs
}

func (s ManagedServer) validate(pos int) []error {
	section := fmt.Sprintf("managed-servers[%d]", pos)
	var errs []error
	if s.Name == "" {
		errs = append(errs, &ValidationError{Section: section, Reason: "name is required"})
	}
	if s.Endpoint == "" {
		errs = append(errs, &ValidationError{Section: "managed-servers", Element: s.Name, Reason: "endpoint is required"})
	}
	switch s.Protocol {
	case "dmr", "jmx":
	default:
		errs = append(errs, &ValidationError{
			Section: "managed-servers",
			Element: s.Name,
			Reason:  fmt.Sprintf("unknown protocol %q", s.Protocol),
		})
	}
	errs = append(errs, s.Auth.validate(section)...)
	return errs
}

func (a AuthConfig) validate(section string) []error {
	switch a.Mode {
	case "", "none", "basic", "bearer":
		return nil
	default:
		return []error{&ValidationError{Section: section, Reason: fmt.Sprintf("unknown auth mode %q", a.Mode)}}
	}
}
