package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure conditions callers are expected to
// branch on. All errors returned by this package wrap one of these or
// *ValidationError, so errors.Is / errors.As work through the usual
// fmt.Errorf chains.
var (
	// ErrNotFound reports a backing file that is missing or unreadable
	// at load time.
	ErrNotFound = errors.New("configuration file not found or unreadable")

	// ErrNotWritable reports a backing file that cannot be created or
	// opened for writing at commit time.
	ErrNotWritable = errors.New("configuration file cannot be created or is not writable")

	// ErrFormat reports content that cannot be deserialized into a
	// configuration tree.
	ErrFormat = errors.New("configuration cannot be parsed")

	// ErrNilConfig reports a nil tree passed to an operation requiring one.
	ErrNilConfig = errors.New("configuration must not be nil")

	// ErrNilSource reports a nil overlay source stream.
	ErrNilSource = errors.New("overlay source must not be nil")

	// ErrNotLoaded reports an overlay attempted before any configuration
	// has been loaded.
	ErrNotLoaded = errors.New("no configuration loaded")
)

// ValidationError is one domain-rule violation found in a tree. Section
// locates the offending section, including a positional index (e.g.
// "metric-sets[2]") when the element has no usable name; Element is the
// element name when it has one.
type ValidationError struct {
	Section string
	Element string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("%s: %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Section, e.Element, e.Reason)
}
