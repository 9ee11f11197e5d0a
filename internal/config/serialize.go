package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Marshal renders the tree as YAML. Section and field order follow the
// struct declaration order, so serialization is deterministic and a
// round trip preserves element ordering. Fields that were never set are
// omitted rather than written as explicit defaults.
func Marshal(c *Configuration) ([]byte, error) {
	if c == nil {
		return nil, ErrNilConfig
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal yaml: %w", err)
	}
	return data, nil
}

// Unmarshal parses YAML into a configuration tree. The tree is not
// validated; callers run Validate separately. Parse failures wrap
// ErrFormat.
func Unmarshal(data []byte) (*Configuration, error) {
	var c Configuration
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &c, nil
}

// Decode parses a configuration tree from an arbitrary byte stream, such
// as an overlay source. The reader is drained but never closed; its
// lifecycle belongs to the caller. An empty stream decodes to an empty
// tree.
func Decode(r io.Reader) (*Configuration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read stream: %w", err)
	}
	return Unmarshal(data)
}
