package parsers

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLParser parses fixtures from YAML format.
type YAMLParser struct{}

// Parse reads YAML from the reader and returns the parsed fixture.
func (p *YAMLParser) Parse(r io.Reader) (*Fixture, error) {
	var fixture Fixture

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	fixture.finish()
	return &fixture, nil
}
