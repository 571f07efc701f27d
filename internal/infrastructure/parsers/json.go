package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses fixtures from JSON format.
type JSONParser struct{}

// Parse reads JSON from the reader and returns the parsed fixture.
func (p *JSONParser) Parse(r io.Reader) (*Fixture, error) {
	var fixture Fixture

	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&fixture); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	fixture.finish()
	return &fixture, nil
}
