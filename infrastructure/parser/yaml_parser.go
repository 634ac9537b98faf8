// Package parser provides configuration parsers.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/triebridge/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlConfigParser implements ports.ConfigParser for YAML.
type YamlConfigParser struct {
	// KnownFields rejects keys that do not map to a struct field.
	KnownFields bool
}

// NewYamlConfigParser creates a strict YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{KnownFields: true}
}

// Parse unmarshals YAML bytes into out. Empty input leaves out untouched.
func (p *YamlConfigParser) Parse(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(p.KnownFields)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}
