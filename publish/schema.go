package publish

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Embedded schema names
const (
	NationalSchema = "national.schema.json"
	StateSchema    = "state.schema.json"
)

// Schema is a compiled document schema
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// LoadSchema compiles one of the embedded schemas
func LoadSchema(name string) (*Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	c.AssertFormat = true
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustLoadSchema is LoadSchema for the embedded schemas, which always compile
func MustLoadSchema(name string) *Schema {
	s, err := LoadSchema(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema's file name
func (s *Schema) Name() string {
	return s.name
}

// validate checks a decoded JSON value and returns one line per violation
func (s *Schema) validate(doc any) ([]string, error) {
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil, nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("failed to validate against %s: %w", s.name, err)
	}

	var problems []string
	for _, e := range verr.BasicOutput().Errors {
		if e.Error == "" {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Error))
	}
	if len(problems) == 0 {
		problems = append(problems, verr.Error())
	}
	return problems, nil
}
