package testdef

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const documentSchemaURL = "schema://skillcert/test-document.json"

// Document is the on-disk authoring format: a list of test definitions.
type Document struct {
	Tests []TestDefinition `json:"tests"`
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// ParseFile decodes a document, choosing YAML or JSON by file extension.
func ParseFile(name string, data []byte) ([]TestDefinition, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("%w: unsupported document extension %q", ErrInvalidDefinition, filepath.Ext(name))
	}
}

// ParseYAML decodes a YAML document. YAML is converted to its JSON form so
// both formats go through the same schema check.
func ParseYAML(data []byte) ([]TestDefinition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %w", ErrInvalidDefinition, err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: convert yaml: %w", ErrInvalidDefinition, err)
	}
	return ParseJSON(b)
}

// ParseJSON decodes a JSON document, validates it against the document
// schema and then checks each definition's invariants.
func ParseJSON(data []byte) ([]TestDefinition, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrInvalidDefinition, err)
	}

	schema, err := documentValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %w", ErrInvalidDefinition, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %w", ErrInvalidDefinition, err)
	}

	seen := make(map[string]bool, len(doc.Tests))
	for i := range doc.Tests {
		t := &doc.Tests[i]
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate test id %q", ErrInvalidDefinition, t.ID)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("test %q: %w", t.ID, err)
		}
	}
	return doc.Tests, nil
}

func documentValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a plain JSON value, so round-trip the Go literal.
		b, err := json.Marshal(documentSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal document schema: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(b, &def); err != nil {
			compileErr = fmt.Errorf("parse document schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(documentSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(documentSchemaURL)
	})
	return compiledSchema, compileErr
}
